package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/spf13/cobra"
)

func newDayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Manage the days of the active plan",
	}

	cmd.AddCommand(
		newDayAddCmd(app),
		newDayRemoveCmd(app),
		newDayMoveCmd(app),
	)

	return cmd
}

func newDayAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: fmt.Sprintf("Add a day (a plan holds at most %d)", domain.MaxDays),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := domain.NormalizeDayKey(strings.Join(args, " "))
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.AddDay(key)
			}, "Added "+formatter.DayLabel(key))
		},
	}
}

func newDayRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Remove a day and its activities",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := domain.NormalizeDayKey(strings.Join(args, " "))
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.RemoveDay(key)
			}, "Removed "+formatter.DayLabel(key))
		},
	}
}

func newDayMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <day> <target-day>",
		Short: "Move a day to the position of another day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dragged, target := domain.NormalizeDayKey(args[0]), domain.NormalizeDayKey(args[1])
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.MoveDay(dragged, target)
			}, fmt.Sprintf("Moved %s to %s's place", formatter.DayLabel(dragged), formatter.DayLabel(target)))
		},
	}
}

// editSchedule runs a schedule mutation against the loaded active plan and
// prints the resulting schedule.
func (a *App) editSchedule(cmd *cobra.Command, mutate func() error, done string) error {
	if err := mutate(); err != nil {
		return err
	}
	if err := a.settle(cmd); err != nil {
		return err
	}
	fmt.Fprintln(out(cmd), formatter.Done(done))
	if p, ok := a.Store.Snapshot().ActivePlan(); ok {
		fmt.Fprint(out(cmd), "\n"+formatter.FormatSchedule(p))
	}
	return nil
}
