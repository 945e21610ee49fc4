package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/catalog"
	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/spf13/cobra"
)

func newActivityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"act"},
		Short:   "Schedule activities on the active plan",
	}

	cmd.AddCommand(
		newActivityAddCmd(app),
		newActivityRemoveCmd(app),
		newActivityEditCmd(app),
		newActivityMoveCmd(app),
		newActivityOrderCmd(app),
	)

	return cmd
}

// locationFlags collects the optional place of an activity.
type locationFlags struct {
	name     string
	lat, lng float64
}

func (l *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.name, "location", "", "Where the activity happens")
	cmd.Flags().Float64Var(&l.lat, "lat", 0, "Latitude of the location")
	cmd.Flags().Float64Var(&l.lng, "lng", 0, "Longitude of the location")
}

func (l *locationFlags) apply(cmd *cobra.Command, a *domain.ScheduledActivity) {
	if !cmd.Flags().Changed("location") && !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lng") {
		return
	}
	if l.name == "" && !cmd.Flags().Changed("lat") {
		a.Location = ""
		a.LocationData = nil
		return
	}
	a.Location = l.name
	a.LocationData = &domain.LocationData{Name: l.name}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
		a.LocationData.Coordinates = &domain.Coordinates{Lat: l.lat, Lng: l.lng}
	}
}

func newActivityAddCmd(app *App) *cobra.Command {
	var at string
	var vibe vibeValue
	var loc locationFlags

	cmd := &cobra.Command{
		Use:   "add <day> <activity>",
		Short: "Add a catalog activity to a day",
		Long:  "Add a catalog activity (by ID or name, see `weekendly catalog`) to a day of the active plan.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateClock(at); err != nil {
				return err
			}
			day := domain.NormalizeDayKey(args[0])
			act, err := catalog.Schedule(strings.Join(args[1:], " "), at, vibe.String())
			if err != nil {
				return err
			}
			loc.apply(cmd, &act)
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			return app.editSchedule(cmd, func() error {
				_, err := app.Store.AddActivity(day, act)
				return err
			}, fmt.Sprintf("Added %s to %s [%s]", act.Name, formatter.DayLabel(day), formatter.ShortID(act.InstanceID)))
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Time of day, HH:MM")
	cmd.Flags().Var(&vibe, "vibe", "Vibe: "+strings.Join(vibeIDs(), ", "))
	loc.register(cmd)

	return cmd
}

func newActivityRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <activity-id>",
		Aliases: []string{"remove"},
		Short:   "Remove a scheduled activity",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			p, err := activePlan(app.Store.Snapshot())
			if err != nil {
				return err
			}
			day, act, err := resolveInstance(p, args[0])
			if err != nil {
				return err
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.RemoveActivity(day, act.InstanceID)
			}, fmt.Sprintf("Removed %s from %s", act.Name, formatter.DayLabel(day)))
		},
	}
}

func newActivityEditCmd(app *App) *cobra.Command {
	var at string
	var vibe vibeValue
	var loc locationFlags

	cmd := &cobra.Command{
		Use:   "edit <activity-id>",
		Short: "Change the time, vibe or location of a scheduled activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateClock(at); err != nil {
				return err
			}
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			p, err := activePlan(app.Store.Snapshot())
			if err != nil {
				return err
			}
			day, act, err := resolveInstance(p, args[0])
			if err != nil {
				return err
			}
			changed := false
			if cmd.Flags().Changed("at") {
				act.Time = at
				changed = true
			}
			if vibe.set {
				act.Vibe = vibe.value
				changed = true
			}
			before := act.Location
			loc.apply(cmd, &act)
			changed = changed || act.Location != before || cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng")
			if !changed {
				return errors.New("nothing to change: pass --at, --vibe or --location")
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.UpdateActivity(day, act)
			}, fmt.Sprintf("Updated %s", act.Name))
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Time of day, HH:MM")
	cmd.Flags().Var(&vibe, "vibe", "Vibe: "+strings.Join(vibeIDs(), ", "))
	loc.register(cmd)

	return cmd
}

func newActivityMoveCmd(app *App) *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "mv <activity-id> <day>",
		Short: "Move an activity to another day, or to another slot of its day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			p, err := activePlan(app.Store.Snapshot())
			if err != nil {
				return err
			}
			from, act, err := resolveInstance(p, args[0])
			if err != nil {
				return err
			}
			to := domain.NormalizeDayKey(args[1])
			pos := domain.AppendIndex
			if cmd.Flags().Changed("index") {
				pos = index - 1
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.MoveActivityBetweenDays(act.InstanceID, from, to, pos)
			}, fmt.Sprintf("Moved %s to %s", act.Name, formatter.DayLabel(to)))
		},
	}

	cmd.Flags().IntVar(&index, "index", 0, "1-based position on the target day (default: last)")

	return cmd
}

func newActivityOrderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "order <day> <activity-id>...",
		Short: "Reorder the activities of a day",
		Long:  "Reorder a day's activities. Every activity of the day must be listed exactly once, in the new order.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			p, err := activePlan(app.Store.Snapshot())
			if err != nil {
				return err
			}
			day := domain.NormalizeDayKey(args[0])
			seq := make([]domain.ScheduledActivity, 0, len(args)-1)
			for _, in := range args[1:] {
				onDay, act, err := resolveInstance(p, in)
				if err != nil {
					return err
				}
				if onDay != day {
					return fmt.Errorf("%s is on %s, not %s", act.Name, formatter.DayLabel(onDay), formatter.DayLabel(day))
				}
				seq = append(seq, act)
			}
			return app.editSchedule(cmd, func() error {
				return app.Store.ReorderActivities(day, seq)
			}, "Reordered "+formatter.DayLabel(day))
		},
	}
}
