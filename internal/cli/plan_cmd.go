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

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage weekend plans",
	}

	cmd.AddCommand(
		newPlanListCmd(app),
		newPlanShowCmd(app),
		newPlanAddCmd(app),
		newPlanRemoveCmd(app),
		newPlanRenameCmd(app),
		newPlanColorCmd(app),
		newPlanUseCmd(app),
		newPlanCategoryCmd(app),
		newPlanShareCmd(app),
	)

	return cmd
}

func newPlanListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List plans",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			st := app.Store.Snapshot()
			fmt.Fprint(out(cmd), formatter.FormatPlanList(st.Plans, st.ActivePlanID, st.PendingChanges))
			return nil
		},
	}
}

func newPlanShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [plan]",
		Short: "Show a plan's schedule (default: the active plan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			st := app.Store.Snapshot()
			id, err := resolvePlanID(st, firstArg(args))
			if err != nil {
				return err
			}
			for _, p := range st.Plans {
				if p.ID == id {
					fmt.Fprint(out(cmd), formatter.FormatSchedule(p))
				}
			}
			return nil
		},
	}
}

func newPlanAddCmd(app *App) *cobra.Command {
	var color string
	var category categoryValue

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a plan and make it active",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if name == "" {
				if !app.interactive() {
					return errors.New("plan name is required")
				}
				if err := newPlanForm(&name, &color).Run(); err != nil {
					return err
				}
			}
			if color == "" {
				color = catalog.Colors[0].Hex
			}
			color = catalog.ResolveColor(color)
			if err := validateColor(color); err != nil {
				return err
			}

			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			if _, err := app.Store.AddPlan(name, color); err != nil {
				return err
			}
			// The create call may rename the plan; wait for it before
			// addressing the plan again.
			app.Store.Wait()
			if category.set {
				if err := app.Store.SetCategory(category.value); err != nil {
					return err
				}
			}
			if err := app.settle(cmd); err != nil {
				return err
			}

			st := app.Store.Snapshot()
			fmt.Fprintln(out(cmd), formatter.Done(fmt.Sprintf("Created plan %s [%s]",
				formatter.Bold(strings.TrimSpace(name)), formatter.ShortID(st.ActivePlanID))))
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "Plan color: palette name or #rrggbb (default blue)")
	cmd.Flags().Var(&category, "category", "Plan category: "+strings.Join(categoryNames(), ", "))

	return cmd
}

func newPlanRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <plan>",
		Aliases: []string{"remove"},
		Short:   "Delete a plan",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			id, err := resolvePlanID(app.Store.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := app.Store.RemovePlan(id); err != nil {
				return err
			}
			if err := app.settle(cmd); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), formatter.Done(fmt.Sprintf("Deleted plan [%s]", formatter.ShortID(id))))
			return nil
		},
	}
}

func newPlanRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <plan> <name>",
		Short: "Rename a plan",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			return app.updatePlan(cmd, args[0], domain.PlanUpdate{Name: &name}, "Renamed")
		},
	}
}

func newPlanColorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "color <plan> <color>",
		Short: "Change a plan's color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			color := catalog.ResolveColor(args[1])
			if err := validateColor(color); err != nil {
				return err
			}
			return app.updatePlan(cmd, args[0], domain.PlanUpdate{Color: &color}, "Recolored")
		},
	}
}

func (a *App) updatePlan(cmd *cobra.Command, input string, u domain.PlanUpdate, verb string) error {
	if err := a.loadPlans(cmd); err != nil {
		return err
	}
	id, err := resolvePlanID(a.Store.Snapshot(), input)
	if err != nil {
		return err
	}
	if err := a.Store.UpdatePlan(id, u); err != nil {
		return err
	}
	if err := a.settle(cmd); err != nil {
		return err
	}
	fmt.Fprintln(out(cmd), formatter.Done(fmt.Sprintf("%s plan [%s]", verb, formatter.ShortID(id))))
	return nil
}

func newPlanUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <plan>",
		Short: "Make a plan the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			id, err := resolvePlanID(app.Store.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := app.Store.SetActivePlan(id); err != nil {
				return err
			}
			p, _ := app.Store.Snapshot().ActivePlan()
			fmt.Fprintln(out(cmd), formatter.Done(fmt.Sprintf("Active plan: %s [%s]",
				formatter.Bold(p.Name), formatter.ShortID(id))))
			return nil
		},
	}
}

func newPlanCategoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "category <category>",
		Short:     "Set the active plan's category",
		Long:      "Set the active plan's category. One of: " + strings.Join(categoryNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: categoryNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var category categoryValue
			if err := category.Set(args[0]); err != nil {
				return err
			}
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			if err := app.Store.SetCategory(category.value); err != nil {
				return err
			}
			if err := app.settle(cmd); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), formatter.Done("Category set to "+
				formatter.CategoryStyle(category.value).Render(string(category.value))))
			return nil
		},
	}
}

func newPlanShareCmd(app *App) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "share [plan]",
		Short: "Print the public link of a plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			st := app.Store.Snapshot()
			id, err := resolvePlanID(st, firstArg(args))
			if err != nil {
				return err
			}
			for _, pid := range st.PendingChanges {
				if pid == id {
					fmt.Fprintln(cmd.ErrOrStderr(), formatter.Warn("This plan has unsynced changes; the link shows the last synced version"))
				}
			}
			if domain.IsTemporaryID(id) {
				return errors.New("plan has not reached the server yet")
			}
			user := app.Store.UserID()
			if check {
				p, err := app.Gateway.GetPublicPlan(cmd.Context(), user, id)
				if err != nil {
					return fmt.Errorf("checking public link: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), formatter.Done("Public view shows "+formatter.Bold(p.Name)))
			}
			fmt.Fprintln(out(cmd), app.Gateway.ShareURL(user, id))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Fetch the public plan to verify the link")

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
