package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/alexanderramin/weekendly/internal/syncer"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay changes saved while offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := app.Queue.Count(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(out(cmd), formatter.Done("Nothing to sync"))
				return nil
			}
			if !app.Network.Online() {
				fmt.Fprintln(out(cmd), formatter.Warn(fmt.Sprintf("Offline: %s waiting", formatter.Plural(n, "change"))))
				return nil
			}

			stop := func() {}
			if app.interactive() {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Syncing "+formatter.Plural(n, "change"))
			}
			res, err := app.Sync.Drain(ctx)
			stop()
			if err != nil && !errors.Is(err, syncer.ErrStopped) {
				return err
			}
			fmt.Fprintln(out(cmd), formatSyncResult(res))
			return nil
		},
	}
}

func formatSyncResult(r syncer.Result) string {
	if r.Skipped {
		return formatter.Dim("A sync is already running")
	}
	var parts []string
	parts = append(parts, fmt.Sprintf("%d replayed", r.Replayed))
	if r.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("%d dropped", r.Dropped))
	}
	if r.Failed > 0 {
		parts = append(parts, formatter.StyleRed.Render(fmt.Sprintf("%d failed", r.Failed)))
	}
	if r.Abandoned > 0 {
		parts = append(parts, formatter.StyleRed.Render(fmt.Sprintf("%d abandoned", r.Abandoned)))
	}
	parts = append(parts, fmt.Sprintf("%d remaining", r.Remaining))
	line := strings.Join(parts, ", ")
	if r.Offline {
		return formatter.Warn("Backend went away mid-sync: " + line)
	}
	if r.Remaining > 0 || r.Failed > 0 {
		return formatter.Warn(line)
	}
	return formatter.Done(line)
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and the changes waiting to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			queue, err := app.Queue.List(ctx)
			if err != nil {
				return err
			}
			st := app.Store.Snapshot()
			net := app.Network.Status()
			user := app.Config.UserID
			if user == "" {
				user = app.Store.UserID()
			}
			fmt.Fprint(out(cmd), formatter.FormatStatus(formatter.StatusView{
				UserID:     user,
				Online:     net.Online,
				Forced:     net.Forced,
				Since:      net.Since,
				LastSyncAt: st.LastSyncAt,
				Queue:      queue,
				Error:      st.Error,
				Notice:     st.Notice,
			}))
			return nil
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget local plans, the offline queue and cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := app.Queue.Count(ctx)
			if err != nil {
				return err
			}
			if err := app.Store.Reset(ctx); err != nil {
				return err
			}
			if app.Cache != nil {
				if err := app.Cache.Clear(ctx); err != nil {
					return err
				}
			}
			if n > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), formatter.Warn(fmt.Sprintf("Discarded %s that had not synced", formatter.Plural(n, "change"))))
			}
			fmt.Fprintln(out(cmd), formatter.Done("Signed out, local data cleared"))
			return nil
		},
	}
}
