package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/alexanderramin/weekendly/internal/config"
	"github.com/alexanderramin/weekendly/internal/gateway"
	"github.com/alexanderramin/weekendly/internal/netstatus"
	"github.com/alexanderramin/weekendly/internal/repository"
	"github.com/alexanderramin/weekendly/internal/store"
	"github.com/alexanderramin/weekendly/internal/syncer"
	"github.com/spf13/cobra"
)

var errNoUser = errors.New("no user configured: set user_id in the config file or WEEKENDLY_USER_ID")

// App holds everything the commands act on. It is wired in cmd/weekendly.
type App struct {
	Config  config.Config
	Store   *store.Store
	Sync    *syncer.Coordinator
	Network *netstatus.Monitor
	Gateway *gateway.Client
	Queue   repository.ActionQueue
	Cache   repository.PlanCache
	Logger  *slog.Logger

	// IsInteractive reports whether stdin is a terminal; forms are only
	// shown when it is.
	IsInteractive func() bool
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

// NewRootCmd creates the top-level "weekendly" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "weekendly",
		Short:         "Weekend planner that keeps working offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newPlanCmd(app),
		newDayCmd(app),
		newActivityCmd(app),
		newSyncCmd(app),
		newStatusCmd(app),
		newWatchCmd(app),
		newRelayCmd(app),
		newCatalogCmd(app),
		newLogoutCmd(app),
	)

	return root
}

// loadPlans brings the store up to date with the backend. When the backend
// cannot be reached the hydrated local copy is used as is.
func (a *App) loadPlans(cmd *cobra.Command) error {
	user := a.Config.UserID
	if user == "" {
		user = a.Store.UserID()
	}
	if user == "" {
		return errNoUser
	}
	if !a.Network.Online() {
		return nil
	}
	a.Store.LoadPlans(cmd.Context(), user)
	if a.Store.Snapshot().Error == store.MsgLoadFailed {
		fmt.Fprintln(cmd.ErrOrStderr(), formatter.Warn("Backend unreachable, showing the local copy"))
	}
	return nil
}

// settle waits for background persistence, replays anything queued while
// the backend is reachable and reports the outcome of the mutation.
func (a *App) settle(cmd *cobra.Command) error {
	ctx := cmd.Context()
	a.Store.Wait()
	if err := a.flush(ctx); err != nil {
		return err
	}
	st := a.Store.Snapshot()
	if st.Error != "" {
		return errors.New(st.Error)
	}
	if st.Notice != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), formatter.Warn(st.Notice))
	}
	return nil
}

// flush drains the queue once if anything is waiting and the backend is
// believed reachable.
func (a *App) flush(ctx context.Context) error {
	if a.Sync == nil || !a.Network.Online() {
		return nil
	}
	n, err := a.Queue.Count(ctx)
	if err != nil || n == 0 {
		return err
	}
	if _, err := a.Sync.Drain(ctx); err != nil && !errors.Is(err, syncer.ErrStopped) {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
