package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/alexanderramin/weekendly/internal/relay"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newRelayCmd(app *App) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve a local caching relay in front of the plans API",
		Long: "Serve /api/plans on a local address. Reads are cached and served from the cache\n" +
			"while the backend is unreachable; writes are queued and replayed when it returns.\n" +
			"POST /sw/message answers the worker message protocol.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = app.Config.RelayListen
			}
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("relay listen: %w", err)
			}

			worker := relay.NewWorker(app.Gateway, app.Cache, app.Queue,
				relay.WithNetwork(app.Network),
				relay.WithKicker(app.Sync),
				relay.WithLogger(app.logger()))

			fmt.Fprintln(out(cmd), formatter.Done("Relay listening on http://"+ln.Addr().String()))
			return app.serveRelay(cmd.Context(), ln, worker)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from config)")

	return cmd
}

// serveRelay runs the relay together with the heartbeat and the sync loop
// until ctx is done.
func (a *App) serveRelay(ctx context.Context, ln net.Listener, h http.Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	a.runBackground(ctx, &wg)
	defer wg.Wait()

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		cancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	return nil
}

// runBackground starts the reachability heartbeat and the sync loop.
func (a *App) runBackground(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Network.Run(ctx, a.Gateway, a.Config.HeartbeatInterval)
	}()
	go func() {
		defer wg.Done()
		a.Sync.Run(ctx, a.Config.SyncInterval)
	}()
}
