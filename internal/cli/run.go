package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ChuLiYu/questboard/internal/errors"
	"github.com/ChuLiYu/questboard/internal/logger"
	"github.com/ChuLiYu/questboard/internal/metrics"
)

// shutdownTimeout bounds the metrics server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

func buildRunCommand(s *session) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the board service",
		Long: `Run questboard as a long-lived service:
1. Catch-up sweep for jobs that went overdue while stopped
2. Prometheus metrics on :<metrics.port>/metrics (if enabled)
3. Auto-advance of one in-world day per interval (if set)

Stops gracefully on SIGINT or SIGTERM.`,
		RunE: s.run(func(ctx context.Context, cmd *cobra.Command, args []string, app *App) error {
			if cmd.Flags().Changed("interval") {
				app.Config.Calendar.AutoAdvanceInterval = interval
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd.OutOrStdout(), app)
		}),
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "advance one day per interval (overrides calendar.auto_advance_interval)")
	return cmd
}

// serve runs until ctx is cancelled or the metrics server fails.
func serve(ctx context.Context, w io.Writer, app *App) error {
	log := logger.Named("run")

	report, err := app.Board.Sweep(ctx)
	if err != nil {
		return errors.Wrap(err, "startup sweep")
	}
	if n := len(report.Expired); n > 0 {
		success(w, "Startup sweep expired %d overdue job(s)", n)
	}
	if err := app.RefreshGauges(ctx); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	var srv *http.Server
	if app.Config.Metrics.Enabled {
		srv = metrics.NewServer(fmt.Sprintf(":%d", app.Config.Metrics.Port), app.Registry)
		go func() {
			log.Infow("metrics server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var tick <-chan time.Time
	if every := app.Config.Calendar.AutoAdvanceInterval; every > 0 {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		tick = ticker.C
		log.Infow("auto-advance enabled", "interval", every)
	}

	success(w, "questboard running")
	for {
		select {
		case <-ctx.Done():
			log.Infow("shutting down")
			return shutdown(srv)

		case err := <-serverErr:
			return errors.Wrap(err, "metrics server")

		case <-tick:
			// a failed sweep is already logged and notified; keep the service up
			if ev, err := app.Calendar.Advance(ctx, 1); err != nil {
				log.Errorw("auto-advance failed", "to", ev.To, "error", err)
			}
			if err := app.RefreshGauges(ctx); err != nil {
				log.Warnw("refresh gauges", "error", err)
			}
		}
	}
}

func shutdown(srv *http.Server) error {
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "stop metrics server")
	}
	return nil
}
