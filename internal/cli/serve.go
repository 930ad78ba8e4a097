package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hazardwatch/internal/dashboard"
	"hazardwatch/internal/platform/logger"
	"hazardwatch/internal/platform/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and session API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := opts.settings()
			if port != "" {
				s.Port = port
			}
			log := logger.New(s.LogLevel, s.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			met := metrics.New()
			frames := dashboard.NewFrameStore()
			workers, cancelWorkers := context.WithCancel(context.Background())
			defer cancelWorkers()

			a, err := wireApp(workers, s, log, met, frames, false)
			if err != nil {
				return err
			}

			hub := dashboard.NewHub(log)
			board := dashboard.NewStatusBoard(a.status, hub, s.StatusPollInterval)
			go board.Run(workers)

			h := dashboard.NewHandler(a.orch, a.store, frames, board, hub, log, met)
			router := dashboard.NewRouter(h, log, met, nil)

			ln, err := net.Listen("tcp", ":"+s.Port)
			if err != nil {
				_ = a.close(context.Background())
				return fmt.Errorf("listen: %w", err)
			}
			srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

			serveErr := make(chan error, 1)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			log.Info("server starting",
				"addr", ln.Addr().String(),
				"log_level", s.LogLevel,
			)

			select {
			case <-ctx.Done():
				log.Info("shutdown signal received, draining connections")
			case err := <-serveErr:
				log.Error("server error", "error", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			var errs []error
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown: %w", err))
			}
			hub.Close()
			if err := a.close(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			cancelWorkers()

			if err := errors.Join(errs...); err != nil {
				log.Error("shutdown error", "error", err)
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port; overrides PORT")
	return cmd
}
