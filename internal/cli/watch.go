package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hazardwatch/internal/orchestrator"
)

// ErrSessionFailed is returned by watch when the session ends in Error.
var ErrSessionFailed = errors.New("detection session failed")

type watchOptions struct {
	silent      bool
	snapshotDir string
	confidence  float64
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	wo := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <source>",
		Short: "Run one detection session headless and print its status",
		Long: "watch runs a detection session on a webcam index, video file, image directory or MJPEG URL and prints status messages until it ends.\n" +
			"Ctrl-C stops the session; SIGUSR1 saves a snapshot of the next frame.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := opts.settings()
			if wo.snapshotDir != "" {
				s.SnapshotDir = wo.snapshotDir
			}
			if cmd.Flags().Changed("confidence") {
				s.ClassifierConfidence = wo.confidence
			}
			log := opts.logger(cmd, s)

			workers, cancelWorkers := context.WithCancel(context.Background())
			defer cancelWorkers()

			a, err := wireApp(workers, s, log, nil, nil, wo.silent)
			if err != nil {
				return err
			}

			state, runErr := runWatch(cmd.Context(), a, orchestrator.ParseSource(args[0]), cmd.OutOrStdout())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.close(shutdownCtx); err != nil {
				log.Error("shutdown error", "error", err)
			}

			if runErr != nil {
				return runErr
			}
			if state == orchestrator.StateError {
				return ErrSessionFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wo.silent, "silent", false, "do not speak hazard warnings")
	cmd.Flags().StringVar(&wo.snapshotDir, "snapshot-dir", "", "directory for snapshots; overrides SNAPSHOT_DIR")
	cmd.Flags().Float64Var(&wo.confidence, "confidence", 0, "minimum detection confidence; overrides CLASSIFIER_CONFIDENCE")
	return cmd
}

// runWatch starts a session on src and prints its status events to out
// until the terminal one.
func runWatch(ctx context.Context, a *app, src orchestrator.SourceDescriptor, out io.Writer) (orchestrator.State, error) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(signals)

	s, err := a.orch.Start(src)
	if err != nil {
		return orchestrator.StateIdle, err
	}

	show := func(ev orchestrator.StatusEvent) {
		fmt.Fprintf(out, "[%s] %s\n", ev.At.Format("15:04:05"), ev.Message)
	}

	for {
		select {
		case ev := <-a.status.C():
			show(ev)
			if ev.Terminal {
				<-s.Done()
				return s.State(), nil
			}
		case sig := <-signals:
			if sig == syscall.SIGUSR1 {
				if err := a.orch.RequestSnapshot(s); err != nil {
					a.log.Warn("snapshot request ignored", "error", err)
				}
				continue
			}
			a.log.Info("stop requested", "signal", sig.String())
			_ = a.orch.Stop(s)
		case <-ctx.Done():
			_ = a.orch.Stop(s)
			<-s.Done()
			for _, ev := range a.status.Drain() {
				show(ev)
			}
			return s.State(), ctx.Err()
		}
	}
}
