package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hazardwatch/internal/classifier"
	"hazardwatch/internal/framesource"
	"hazardwatch/internal/hazardlog"
	"hazardwatch/internal/orchestrator"
	"hazardwatch/internal/overlay"
	"hazardwatch/internal/platform/config"
	"hazardwatch/internal/platform/metrics"
	"hazardwatch/internal/speech"
)

// app is the wired detection pipeline shared by serve and watch.
type app struct {
	settings  config.Settings
	log       *slog.Logger
	metrics   *metrics.Metrics
	store     hazardlog.Store
	announcer *orchestrator.Announcer
	status    *orchestrator.StatusChannel
	orch      *orchestrator.Orchestrator
}

// wireApp builds the pipeline from settings. display may be nil. The
// announcement worker is started on ctx.
func wireApp(ctx context.Context, s config.Settings, log *slog.Logger, met *metrics.Metrics, display orchestrator.Display, silent bool) (*app, error) {
	policy, err := orchestrator.ParseDropPolicy(s.AnnouncePolicy)
	if err != nil {
		return nil, fmt.Errorf("ANNOUNCE_POLICY: %w", err)
	}

	store, err := hazardlog.Open(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("open hazard log: %w", err)
	}

	var speaker orchestrator.Speaker = speech.Noop{}
	if !silent {
		speaker = speech.Resolve(s.TTSCommand, s.AlertSound, log)
	}
	announcer := orchestrator.NewAnnouncer(speaker, s.AnnounceQueueSize, policy, log, met)
	go announcer.Run(ctx)

	status := orchestrator.NewStatusChannel(s.StatusQueueSize)
	orch := orchestrator.New(orchestrator.Deps{
		Source:     framesource.New(s.FFmpegPath, log),
		Classifier: classifier.NewClient(s.ClassifierURL, s.ClassifierConfidence, s.ClassifierTimeout),
		Sink:       store,
		Compositor: overlay.New(),
		Display:    display,
		Announcer:  announcer,
		Status:     status,
		Snapshots:  orchestrator.NewSnapshotWriter(s.SnapshotDir),
		Vocabulary: orchestrator.NewVocabulary(s.HazardLabels),
		Log:        log,
		Metrics:    met,
	})

	log.Info("pipeline ready",
		"log_backend", s.LogBackend,
		"classifier_url", s.ClassifierURL,
		"confidence", s.ClassifierConfidence,
		"hazard_labels", s.HazardLabels,
		"announce_policy", policy.String(),
	)

	return &app{
		settings:  s,
		log:       log,
		metrics:   met,
		store:     store,
		announcer: announcer,
		status:    status,
		orch:      orch,
	}, nil
}

// close stops the session, drains announcements and closes the hazard log.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if err := a.orch.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop session: %w", err))
	}
	if err := a.announcer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop announcer: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close hazard log: %w", err))
	}
	return errors.Join(errs...)
}
