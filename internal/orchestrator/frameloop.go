package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Status messages shown to the operator.
const (
	MsgModelUnavailable  = "Model not available."
	MsgSourceUnavailable = "Cannot open video source!"
	MsgStreamEnded       = "Video ended or cannot read frame."
	MsgStopped           = "Stopped"
)

func startingMessage(src SourceDescriptor) string {
	if src.IsDevice {
		return fmt.Sprintf("Starting webcam %d...", src.Device)
	}
	return "Playing " + filepath.Base(src.Path)
}

// run is the session goroutine.
func (o *Orchestrator) run(s *Session) {
	defer o.wg.Done()
	defer close(s.done)

	log := o.log.With("session_id", s.ID, "source", s.Source.String())
	o.metrics.SessionStarted()
	o.info(startingMessage(s.Source))

	st, msg := o.loop(o.ctx, s, log)

	o.finish(s, st, msg)
	o.metrics.SessionEnded(st.String())
	log.Info("session finished", "state", st.String(), "frames", s.FrameCount(), "status", msg)
}

// loop runs the session until cancellation, end of stream or a fatal error
// and returns the terminal state and message.
func (o *Orchestrator) loop(ctx context.Context, s *Session, log *slog.Logger) (st State, msg string) {
	if o.deps.Classifier == nil {
		log.Error("no classifier configured")
		return StateError, MsgModelUnavailable
	}
	if err := o.deps.Classifier.Ready(ctx); err != nil {
		log.Error("classifier not ready", "error", err)
		return StateError, MsgModelUnavailable
	}
	if o.deps.Source == nil {
		log.Error("no frame source configured")
		return StateError, MsgSourceUnavailable
	}
	reader, err := o.deps.Source.Open(ctx, s.Source)
	if err != nil {
		log.Error("open frame source failed", "error", err)
		return StateError, MsgSourceUnavailable
	}
	defer reader.Close()

	rec := newRecorder(o.deps.Sink, log, o.metrics)
	go rec.run(ctx)
	// failures still pending at exit are folded into the terminal message
	defer func() {
		rec.Close()
		if m := failureMessage(rec.TakeFailures()); m != "" {
			msg = strings.TrimSuffix(msg, ".") + ". " + m
		}
	}()

	for {
		if s.cancel.Load() {
			return StateStopped, MsgStopped
		}

		frame, err := reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return StateStopped, MsgStopped
			}
			if !errors.Is(err, io.EOF) {
				log.Warn("frame read failed", "error", err)
			}
			return StateStopped, MsgStreamEnded
		}
		index := s.advance()

		started := o.now()
		dets, err := o.deps.Classifier.Infer(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return StateStopped, MsgStopped
			}
			log.Error("inference failed", "frame", index, "error", err)
			return StateError, "Detection failed: " + err.Error()
		}
		o.metrics.ObserveFrame(o.now().Sub(started))

		o.processFrame(s, rec, index, frame, dets, log)
		if !s.cancel.Load() {
			o.reportAppendFailures(rec.TakeFailures())
		}
	}
}

// processFrame handles everything after inference for one frame: log records,
// overlay, announcement, display and snapshot.
func (o *Orchestrator) processFrame(s *Session, rec *recorder, index uint64, frame image.Image, dets []Detection, log *slog.Logger) {
	summary, hazards, ov := o.deps.Vocabulary.Summarize(index, dets)

	// every hazard detection is logged; only the last one is announced
	source := s.Source.String()
	for _, d := range hazards {
		rec.Submit(LogRecord{
			Label:      d.Label,
			Confidence: d.Confidence,
			Timestamp:  o.now(),
			Source:     source,
		})
		o.metrics.IncHazard(d.Label)
	}
	s.addTotals(summary.Counts)

	composited := frame
	if o.deps.Compositor != nil {
		composited = o.deps.Compositor.Composite(frame, ov)
	}

	if summary.AnyHazard && o.deps.Announcer != nil {
		if !o.deps.Announcer.Enqueue(AnnouncementRequest{Utterance: Utterance(summary.MostRecent)}) {
			log.Debug("announcement queue full", "frame", index, "label", summary.MostRecent)
		}
	}

	if o.deps.Display != nil {
		o.deps.Display.ShowFrame(composited)
	}

	if s.snapshot.CompareAndSwap(true, false) {
		o.saveSnapshot(composited, log)
	}
}

func (o *Orchestrator) saveSnapshot(frame image.Image, log *slog.Logger) {
	if o.deps.Snapshots == nil {
		o.metrics.IncSnapshot("failed")
		o.info("Snapshot failed: snapshots are disabled")
		return
	}
	path, err := o.deps.Snapshots.Save(frame, o.now())
	if err != nil {
		o.metrics.IncSnapshot("failed")
		log.Warn("snapshot failed", "error", err)
		o.info("Snapshot failed: " + err.Error())
		return
	}
	o.metrics.IncSnapshot("saved")
	o.info("Snapshot saved: " + path)
}

func (o *Orchestrator) reportAppendFailures(failures []appendFailure) {
	if m := failureMessage(failures); m != "" {
		o.info(m)
	}
}

func failureMessage(failures []appendFailure) string {
	switch len(failures) {
	case 0:
		return ""
	case 1:
		f := failures[0]
		return fmt.Sprintf("Failed to log %s detection: %v", f.rec.Label, f.err)
	default:
		last := failures[len(failures)-1]
		return fmt.Sprintf("Failed to log %d detections: %v", len(failures), last.err)
	}
}
