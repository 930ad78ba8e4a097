package orchestrator

import (
	"context"
	"image"
)

// FrameSource opens frame readers for source descriptors.
type FrameSource interface {
	Open(ctx context.Context, src SourceDescriptor) (FrameReader, error)
}

// FrameReader yields frames in order. ReadFrame returns io.EOF once the
// stream is exhausted.
type FrameReader interface {
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// Classifier maps one frame to detections. Implementations apply their own
// confidence threshold.
type Classifier interface {
	// Ready reports whether the classifier can serve inference.
	Ready(ctx context.Context) error
	Infer(ctx context.Context, frame image.Image) ([]Detection, error)
}

// Sink is the durable, append-only hazard log.
// A nil error means the record is durable.
type Sink interface {
	Append(ctx context.Context, rec LogRecord) error
}

// Compositor draws the overlay for a frame and returns the composited image.
// The input frame must not be modified.
type Compositor interface {
	Composite(frame image.Image, ov Overlay) image.Image
}

// Display receives every composited frame. It must return quickly.
type Display interface {
	ShowFrame(frame image.Image)
}

// Speaker plays one utterance to completion.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
