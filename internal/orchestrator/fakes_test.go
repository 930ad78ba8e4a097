package orchestrator

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 16, 12))
}

// scriptedSource yields a fixed number of frames, then io.EOF.
type scriptedSource struct {
	frames  int
	openErr error
	readErr error // returned instead of io.EOF when set

	reads atomic.Int64
}

func (s *scriptedSource) Open(context.Context, SourceDescriptor) (FrameReader, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &scriptedReader{src: s}, nil
}

type scriptedReader struct {
	src    *scriptedSource
	served int
}

func (r *scriptedReader) ReadFrame(context.Context) (image.Image, error) {
	r.src.reads.Add(1)
	if r.served >= r.src.frames {
		if r.src.readErr != nil {
			return nil, r.src.readErr
		}
		return nil, io.EOF
	}
	r.served++
	return testFrame(), nil
}

func (r *scriptedReader) Close() error { return nil }

// gatedSource serves one frame per token sent on next. Closing next
// releases every read.
type gatedSource struct {
	next  chan struct{}
	reads atomic.Int64
}

func newGatedSource() *gatedSource {
	return &gatedSource{next: make(chan struct{})}
}

func (g *gatedSource) Open(context.Context, SourceDescriptor) (FrameReader, error) {
	return g, nil
}

func (g *gatedSource) ReadFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-g.next:
		g.reads.Add(1)
		return testFrame(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedSource) Close() error { return nil }

// scriptedClassifier returns script[i] for the i-th inference (0-based).
type scriptedClassifier struct {
	script   [][]Detection
	readyErr error
	inferErr error
	onInfer  func(call int)

	calls int
}

func (c *scriptedClassifier) Ready(context.Context) error { return c.readyErr }

func (c *scriptedClassifier) Infer(context.Context, image.Image) ([]Detection, error) {
	call := c.calls
	c.calls++
	if c.onInfer != nil {
		c.onInfer(call)
	}
	if c.inferErr != nil {
		return nil, c.inferErr
	}
	if call < len(c.script) {
		return c.script[call], nil
	}
	return nil, nil
}

// failingSink rejects every append. A non-nil release holds each append
// until it is closed.
type failingSink struct {
	attempts atomic.Int64
	release  chan struct{}
}

func (f *failingSink) Append(context.Context, LogRecord) error {
	f.attempts.Add(1)
	if f.release != nil {
		<-f.release
	}
	return errors.New("disk full")
}

type recordingSpeaker struct {
	mu     sync.Mutex
	said   []string
	err    error
	block  chan struct{}
	active atomic.Int32
	maxPar atomic.Int32
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		cur := s.maxPar.Load()
		if n <= cur || s.maxPar.CompareAndSwap(cur, n) {
			break
		}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	s.mu.Lock()
	s.said = append(s.said, text)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSpeaker) Said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

type countingDisplay struct {
	shown atomic.Int64
}

func (d *countingDisplay) ShowFrame(image.Image) { d.shown.Add(1) }

func car(conf float64) Detection {
	return Detection{Label: "car", Confidence: conf, Box: BoundingBox{X1: 1, Y1: 1, X2: 8, Y2: 6}}
}

func det(label string, conf float64) Detection {
	return Detection{Label: label, Confidence: conf, Box: BoundingBox{X1: 2, Y1: 2, X2: 9, Y2: 9}}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("session %s did not finish, state %s", s.ID, s.State())
	}
}

func lastEvent(t *testing.T, events []StatusEvent) StatusEvent {
	t.Helper()
	require.NotEmpty(t, events, "expected status events")
	return events[len(events)-1]
}

func messages(events []StatusEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Message
	}
	return out
}

// queued drains the announcement queue without running the worker.
func queued(a *Announcer) []string {
	var out []string
	for {
		select {
		case req := <-a.queue:
			out = append(out, req.Utterance)
		default:
			return out
		}
	}
}
