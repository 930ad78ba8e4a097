package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"hazardwatch/internal/platform/metrics"
)

// DropPolicy selects which request an overflowing announcement queue discards.
type DropPolicy int

const (
	// DropNewest discards the incoming request when the queue is full.
	DropNewest DropPolicy = iota
	// DropOldest evicts the longest-waiting request to make room.
	DropOldest
)

// ParseDropPolicy accepts "drop-newest" and "drop-oldest".
func ParseDropPolicy(s string) (DropPolicy, error) {
	switch s {
	case "drop-newest", "newest", "":
		return DropNewest, nil
	case "drop-oldest", "oldest":
		return DropOldest, nil
	}
	return DropNewest, fmt.Errorf("unknown drop policy %q", s)
}

func (p DropPolicy) String() string {
	if p == DropOldest {
		return "drop-oldest"
	}
	return "drop-newest"
}

// DefaultAnnounceCapacity is used when NewAnnouncer is given a size <= 0.
const DefaultAnnounceCapacity = 4

// AnnouncerStats is a snapshot of announcement counters.
type AnnouncerStats struct {
	Queued  uint64
	Dropped uint64
	Played  uint64
	Failed  uint64
}

// Announcer owns the bounded announcement queue and the single worker that
// plays requests one at a time.
type Announcer struct {
	queue   chan AnnouncementRequest
	policy  DropPolicy
	speaker Speaker
	log     *slog.Logger
	metrics *metrics.Metrics

	// serializes Enqueue with the eviction step of DropOldest and with closing
	mu     sync.Mutex
	closed bool

	queued  atomic.Uint64
	dropped atomic.Uint64
	played  atomic.Uint64
	failed  atomic.Uint64

	done chan struct{}
}

// NewAnnouncer returns an announcer with the given queue capacity and
// overflow policy. A nil speaker makes every announcement a no-op.
func NewAnnouncer(speaker Speaker, capacity int, policy DropPolicy, log *slog.Logger, m *metrics.Metrics) *Announcer {
	if capacity <= 0 {
		capacity = DefaultAnnounceCapacity
	}
	if speaker == nil {
		speaker = silentSpeaker{}
	}
	return &Announcer{
		queue:   make(chan AnnouncementRequest, capacity),
		policy:  policy,
		speaker: speaker,
		log:     log,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Enqueue offers req to the queue without blocking and reports whether it
// was accepted. Under DropOldest the request is accepted unless Shutdown
// has been called.
func (a *Announcer) Enqueue(req AnnouncementRequest) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.rejected(req)
		return false
	}

	select {
	case a.queue <- req:
		a.accepted()
		return true
	default:
	}

	if a.policy == DropNewest {
		a.rejected(req)
		return false
	}

	select {
	case old := <-a.queue:
		a.rejected(old)
	default:
	}
	select {
	case a.queue <- req:
		a.accepted()
		return true
	default:
		a.rejected(req)
		return false
	}
}

func (a *Announcer) accepted() {
	a.queued.Add(1)
	a.metrics.IncAnnouncement("queued")
}

func (a *Announcer) rejected(req AnnouncementRequest) {
	a.dropped.Add(1)
	a.metrics.IncAnnouncement("dropped")
	a.log.Debug("announcement dropped", "utterance", req.Utterance, "policy", a.policy.String())
}

// Run plays queued requests serially until the shutdown sentinel arrives or
// ctx is cancelled. It is meant to run on its own goroutine, exactly once.
func (a *Announcer) Run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.queue:
			if req.shutdown {
				a.log.Debug("announcement worker stopping")
				return
			}
			a.play(ctx, req)
		}
	}
}

func (a *Announcer) play(ctx context.Context, req AnnouncementRequest) {
	if err := a.speaker.Speak(ctx, req.Utterance); err != nil {
		a.failed.Add(1)
		a.metrics.IncAnnouncement("failed")
		a.log.Warn("announcement failed", "utterance", req.Utterance, "error", err)
		return
	}
	a.played.Add(1)
	a.metrics.IncAnnouncement("played")
}

// Shutdown queues the shutdown sentinel behind pending requests and waits
// for the worker to exit or ctx to expire. Later Enqueue calls are rejected,
// so the sentinel cannot be evicted.
func (a *Announcer) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	select {
	case a.queue <- AnnouncementRequest{shutdown: true}:
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the current counters.
func (a *Announcer) Stats() AnnouncerStats {
	return AnnouncerStats{
		Queued:  a.queued.Load(),
		Dropped: a.dropped.Load(),
		Played:  a.played.Load(),
		Failed:  a.failed.Load(),
	}
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(context.Context, string) error { return nil }
