package dashboard

import (
	"context"
	"sync"
	"time"

	"hazardwatch/internal/orchestrator"
)

// DefaultPollInterval is how often the board drains the status channel.
const DefaultPollInterval = 300 * time.Millisecond

// StatusBoard polls the status channel and keeps the latest event for
// display. Every event is also pushed to the hub.
type StatusBoard struct {
	status   *orchestrator.StatusChannel
	hub      *Hub
	interval time.Duration

	mu     sync.RWMutex
	latest orchestrator.StatusEvent
}

// NewStatusBoard returns a board polling status every interval. hub may be nil.
func NewStatusBoard(status *orchestrator.StatusChannel, hub *Hub, interval time.Duration) *StatusBoard {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &StatusBoard{
		status:   status,
		hub:      hub,
		interval: interval,
		latest:   orchestrator.StatusEvent{Message: "Idle"},
	}
}

// Latest returns the most recent status event.
func (b *StatusBoard) Latest() orchestrator.StatusEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// Run polls until ctx is done. Events still queued at that point are applied.
func (b *StatusBoard) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.Poll()
			return
		case <-ticker.C:
			b.Poll()
		}
	}
}

// Poll drains the channel once and returns the number of events seen.
func (b *StatusBoard) Poll() int {
	events := b.status.Drain()
	if len(events) == 0 {
		return 0
	}
	b.mu.Lock()
	b.latest = events[len(events)-1]
	b.mu.Unlock()

	if b.hub != nil {
		for _, ev := range events {
			b.hub.Broadcast(Message{Type: "status", Payload: ev, Timestamp: ev.At.Unix()})
		}
	}
	return len(events)
}
