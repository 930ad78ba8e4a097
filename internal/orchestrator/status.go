package orchestrator

import (
	"sync/atomic"
	"time"
)

// DefaultStatusCapacity is used when NewStatusChannel is given a size <= 0.
const DefaultStatusCapacity = 64

// StatusChannel carries StatusEvents from the session goroutine to the
// presentation layer, in production order.
//
// Overflow policy is drop-oldest: when the buffer is full, Publish evicts the
// longest-resident event and enqueues the new one, so Publish never blocks and
// the latest status (which the presentation layer displays) is always kept.
// It is meant for one producer and one consumer.
type StatusChannel struct {
	ch      chan StatusEvent
	dropped atomic.Uint64
	now     func() time.Time
}

// NewStatusChannel returns a channel buffering up to capacity events.
func NewStatusChannel(capacity int) *StatusChannel {
	if capacity <= 0 {
		capacity = DefaultStatusCapacity
	}
	return &StatusChannel{ch: make(chan StatusEvent, capacity), now: time.Now}
}

// Publish enqueues ev without blocking. A zero At is stamped with the
// current time.
func (s *StatusChannel) Publish(ev StatusEvent) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
			// consumer emptied a slot meanwhile
		}
	}
}

// Info publishes a non-terminal message.
func (s *StatusChannel) Info(msg string) {
	s.Publish(StatusEvent{Message: msg})
}

// Final publishes a terminal message.
func (s *StatusChannel) Final(msg string) {
	s.Publish(StatusEvent{Message: msg, Terminal: true})
}

// C exposes the receive side for consumers that select on it.
func (s *StatusChannel) C() <-chan StatusEvent {
	return s.ch
}

// Drain returns every queued event without blocking, oldest first.
func (s *StatusChannel) Drain() []StatusEvent {
	var out []StatusEvent
	for {
		select {
		case ev := <-s.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Dropped is the number of events evicted so far.
func (s *StatusChannel) Dropped() uint64 {
	return s.dropped.Load()
}
