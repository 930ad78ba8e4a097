package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one run of the detection pipeline against one frame source.
// It doubles as the handle returned by Orchestrator.Start.
type Session struct {
	ID        string
	Source    SourceDescriptor
	CreatedAt time.Time

	mu     sync.RWMutex
	state  State
	frames uint64
	totals map[string]int

	// Set by command issuers, consumed by the frame loop.
	cancel   atomic.Bool
	snapshot atomic.Bool

	done chan struct{}
}

func newSession(src SourceDescriptor, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Source:    src,
		CreatedAt: now,
		state:     StateStarting,
		totals:    make(map[string]int),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FrameCount returns the number of frames read so far.
func (s *Session) FrameCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Done is closed once the frame loop has exited and published its terminal
// status event.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a copy of the session for display.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]int, len(s.totals))
	for k, v := range s.totals {
		totals[k] = v
	}
	return SessionInfo{
		ID:         s.ID,
		Source:     s.Source.String(),
		State:      s.state.String(),
		FrameCount: s.frames,
		CreatedAt:  s.CreatedAt,
		Totals:     totals,
	}
}

// advance counts a successfully read frame and returns its 1-based index.
// The first frame moves the session from Starting to Running.
func (s *Session) advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if s.state == StateStarting {
		s.state = StateRunning
	}
	return s.frames
}

func (s *Session) addTotals(counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for label, n := range counts {
		if n > 0 {
			s.totals[label] += n
		}
	}
}

// markStopping records a stop request; only live states move to Stopping.
func (s *Session) markStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStarting || s.state == StateRunning {
		s.state = StateStopping
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}
