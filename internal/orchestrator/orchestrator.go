package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hazardwatch/internal/platform/logger"
	"hazardwatch/internal/platform/metrics"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is Starting,
	// Running or Stopping.
	ErrAlreadyRunning = errors.New("a detection session is already running")

	// ErrUnknownSession is returned for a handle that is not the current session.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSessionEnded is returned when a command targets a session that has
	// already reached a terminal state.
	ErrSessionEnded = errors.New("session has ended")

	// ErrNoSession is returned when a command needs a session and none was started.
	ErrNoSession = errors.New("no session")
)

// Deps are the collaborators of an Orchestrator. Source, Classifier and Sink
// are required for a session to do useful work; the rest may be nil.
type Deps struct {
	Source     FrameSource
	Classifier Classifier
	Sink       Sink
	Compositor Compositor
	Display    Display
	Announcer  *Announcer
	Status     *StatusChannel
	Snapshots  *SnapshotWriter
	Vocabulary Vocabulary

	Log     *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Orchestrator runs at most one detection session at a time.
type Orchestrator struct {
	deps    Deps
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// base context for blocking source and classifier calls; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	current *Session
	wg      sync.WaitGroup
}

// New returns an Orchestrator. A nil Status gets a default-capacity channel
// and a zero Vocabulary gets the default hazard vocabulary.
func New(d Deps) *Orchestrator {
	if d.Status == nil {
		d.Status = NewStatusChannel(DefaultStatusCapacity)
	}
	if len(d.Vocabulary.labels) == 0 {
		d.Vocabulary = DefaultVocabulary()
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sink == nil {
		d.Sink = NewMemorySink()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:    d,
		log:     d.Log,
		metrics: d.Metrics,
		now:     d.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Status returns the channel the orchestrator publishes on.
func (o *Orchestrator) Status() *StatusChannel {
	return o.deps.Status
}

// Vocabulary returns the hazard vocabulary in use.
func (o *Orchestrator) Vocabulary() Vocabulary {
	return o.deps.Vocabulary
}

// Start launches a session for src and returns immediately.
func (o *Orchestrator) Start(src SourceDescriptor) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil && !o.current.State().Terminal() {
		return nil, ErrAlreadyRunning
	}
	if o.ctx.Err() != nil {
		return nil, context.Canceled
	}

	s := newSession(src, o.now())
	o.current = s
	o.wg.Add(1)
	go o.run(s)

	o.log.Info("session started", "session_id", s.ID, "source", src.String())
	return s, nil
}

// Stop asks s to stop at the next frame boundary. Stopping an ended session
// is a no-op.
func (o *Orchestrator) Stop(s *Session) error {
	if err := o.check(s); err != nil {
		if errors.Is(err, ErrSessionEnded) {
			return nil
		}
		return err
	}
	s.cancel.Store(true)
	s.markStopping()
	o.log.Info("session stop requested", "session_id", s.ID)
	return nil
}

// RequestSnapshot asks s to save the next composited frame.
func (o *Orchestrator) RequestSnapshot(s *Session) error {
	if err := o.check(s); err != nil {
		return err
	}
	s.snapshot.Store(true)
	return nil
}

func (o *Orchestrator) check(s *Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s == nil || o.current != s {
		return ErrUnknownSession
	}
	if s.State().Terminal() {
		return ErrSessionEnded
	}
	return nil
}

// Current returns the active or most recent session.
func (o *Orchestrator) Current() (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current, o.current != nil
}

// Info describes the current session, or reports Idle if none was started.
func (o *Orchestrator) Info() SessionInfo {
	s, ok := o.Current()
	if !ok {
		return SessionInfo{State: StateIdle.String(), Totals: map[string]int{}}
	}
	return s.Info()
}

// Close stops the current session and waits for its frame loop. If ctx
// expires first, blocking source and classifier calls are cancelled.
func (o *Orchestrator) Close(ctx context.Context) error {
	if s, ok := o.Current(); ok {
		_ = o.Stop(s)
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

// finish moves s to its terminal state and publishes the terminal event.
// Holding o.mu keeps a following Start from interleaving its events.
func (o *Orchestrator) finish(s *Session, st State, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s.setState(st)
	o.publish(o.deps.Status.Final, msg)
}

// info publishes a non-terminal status message.
func (o *Orchestrator) info(msg string) {
	o.publish(o.deps.Status.Info, msg)
}

func (o *Orchestrator) publish(send func(string), msg string) {
	before := o.deps.Status.Dropped()
	send(msg)
	if o.deps.Status.Dropped() > before {
		o.metrics.IncStatusDropped()
	}
}
