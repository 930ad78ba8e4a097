package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"hazardwatch/internal/platform/metrics"
)

// appendFailure is a log record the sink refused, with the reason.
type appendFailure struct {
	rec LogRecord
	err error
}

// recorder hands LogRecords to a Sink from its own goroutine so the frame
// loop never waits on storage. Records are appended in submission order;
// the pending queue is unbounded so no record is lost to backpressure.
// Failures are collected for the frame loop to report.
type recorder struct {
	sink    Sink
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	pending  []LogRecord
	failures []appendFailure
	closed   bool

	wake chan struct{}
	done chan struct{}
}

func newRecorder(sink Sink, log *slog.Logger, m *metrics.Metrics) *recorder {
	return &recorder{
		sink:    sink,
		log:     log,
		metrics: m,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Submit queues rec for appending. It never blocks on the sink.
func (r *recorder) Submit(rec LogRecord) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending = append(r.pending, rec)
	r.mu.Unlock()
	r.signal()
}

func (r *recorder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// run appends pending records until Close has been called and the queue is empty.
func (r *recorder) run(ctx context.Context) {
	defer close(r.done)
	for {
		r.mu.Lock()
		batch := r.pending
		r.pending = nil
		closed := r.closed
		r.mu.Unlock()

		for _, rec := range batch {
			r.append(ctx, rec)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-r.wake
	}
}

func (r *recorder) append(ctx context.Context, rec LogRecord) {
	if err := r.sink.Append(ctx, rec); err != nil {
		r.metrics.IncLogAppendErrors()
		r.log.Warn("hazard log append failed", "label", rec.Label, "error", err)
		r.mu.Lock()
		r.failures = append(r.failures, appendFailure{rec: rec, err: err})
		r.mu.Unlock()
		return
	}
	r.metrics.IncLogAppended()
}

// TakeFailures returns and clears the failures collected so far.
func (r *recorder) TakeFailures() []appendFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.failures
	r.failures = nil
	return out
}

// Close flushes the queue and waits for the worker to exit.
func (r *recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.signal()
	<-r.done
}
