package orchestrator

import (
	"context"
	"sync"
)

// MemorySink is an in-memory Sink. It backs the "memory" log backend and the
// tests; records are lost when the process exits.
type MemorySink struct {
	mu      sync.RWMutex
	records []LogRecord
	nextID  int64
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{nextID: 1}
}

// Append implements Sink.Append, assigning increasing ids.
func (s *MemorySink) Append(_ context.Context, rec LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of every record in append order.
func (s *MemorySink) Records() []LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LogRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Recent returns up to limit records, newest first.
func (s *MemorySink) Recent(_ context.Context, limit int) ([]LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]LogRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// CountByLabel returns the number of records per label.
func (s *MemorySink) CountByLabel(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, r := range s.records {
		out[r.Label]++
	}
	return out, nil
}

// Close implements io.Closer; it is a no-op.
func (s *MemorySink) Close() error { return nil }
