// Package hazardlog persists hazard detections. Stores implement
// orchestrator.Sink for the frame loop and Reader for the dashboard and CLI.
package hazardlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"hazardwatch/internal/orchestrator"
	"hazardwatch/internal/platform/config"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported LOG_BACKEND.
	ErrUnknownBackend = errors.New("unknown log backend")

	// ErrMissingDSN is returned when the postgres backend has no DATABASE_URL.
	ErrMissingDSN = errors.New("DATABASE_URL is required for the postgres backend")
)

// Reader queries logged detections.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]orchestrator.LogRecord, error)
	CountByLabel(ctx context.Context) (map[string]int, error)
}

// Store is a hazard log backend.
type Store interface {
	orchestrator.Sink
	Reader
	io.Closer
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*orchestrator.MemorySink)(nil)
)

// Open returns the store selected by s.LogBackend: sqlite, postgres, redis
// or memory.
func Open(ctx context.Context, s config.Settings) (Store, error) {
	switch strings.ToLower(s.LogBackend) {
	case "", "sqlite":
		return OpenSQLite(ctx, s.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, s.DatabaseURL)
	case "redis":
		return OpenRedis(ctx, s.RedisAddr, s.RedisStream)
	case "memory":
		return orchestrator.NewMemorySink(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.LogBackend)
}

// Summary is the per-label total of logged detections, in label order.
type Summary struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summarize returns totals for every label in labels (zero included),
// followed by any other labels found in the log.
func Summarize(ctx context.Context, r Reader, labels []string) ([]Summary, error) {
	counts, err := r.CountByLabel(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(counts)+len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		out = append(out, Summary{Label: l, Count: counts[l]})
		seen[l] = true
	}
	var extra []string
	for l := range counts {
		if !seen[l] {
			extra = append(extra, l)
		}
	}
	sort.Strings(extra)
	for _, l := range extra {
		out = append(out, Summary{Label: l, Count: counts[l]})
	}
	return out, nil
}
