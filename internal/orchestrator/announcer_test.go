package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazardwatch/internal/platform/logger"
)

func TestParseDropPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DropPolicy
		wantErr bool
	}{
		{"", DropNewest, false},
		{"drop-newest", DropNewest, false},
		{"oldest", DropOldest, false},
		{"drop-oldest", DropOldest, false},
		{"random", DropNewest, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDropPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnnouncer_drop_newest_keeps_queued(t *testing.T) {
	a := NewAnnouncer(nil, 2, DropNewest, logger.Discard(), nil)

	assert.True(t, a.Enqueue(AnnouncementRequest{Utterance: "a"}))
	assert.True(t, a.Enqueue(AnnouncementRequest{Utterance: "b"}))
	assert.False(t, a.Enqueue(AnnouncementRequest{Utterance: "c"}))

	assert.Equal(t, []string{"a", "b"}, queued(a))
	assert.Equal(t, AnnouncerStats{Queued: 2, Dropped: 1}, a.Stats())
}

func TestAnnouncer_drop_oldest_evicts(t *testing.T) {
	a := NewAnnouncer(nil, 2, DropOldest, logger.Discard(), nil)

	for _, u := range []string{"a", "b", "c", "d"} {
		assert.True(t, a.Enqueue(AnnouncementRequest{Utterance: u}))
	}

	assert.Equal(t, []string{"c", "d"}, queued(a))
	assert.Equal(t, uint64(2), a.Stats().Dropped)
}

func TestAnnouncer_plays_serially_in_order(t *testing.T) {
	sp := &recordingSpeaker{block: make(chan struct{})}
	a := NewAnnouncer(sp, 4, DropNewest, logger.Discard(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	for _, u := range []string{"one", "two", "three"} {
		require.True(t, a.Enqueue(AnnouncementRequest{Utterance: u}))
	}
	close(sp.block)

	require.Eventually(t, func() bool { return len(sp.Said()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, sp.Said())
	assert.Equal(t, int32(1), sp.maxPar.Load())

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	require.NoError(t, a.Shutdown(sctx))
	assert.Equal(t, uint64(3), a.Stats().Played)
}

func TestAnnouncer_failures_are_swallowed(t *testing.T) {
	sp := &recordingSpeaker{err: errors.New("no audio device")}
	a := NewAnnouncer(sp, 4, DropNewest, logger.Discard(), nil)
	go a.Run(context.Background())

	a.Enqueue(AnnouncementRequest{Utterance: "one"})
	a.Enqueue(AnnouncementRequest{Utterance: "two"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))

	assert.Equal(t, []string{"one", "two"}, sp.Said())
	stats := a.Stats()
	assert.Equal(t, uint64(2), stats.Failed)
	assert.Zero(t, stats.Played)
}

func TestAnnouncer_shutdown_drains_pending_first(t *testing.T) {
	sp := &recordingSpeaker{}
	a := NewAnnouncer(sp, 4, DropNewest, logger.Discard(), nil)
	a.Enqueue(AnnouncementRequest{Utterance: "pending"})
	go a.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))
	assert.Equal(t, []string{"pending"}, sp.Said())

	// a second shutdown returns once the worker is gone
	require.NoError(t, a.Shutdown(ctx))
}

func TestAnnouncer_shutdown_times_out(t *testing.T) {
	sp := &recordingSpeaker{block: make(chan struct{})}
	defer close(sp.block)
	a := NewAnnouncer(sp, 1, DropNewest, logger.Discard(), nil)
	go a.Run(context.Background())
	a.Enqueue(AnnouncementRequest{Utterance: "long"})
	require.Eventually(t, func() bool { return sp.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Shutdown(ctx), context.DeadlineExceeded)
}

func TestAnnouncer_drop_oldest_never_evicts_shutdown(t *testing.T) {
	sp := &recordingSpeaker{block: make(chan struct{})}
	a := NewAnnouncer(sp, 1, DropOldest, logger.Discard(), nil)
	go a.Run(context.Background())
	require.True(t, a.Enqueue(AnnouncementRequest{Utterance: "long"}))
	require.Eventually(t, func() bool { return sp.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	shutdown := make(chan error, 1)
	go func() { shutdown <- a.Shutdown(ctx) }()
	require.Eventually(t, func() bool { return len(a.queue) == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, a.Enqueue(AnnouncementRequest{Utterance: "late"}))
	close(sp.block)

	require.NoError(t, <-shutdown)
	assert.Equal(t, []string{"long"}, sp.Said())
	assert.Equal(t, uint64(1), a.Stats().Dropped)
}
