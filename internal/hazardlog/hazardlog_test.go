package hazardlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazardwatch/internal/orchestrator"
	"hazardwatch/internal/platform/config"
)

var detectedAt = time.Date(2025, 6, 1, 8, 30, 15, 0, time.Local)

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for i, l := range []string{"car", "person", "car"} {
		require.NoError(t, s.Append(ctx, orchestrator.LogRecord{
			Label:      l,
			Confidence: 0.5 + float64(i)/10,
			Timestamp:  detectedAt.Add(time.Duration(i) * time.Second),
			Source:     "road.mp4",
		}))
	}
}

func assertSeeded(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "car", recent[0].Label)
	assert.Equal(t, int64(3), recent[0].ID)
	assert.InDelta(t, 0.7, recent[0].Confidence, 1e-9)
	assert.True(t, detectedAt.Add(2*time.Second).Equal(recent[0].Timestamp))
	assert.Equal(t, "road.mp4", recent[0].Source)
	assert.Equal(t, "person", recent[1].Label)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	counts, err := s.CountByLabel(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"car": 2, "person": 1}, counts)
}

func TestSQLStore_sqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hazards.db")
	s, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	seed(t, s)
	assertSeeded(t, s)
}

func TestSQLStore_sqlite_reopen_keeps_rows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hazards.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	seed(t, s)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	assertSeeded(t, s)
}

func TestSQLStore_rebind(t *testing.T) {
	pg := &SQLStore{postgres: true}
	assert.Equal(t, "VALUES ($1, $2) LIMIT $3", pg.rebind("VALUES (?, ?) LIMIT ?"))

	lite := &SQLStore{}
	assert.Equal(t, "VALUES (?, ?)", lite.rebind("VALUES (?, ?)"))
}

func TestOpenPostgres_requires_url(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingDSN)
}

func newMiniredisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), mr.Addr(), "hazards:log")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	s := newMiniredisStore(t)
	seed(t, s)
	assertSeeded(t, s)
}

func assertSubSecondKept(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 12, 0, 0, 700_000_000, time.Local)
	at := start.Add(100 * time.Millisecond)
	require.NoError(t, s.Append(ctx, orchestrator.LogRecord{Label: "car", Confidence: 0.8, Timestamp: at, Source: "0"}))

	recent, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].Timestamp.Before(start), "stored %s precedes session start %s", recent[0].Timestamp, start)
	assert.True(t, at.Equal(recent[0].Timestamp))
}

func TestSQLStore_keeps_sub_second_time(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "hazards.db"))
	require.NoError(t, err)
	defer s.Close()
	assertSubSecondKept(t, s)
}

func TestRedisStore_keeps_sub_second_time(t *testing.T) {
	assertSubSecondKept(t, newMiniredisStore(t))
}

func TestRedisStore_empty(t *testing.T) {
	s := newMiniredisStore(t)

	recent, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	counts, err := s.CountByLabel(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestOpenRedis_unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenRedis(context.Background(), addr, "hazards:log")
	assert.Error(t, err)
}

func TestRedisStore_rejects_malformed_entry(t *testing.T) {
	s := newMiniredisStore(t)
	ctx := context.Background()
	require.NoError(t, s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: "hazards:log",
		Values: map[string]any{"id": "x"},
	}).Err())

	_, err := s.Recent(ctx, 1)
	assert.ErrorContains(t, err, "bad id")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, config.Settings{LogBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &orchestrator.MemorySink{}, mem)

	lite, err := Open(ctx, config.Settings{LogBackend: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, lite)
	require.NoError(t, lite.Close())

	_, err = Open(ctx, config.Settings{LogBackend: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestSummarize(t *testing.T) {
	mem := orchestrator.NewMemorySink()
	seed(t, mem)
	require.NoError(t, mem.Append(context.Background(), orchestrator.LogRecord{Label: "deer"}))

	got, err := Summarize(context.Background(), mem, []string{"person", "car", "truck"})
	require.NoError(t, err)
	assert.Equal(t, []Summary{
		{Label: "person", Count: 1},
		{Label: "car", Count: 2},
		{Label: "truck", Count: 0},
		{Label: "deer", Count: 1},
	}, got)
}
