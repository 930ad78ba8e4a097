package hazardlog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"hazardwatch/internal/orchestrator"
)

// RedisStore appends the hazard log to a Redis stream. Per-label totals are
// kept in a hash next to it and ids come from a counter key.
type RedisStore struct {
	rdb    *redis.Client
	stream string
}

// NewRedisStore returns a store writing to stream on rdb.
func NewRedisStore(rdb *redis.Client, stream string) *RedisStore {
	return &RedisStore{rdb: rdb, stream: stream}
}

// OpenRedis connects to addr and checks the connection.
func OpenRedis(ctx context.Context, addr, stream string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb, stream), nil
}

func (s *RedisStore) seqKey() string   { return s.stream + ":seq" }
func (s *RedisStore) countsKey() string { return s.stream + ":counts" }

// Append adds rec to the stream and bumps its label total.
func (s *RedisStore) Append(ctx context.Context, rec orchestrator.LogRecord) error {
	id, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("next hazard id: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			Values: map[string]any{
				"id":          id,
				"hazard_name": rec.Label,
				"confidence":  strconv.FormatFloat(rec.Confidence, 'f', -1, 64),
				"timestamp":   formatTime(rec.Timestamp),
				"source":      rec.Source,
			},
		})
		pipe.HIncrBy(ctx, s.countsKey(), rec.Label, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append hazard: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 means all.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]orchestrator.LogRecord, error) {
	var msgs []redis.XMessage
	var err error
	if limit > 0 {
		msgs, err = s.rdb.XRevRangeN(ctx, s.stream, "+", "-", int64(limit)).Result()
	} else {
		msgs, err = s.rdb.XRevRange(ctx, s.stream, "+", "-").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("read hazards: %w", err)
	}

	out := make([]orchestrator.LogRecord, 0, len(msgs))
	for _, m := range msgs {
		rec, err := decodeMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeMessage(m redis.XMessage) (orchestrator.LogRecord, error) {
	field := func(k string) string {
		v, _ := m.Values[k].(string)
		return v
	}
	var rec orchestrator.LogRecord
	var err error
	if rec.ID, err = strconv.ParseInt(field("id"), 10, 64); err != nil {
		return rec, fmt.Errorf("hazard %s: bad id: %w", m.ID, err)
	}
	if rec.Confidence, err = strconv.ParseFloat(field("confidence"), 64); err != nil {
		return rec, fmt.Errorf("hazard %s: bad confidence: %w", m.ID, err)
	}
	if rec.Timestamp, err = parseTime(field("timestamp")); err != nil {
		return rec, fmt.Errorf("hazard %s: bad timestamp: %w", m.ID, err)
	}
	rec.Label = field("hazard_name")
	rec.Source = field("source")
	return rec, nil
}

// CountByLabel returns the per-label totals.
func (s *RedisStore) CountByLabel(ctx context.Context) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, s.countsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("count hazards: %w", err)
	}
	out := make(map[string]int, len(raw))
	for label, v := range raw {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("count for %s: %w", label, err)
		}
		out[label] = n
	}
	return out, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
