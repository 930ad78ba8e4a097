package hazardlog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"hazardwatch/internal/orchestrator"
)

//go:embed migrations
var migrations embed.FS

// TimeLayout is how detection times are stored: RFC 3339 with the local
// offset and full sub-second precision.
const TimeLayout = time.RFC3339Nano

// SQLStore keeps the hazard log in a SQL table named hazard_log.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, goose.DialectSQLite3, "migrations/sqlite", false)
}

// OpenPostgres connects to the database at url and applies pending migrations.
func OpenPostgres(ctx context.Context, url string) (*SQLStore, error) {
	if url == "" {
		return nil, fmt.Errorf("open postgres: %w", ErrMissingDSN)
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return newSQLStore(ctx, db, goose.DialectPostgres, "migrations/postgres", true)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string, postgres bool) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(ctx, db, dialect, dir); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, postgres: postgres}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append inserts rec; the database assigns the id.
func (s *SQLStore) Append(ctx context.Context, rec orchestrator.LogRecord) error {
	q := s.rebind(`INSERT INTO hazard_log (hazard_name, confidence, timestamp, source) VALUES (?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, q,
		rec.Label, rec.Confidence, formatTime(rec.Timestamp), rec.Source)
	if err != nil {
		return fmt.Errorf("insert hazard: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit <= 0 means all.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]orchestrator.LogRecord, error) {
	q := `SELECT id, hazard_name, confidence, timestamp, source FROM hazard_log ORDER BY id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query hazards: %w", err)
	}
	defer rows.Close()

	var out []orchestrator.LogRecord
	for rows.Next() {
		var rec orchestrator.LogRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.Confidence, &ts, &rec.Source); err != nil {
			return nil, fmt.Errorf("scan hazard: %w", err)
		}
		rec.Timestamp, err = parseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("parse hazard time %q: %w", ts, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByLabel returns the number of logged detections per label.
func (s *SQLStore) CountByLabel(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hazard_name, COUNT(*) FROM hazard_log GROUP BY hazard_name`)
	if err != nil {
		return nil, fmt.Errorf("count hazards: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[label] = n
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
