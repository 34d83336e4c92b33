// Package storage persists user settings and the history of completed
// work, break and activity intervals.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"blinkbreak/internal/core/model"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

//go:embed migrations_postgres.sql
var postgresMigrations string

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// IntervalKind classifies a stored interval.
type IntervalKind string

const (
	IntervalWork     IntervalKind = "work"
	IntervalBreak    IntervalKind = "break"
	IntervalActivity IntervalKind = "activity"
)

// Interval is one completed work phase, break or activity.
type Interval struct {
	ID              int64
	SessionID       string
	Kind            IntervalKind
	Activity        model.ActivityKind
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds float64
}

// Summary aggregates the whole history.
type Summary struct {
	Sessions    int
	WorkSeconds float64
	Activities  map[model.ActivityKind]int
}

// Store is an append-only interval history.
type Store interface {
	Add(ctx context.Context, interval Interval) error
	Recent(ctx context.Context, limit int) ([]Interval, error)
	Summary(ctx context.Context) (Summary, error)
	Close() error
}

// Open returns the store for driver. DriverNone yields a nil Store.
func Open(driver, dsn string, logger *zap.Logger) (Store, error) {
	var (
		store *SQLStore
		err   error
	)
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		store, err = NewSQLiteStore(dsn, logger)
	case DriverPostgres:
		store, err = NewPostgresStore(dsn, logger)
	case DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db         *sql.DB
	logger     *zap.Logger
	positional bool
}

// NewSQLiteStore opens the SQLite database file at dsn, creating its
// directory if needed, and applies migrations.
func NewSQLiteStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps writes serialised and :memory: coherent.
	db.SetMaxOpenConns(1)
	return newSQLStore(db, sqliteMigrations, false, logger)
}

// NewPostgresStore connects to dsn and applies migrations.
func NewPostgresStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	return newSQLStore(db, postgresMigrations, true, logger)
}

func newSQLStore(db *sql.DB, migrations string, positional bool, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Debug("interval store ready", zap.Bool("postgres", positional))
	return &SQLStore{db: db, logger: logger, positional: positional}, nil
}

// Add inserts interval.
func (s *SQLStore) Add(ctx context.Context, interval Interval) error {
	_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO intervals
		(session_id, kind, activity, started_at, ended_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?)`),
		interval.SessionID,
		string(interval.Kind),
		string(interval.Activity),
		interval.StartedAt.UTC(),
		interval.EndedAt.UTC(),
		interval.DurationSeconds,
	)
	if err != nil {
		s.logger.Error("interval insert failed", zap.String("kind", string(interval.Kind)), zap.Error(err))
		return fmt.Errorf("insert %s interval: %w", interval.Kind, err)
	}
	return nil
}

// Recent returns up to limit intervals, newest first.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]Interval, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT id, session_id, kind, activity, started_at, ended_at, duration_seconds
		FROM intervals ORDER BY ended_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	var intervals []Interval
	for rows.Next() {
		var interval Interval
		var kind, activity string
		if err := rows.Scan(&interval.ID, &interval.SessionID, &kind, &activity,
			&interval.StartedAt, &interval.EndedAt, &interval.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan interval row: %w", err)
		}
		interval.Kind = IntervalKind(kind)
		interval.Activity = model.ActivityKind(activity)
		intervals = append(intervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interval rows: %w", err)
	}
	return intervals, nil
}

// Summary counts completed sessions and activities.
func (s *SQLStore) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{Activities: map[model.ActivityKind]int{}}

	row := s.db.QueryRowContext(ctx, s.bind(`SELECT COUNT(*) FROM intervals WHERE kind = ?`), string(IntervalBreak))
	if err := row.Scan(&summary.Sessions); err != nil {
		return summary, fmt.Errorf("count sessions: %w", err)
	}
	row = s.db.QueryRowContext(ctx, s.bind(`SELECT COALESCE(SUM(duration_seconds), 0) FROM intervals WHERE kind = ?`), string(IntervalWork))
	if err := row.Scan(&summary.WorkSeconds); err != nil {
		return summary, fmt.Errorf("sum work time: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT activity, COUNT(*) FROM intervals WHERE kind = ? GROUP BY activity`), string(IntervalActivity))
	if err != nil {
		return summary, fmt.Errorf("count activities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var activity string
		var count int
		if err := rows.Scan(&activity, &count); err != nil {
			return summary, fmt.Errorf("scan activity count: %w", err)
		}
		summary.Activities[model.ActivityKind(activity)] = count
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate activity counts: %w", err)
	}
	return summary, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// bind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) bind(query string) string {
	if !s.positional {
		return query
	}
	var builder strings.Builder
	index := 0
	for _, r := range query {
		if r == '?' {
			index++
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(index))
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
