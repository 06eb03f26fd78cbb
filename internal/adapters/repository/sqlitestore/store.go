// Package sqlitestore provides the SQLite-backed game log and roster.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/courttime/internal/adapters/repository"
	"github.com/okian/courttime/internal/adapters/repository/sqlitestore/migrations"
	"github.com/okian/courttime/internal/domain/model"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists the game log in SQLite.
type Store struct {
	sqlDB  *sql.DB
	closed atomic.Bool
}

var _ repository.Store = (*Store)(nil)

func toNanos(value time.Time) int64 {
	return value.UnixNano()
}

func fromNanos(value int64) time.Time {
	return time.Unix(0, value)
}

// Open opens (creating if needed) a SQLite store at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	// Query parameters carry the pragmas below.
	if strings.ContainsRune(path, '?') {
		return nil, fmt.Errorf("storage path %q must not contain '?'", path)
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle. Later calls are no-ops.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil || s.closed.Load() {
		return repository.ErrStoreClosed
	}
	return nil
}

// Append inserts events in one transaction.
func (s *Store) Append(ctx context.Context, events ...model.Event) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	for _, e := range events {
		if err := repository.Validate(e); err != nil {
			return err
		}
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	for _, e := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, timestamp, event_type, player) VALUES (?, ?, ?, ?)`,
			e.ID, toNanos(e.Time), string(e.Kind), e.Player,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s event: %w", e.Kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// All returns every event.
func (s *Store) All(ctx context.Context) ([]model.Event, error) {
	return s.query(ctx, `SELECT seq, id, timestamp, event_type, player FROM events`)
}

// PlayerEvents returns the check-in/check-out events of player.
func (s *Store) PlayerEvents(ctx context.Context, player int) ([]model.Event, error) {
	return s.query(ctx,
		`SELECT seq, id, timestamp, event_type, player FROM events
		 WHERE player = ? AND event_type IN (?, ?)`,
		player, string(model.CheckIn), string(model.CheckOut),
	)
}

// ClockEvents returns the start/stop events.
func (s *Store) ClockEvents(ctx context.Context) ([]model.Event, error) {
	return s.query(ctx,
		`SELECT seq, id, timestamp, event_type, player FROM events
		 WHERE event_type IN (?, ?)`,
		string(model.Start), string(model.Stop),
	)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			e    model.Event
			ts   int64
			kind string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &ts, &kind, &e.Player); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Time = fromNanos(ts)
		e.Kind = model.Kind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Reset deletes every event.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("reset events: %w", err)
	}
	return nil
}

// IsEmpty reports whether the log has no events.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM events LIMIT 1`).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe events: %w", err)
	}
	return false, nil
}

// SaveRoster inserts entries in one transaction.
func (s *Store) SaveRoster(ctx context.Context, entries []model.RosterEntry) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_info (number, name) VALUES (?, ?)`, e.Number, e.Name,
		); err != nil {
			_ = tx.Rollback()
			if isUniqueViolation(err) {
				return repository.DuplicateNumber(e.Number)
			}
			return fmt.Errorf("insert roster entry %d: %w", e.Number, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}

// Roster returns every roster entry keyed by number.
func (s *Store) Roster(ctx context.Context) (map[int]model.RosterEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT number, name FROM team_info`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	out := make(map[int]model.RosterEntry)
	for rows.Next() {
		var e model.RosterEntry
		if err := rows.Scan(&e.Number, &e.Name); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		out[e.Number] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return out, nil
}

// ResetRoster deletes every roster entry.
func (s *Store) ResetRoster(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM team_info`); err != nil {
		return fmt.Errorf("reset roster: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}
