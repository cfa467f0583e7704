// Package sqlite provides a SQLite-backed match history.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"tabletop/internal/ports"
	"tabletop/internal/store/sqlite/migrations"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("match record not found")
	// ErrDuplicate is returned when a record id is stored twice.
	ErrDuplicate = errors.New("match record already exists")
)

// Store persists finished matches in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite match store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record inserts one finished match with its participants.
func (s *Store) Record(ctx context.Context, rec ports.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal match record: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO match_records (id, match_id, kind, winner, winner_id, reason, started_at, ended_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MatchID, rec.Kind, rec.Winner, rec.WinnerID, rec.Reason,
		toMillis(rec.StartedAt), toMillis(rec.EndedAt), string(body),
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
		}
		return fmt.Errorf("insert match record: %w", err)
	}

	for _, p := range rec.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_participants (record_id, seat, user_id, scripted) VALUES (?, ?, ?, ?)`,
			rec.ID, p.Seat, p.UserID, p.Scripted,
		); err != nil {
			return fmt.Errorf("insert participant %d: %w", p.Seat, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match record: %w", err)
	}
	return nil
}

// Get loads one record by id.
func (s *Store) Get(ctx context.Context, id string) (ports.Record, error) {
	var body string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT body FROM match_records WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return ports.Record{}, fmt.Errorf("get match record: %w", err)
	}
	return decodeRecord(body)
}

// ListByUser returns the most recent records a user took part in, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]ports.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT r.body FROM match_records r
		 JOIN match_participants p ON p.record_id = r.id
		 WHERE p.user_id = ?
		 ORDER BY r.ended_at DESC, r.id
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list match records: %w", err)
	}
	defer rows.Close()

	var records []ports.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match records: %w", err)
	}
	return records, nil
}

// CountByReason tallies stored outcomes for one game kind.
func (s *Store) CountByReason(ctx context.Context, kind string) (map[string]int, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM match_records WHERE kind = ? GROUP BY reason`, kind)
	if err != nil {
		return nil, fmt.Errorf("count match records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}

func decodeRecord(body string) (ports.Record, error) {
	var rec ports.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return ports.Record{}, fmt.Errorf("decode match record: %w", err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ ports.MatchRecorder = (*Store)(nil)
