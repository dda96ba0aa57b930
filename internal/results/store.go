// Package results persists finished matches in SQLite for the newsroom.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"duel-arena/server/internal/results/migrations"
)

// ErrDuplicate is returned when a match id has already been recorded.
var ErrDuplicate = errors.New("match result already recorded")

// Result is one finished match.
type Result struct {
	MatchID string
	Role    string
	Winner  int
	Points  [2]int
	Hits    [2]int
	Ticks   uint32
	EndedAt time.Time
}

// NewMatchID returns a fresh random match identifier.
func NewMatchID() string {
	return uuid.NewString()
}

// Store persists results in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
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

// RecordResult inserts one finished match.
func (s *Store) RecordResult(ctx context.Context, result Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	matchID := strings.TrimSpace(result.MatchID)
	if matchID == "" {
		return fmt.Errorf("match id is required")
	}
	if result.Winner < 0 || result.Winner > 1 {
		return fmt.Errorf("winner must be 0 or 1, got %d", result.Winner)
	}
	endedAt := result.EndedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO match_results (
		   match_id,
		   role,
		   winner,
		   p1_points,
		   p2_points,
		   p1_hits,
		   p2_hits,
		   ticks,
		   ended_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		matchID,
		result.Role,
		result.Winner,
		result.Points[0],
		result.Points[1],
		result.Hits[0],
		result.Hits[1],
		int64(result.Ticks),
		toMillis(endedAt),
	)
	if err != nil {
		if isConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert match result: %w", err)
	}
	return nil
}

// ListRecent returns up to limit results, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Result, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT match_id, role, winner, p1_points, p2_points, p1_hits, p2_hits, ticks, ended_at
		 FROM match_results
		 ORDER BY ended_at DESC, match_id
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			result  Result
			ticks   int64
			endedAt int64
		)
		if err := rows.Scan(
			&result.MatchID,
			&result.Role,
			&result.Winner,
			&result.Points[0],
			&result.Points[1],
			&result.Hits[0],
			&result.Hits[1],
			&ticks,
			&endedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		result.Ticks = uint32(ticks)
		result.EndedAt = fromMillis(endedAt)
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match results: %w", err)
	}
	return out, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
