package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nathoo/shellquest/engine/save"
	"github.com/nathoo/shellquest/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS progress (
	player     TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	score      INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);`

// SQLiteStore keeps one progress row per player in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	player string
}

// NewSQLiteStore opens (and creates if missing) the database and ensures
// the schema exists.
func NewSQLiteStore(ctx context.Context, path, player string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db, player: player}, nil
}

// Load reads the player's row.
func (s *SQLiteStore) Load(ctx context.Context) (*types.Progress, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM progress WHERE player = ?`, s.player).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return save.Decode([]byte(data))
}

// Save upserts the player's row.
func (s *SQLiteStore) Save(ctx context.Context, p *types.Progress) error {
	data, err := save.Encode(p)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (player, data, score, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(player) DO UPDATE SET
			data = excluded.data,
			score = excluded.score,
			updated_at = excluded.updated_at`,
		s.player, string(data), p.Score, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Leaderboard returns player names and scores, highest first.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player, score FROM progress ORDER BY score DESC, player ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Player, &e.Score); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LeaderboardEntry is one row of the leaderboard.
type LeaderboardEntry struct {
	Player string
	Score  int
}
