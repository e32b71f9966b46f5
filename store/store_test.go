package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/shellquest/config"
	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/types"
)

func sampleProgress() *types.Progress {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := state.NewProgress(now)
	p.RunID = "run-1"
	p.CurrentLevel = 2
	p.Score = 25
	p.Completed = []string{"l1", "l2"}
	p.HintsUsed["l2"] = 1
	p.Stats.LevelsCompleted = 2
	return p
}

// exercise runs the shared contract against any backend.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	p := sampleProgress()
	require.NoError(t, s.Save(ctx, p))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.RunID, got.RunID)
	assert.Equal(t, p.CurrentLevel, got.CurrentLevel)
	assert.Equal(t, p.Score, got.Score)
	assert.Equal(t, p.Completed, got.Completed)
	assert.Equal(t, p.HintsUsed, got.HintsUsed)
	assert.True(t, p.StartedAt.Equal(got.StartedAt))

	p.Score = 40
	require.NoError(t, s.Save(ctx, p))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Score)
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestMemoryStoreIsolatesCaller(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	p := sampleProgress()
	require.NoError(t, m.Save(ctx, p))

	p.Completed = append(p.Completed, "l3")
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2"}, got.Completed)
	assert.Equal(t, 1, m.Saves())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "progress.json")
	exercise(t, NewFileStore(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "progress.json", entries[0].Name())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "progress.db"), "alice")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	exercise(t, s)
}

func TestSQLiteStorePlayersAreSeparate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	alice, err := NewSQLiteStore(ctx, path, "alice")
	require.NoError(t, err)
	t.Cleanup(func() { alice.Close() })
	bob, err := NewSQLiteStore(ctx, path, "bob")
	require.NoError(t, err)
	t.Cleanup(func() { bob.Close() })

	p := sampleProgress()
	require.NoError(t, alice.Save(ctx, p))

	_, err = bob.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	p.Score = 5
	require.NoError(t, bob.Save(ctx, p))

	board, err := alice.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []LeaderboardEntry{
		{Player: "alice", Score: 25},
		{Player: "bob", Score: 5},
	}, board)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("QUEST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QUEST_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	player := "test-" + time.Now().Format("150405.000000")
	s, err := NewRedisStore(ctx, RedisOptions{Address: addr, Player: player})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.client.Del(context.Background(), RedisKey(player))
		s.Close()
	})

	exercise(t, s)
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "shellquest:progress:alice", RedisKey("alice"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		kind    string
		want    any
		wantErr bool
	}{
		{kind: "", want: &FileStore{}},
		{kind: config.StoreFile, want: &FileStore{}},
		{kind: config.StoreMemory, want: &MemoryStore{}},
		{kind: config.StoreSQLite, want: &SQLiteStore{}},
		{kind: "floppy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := config.StoreConfig{
				Kind:         tt.kind,
				ProgressFile: filepath.Join(dir, "progress.json"),
				SQLitePath:   filepath.Join(dir, "progress.db"),
			}
			s, err := Open(ctx, cfg, "alice", nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { Close(s) })
			assert.IsType(t, tt.want, s)
		})
	}
}
