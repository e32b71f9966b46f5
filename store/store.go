// Package store persists player progress between runs. Every backend
// stores the save.Encode form of the record.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/config"
	"github.com/nathoo/shellquest/types"
)

// ErrNotFound is returned by Load when no progress has been saved yet.
var ErrNotFound = errors.New("progress not found")

// Store is the persistence port used by the quest engine.
type Store interface {
	// Load returns the saved progress, or ErrNotFound.
	Load(ctx context.Context) (*types.Progress, error)

	// Save persists the progress, replacing any previous record.
	Save(ctx context.Context, p *types.Progress) error
}

// Closer is implemented by stores holding a connection.
type Closer interface {
	Close() error
}

// Open creates the store selected by the configuration.
func Open(ctx context.Context, cfg config.StoreConfig, player string, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("opening progress store", zap.String("kind", cfg.Kind), zap.String("player", player))

	switch cfg.Kind {
	case config.StoreFile, "":
		return NewFileStore(cfg.ProgressFile), nil
	case config.StoreSQLite:
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath, player)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreRedis:
		s, err := NewRedisStore(ctx, RedisOptions{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Player:   player,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// Close closes the store if it holds resources.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
