package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nathoo/shellquest/engine/save"
	"github.com/nathoo/shellquest/types"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Player   string
}

// RedisStore keeps the encoded progress under a per-player key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisStore(client, opts.Player), nil
}

func newRedisStore(client *redis.Client, player string) *RedisStore {
	return &RedisStore{client: client, key: RedisKey(player)}
}

// RedisKey returns the key holding a player's progress.
func RedisKey(player string) string {
	return "shellquest:progress:" + player
}

// Load fetches and decodes the player's key.
func (s *RedisStore) Load(ctx context.Context) (*types.Progress, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return save.Decode(data)
}

// Save overwrites the player's key. No expiry is set.
func (s *RedisStore) Save(ctx context.Context, p *types.Progress) error {
	data, err := save.Encode(p)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
