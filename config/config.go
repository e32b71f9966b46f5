// Package config loads shellquest settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for shellquest
type Config struct {
	Levels   string
	Player   string
	Store    StoreConfig
	Executor ExecutorConfig
	Game     GameConfig
	Logging  LoggingConfig
}

// StoreConfig selects and configures progress persistence
type StoreConfig struct {
	Kind          string // file, sqlite, redis, memory
	ProgressFile  string
	SQLitePath    string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
}

// ExecutorConfig configures how player commands are run
type ExecutorConfig struct {
	Kind            string // shell, docker
	WorkDir         string
	Timeout         time.Duration
	MaxOutputBytes  int
	SafeMode        bool
	DockerHost      string
	DockerContainer string
}

// GameConfig holds gameplay tuning
type GameConfig struct {
	SkipPenalty int
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Dir   string
	Level string
}

// Store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Executor kinds.
const (
	ExecutorShell  = "shell"
	ExecutorDocker = "docker"
)

// LoadEnvFile loads variables from a .env file if it exists. Variables
// already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	home := defaultHome()

	cfg := &Config{
		Levels: getEnv("QUEST_LEVELS", "levels.yaml"),
		Player: getEnv("QUEST_PLAYER", defaultPlayer()),
		Store: StoreConfig{
			Kind:          strings.ToLower(getEnv("QUEST_STORE", StoreFile)),
			ProgressFile:  getEnv("QUEST_PROGRESS_FILE", filepath.Join(home, "progress.json")),
			SQLitePath:    getEnv("QUEST_SQLITE_PATH", filepath.Join(home, "progress.db")),
			RedisAddress:  getEnv("QUEST_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("QUEST_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("QUEST_REDIS_DB", 0),
		},
		Executor: ExecutorConfig{
			Kind:            strings.ToLower(getEnv("QUEST_EXECUTOR", ExecutorShell)),
			WorkDir:         getEnv("QUEST_WORK_DIR", ""),
			Timeout:         getEnvAsDuration("QUEST_COMMAND_TIMEOUT", 30*time.Second),
			MaxOutputBytes:  getEnvAsInt("QUEST_MAX_OUTPUT_BYTES", 1<<20),
			SafeMode:        getEnvAsBool("QUEST_SAFE_MODE", true),
			DockerHost:      getEnv("QUEST_DOCKER_HOST", "unix:///var/run/docker.sock"),
			DockerContainer: getEnv("QUEST_DOCKER_CONTAINER", ""),
		},
		Game: GameConfig{
			SkipPenalty: getEnvAsInt("QUEST_SKIP_PENALTY", 5),
		},
		Logging: LoggingConfig{
			Dir:   getEnv("QUEST_LOG_DIR", "logs"),
			Level: strings.ToLower(getEnv("QUEST_LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Levels == "" {
		return fmt.Errorf("levels source is required")
	}

	switch c.Store.Kind {
	case StoreFile:
		if c.Store.ProgressFile == "" {
			return fmt.Errorf("progress file path is required for the file store")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite store")
		}
	case StoreRedis:
		if c.Store.RedisAddress == "" {
			return fmt.Errorf("redis address is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}

	switch c.Executor.Kind {
	case ExecutorShell:
	case ExecutorDocker:
		if c.Executor.DockerContainer == "" {
			return fmt.Errorf("docker executor requires QUEST_DOCKER_CONTAINER")
		}
	default:
		return fmt.Errorf("unknown executor kind %q", c.Executor.Kind)
	}

	if c.Executor.Timeout <= 0 {
		return fmt.Errorf("invalid command timeout: %s", c.Executor.Timeout)
	}
	if c.Executor.MaxOutputBytes <= 0 {
		return fmt.Errorf("invalid max output bytes: %d", c.Executor.MaxOutputBytes)
	}
	if c.Game.SkipPenalty < 0 {
		return fmt.Errorf("invalid skip penalty: %d", c.Game.SkipPenalty)
	}
	if c.Player == "" {
		return fmt.Errorf("player name is required")
	}

	return nil
}

// Helper functions

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shellquest"
	}
	return filepath.Join(home, ".shellquest")
}

func defaultPlayer() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
