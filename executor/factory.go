package executor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/config"
)

// New builds the executor selected by cfg. In safe mode the executor is
// wrapped with DefaultPolicy.
func New(cfg config.ExecutorConfig, log *zap.Logger) (Executor, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var inner Executor
	switch cfg.Kind {
	case config.ExecutorShell, "":
		sh := NewShellExecutor(log)
		sh.Timeout = cfg.Timeout
		sh.MaxOutputBytes = cfg.MaxOutputBytes
		inner = sh
	case config.ExecutorDocker:
		d, err := NewDockerExecutor(DockerOptions{
			Host:           cfg.DockerHost,
			Container:      cfg.DockerContainer,
			Timeout:        cfg.Timeout,
			MaxOutputBytes: cfg.MaxOutputBytes,
		}, log)
		if err != nil {
			return nil, err
		}
		inner = d
	default:
		return nil, fmt.Errorf("unknown executor kind %q", cfg.Kind)
	}

	if cfg.SafeMode {
		return Guarded(inner, DefaultPolicy(), log), nil
	}
	return inner, nil
}

// Close releases executor resources, if any.
func Close(e Executor) error {
	switch v := e.(type) {
	case *DockerExecutor:
		return v.Close()
	case *GuardedExecutor:
		return Close(v.inner)
	}
	return nil
}
