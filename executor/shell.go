package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/types"
)

// Defaults for ShellExecutor.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxOutputBytes = 1 << 20
)

// ShellExecutor runs commands with `sh -c` on the host. It provides no
// isolation.
type ShellExecutor struct {
	Shell          string
	Timeout        time.Duration
	MaxOutputBytes int
	Env            []string // appended to the inherited environment
	Logger         *zap.Logger
}

// NewShellExecutor creates a shell executor with default limits.
func NewShellExecutor(log *zap.Logger) *ShellExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShellExecutor{
		Shell:          "sh",
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
		Logger:         log,
	}
}

// Execute runs the command and captures its output.
func (e *ShellExecutor) Execute(ctx context.Context, command, dir string) (types.ExecResult, error) {
	log := e.logger()
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := e.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	shell := e.Shell
	if shell == "" {
		shell = "sh"
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, shell, "-c", command)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, max: int64(maxOutput)}
	stderrLimited := &limitedWriter{w: &stderr, max: int64(maxOutput)}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	log.Debug("executing command", zap.String("command", command), zap.String("dir", dir))
	start := time.Now()
	err := cmd.Run()
	res := types.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if stdoutLimited.truncated || stderrLimited.truncated {
		log.Warn("command output truncated",
			zap.String("command", command),
			zap.Int64("discarded", stdoutLimited.discarded+stderrLimited.discarded))
	}

	if err != nil {
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			log.Warn("command timed out", zap.String("command", command), zap.Duration("timeout", timeout))
			return res, &ExecutionError{Kind: KindTimeout, Command: command, Err: execCtx.Err()}
		case errors.Is(execCtx.Err(), context.Canceled):
			return res, &ExecutionError{Kind: KindCanceled, Command: command, Err: execCtx.Err()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			log.Debug("command exited non-zero", zap.String("command", command), zap.Int("exit", res.ExitCode))
			return res, nil
		}
		log.Error("command failed to start", zap.String("command", command), zap.Error(err))
		return res, &ExecutionError{Kind: KindSpawn, Command: command, Err: err}
	}

	log.Debug("command completed",
		zap.String("command", command),
		zap.Duration("duration", res.Duration),
		zap.Int("stdout_bytes", len(res.Stdout)))
	return res, nil
}

func (e *ShellExecutor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// limitedWriter keeps at most max bytes and silently drops the rest.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
