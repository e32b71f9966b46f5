package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"github.com/nathoo/shellquest/types"
)

// dockerAPI is the part of the docker client the executor uses.
type dockerAPI interface {
	ContainerExecCreate(ctx context.Context, container string, config dockertypes.ExecConfig) (dockertypes.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config dockertypes.ExecStartCheck) (dockertypes.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (dockertypes.ContainerExecInspect, error)
	Close() error
}

// DockerOptions configures a DockerExecutor.
type DockerOptions struct {
	Host           string // empty uses DOCKER_HOST or the default socket
	Container      string
	Timeout        time.Duration
	MaxOutputBytes int
}

// DockerExecutor runs commands inside an existing container through
// docker exec, so player commands never touch the host filesystem.
type DockerExecutor struct {
	api       dockerAPI
	container string
	timeout   time.Duration
	maxOutput int
	log       *zap.Logger
}

// NewDockerExecutor connects to the docker daemon.
func NewDockerExecutor(opts DockerOptions, log *zap.Logger) (*DockerExecutor, error) {
	if opts.Container == "" {
		return nil, errors.New("docker executor requires a container")
	}

	clientOpts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newDockerExecutor(cli, opts, log), nil
}

func newDockerExecutor(api dockerAPI, opts DockerOptions, log *zap.Logger) *DockerExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := opts.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	return &DockerExecutor{
		api:       api,
		container: opts.Container,
		timeout:   timeout,
		maxOutput: maxOutput,
		log:       log,
	}
}

// Execute runs `sh -c command` in the container with dir as the working
// directory.
func (e *DockerExecutor) Execute(ctx context.Context, command, dir string) (types.ExecResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	created, err := e.api.ContainerExecCreate(execCtx, e.container, dockertypes.ExecConfig{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"sh", "-c", command},
		WorkingDir:   dir,
	})
	if err != nil {
		return types.ExecResult{}, e.wrap(execCtx, command, fmt.Errorf("failed to create exec: %w", err))
	}

	attach, err := e.api.ContainerExecAttach(execCtx, created.ID, dockertypes.ExecStartCheck{})
	if err != nil {
		return types.ExecResult{}, e.wrap(execCtx, command, fmt.Errorf("failed to attach exec: %w", err))
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdout, max: int64(e.maxOutput)}
	stderrLimited := &limitedWriter{w: &stderr, max: int64(e.maxOutput)}

	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdoutLimited, stderrLimited, attach.Reader)
		copied <- err
	}()

	select {
	case err = <-copied:
	case <-execCtx.Done():
		attach.Close()
		<-copied
		res := types.ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		return res, e.wrap(execCtx, command, execCtx.Err())
	}

	res := types.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		return res, e.wrap(execCtx, command, fmt.Errorf("failed to read exec output: %w", err))
	}

	inspect, err := e.api.ContainerExecInspect(execCtx, created.ID)
	if err != nil {
		return res, e.wrap(execCtx, command, fmt.Errorf("failed to inspect exec: %w", err))
	}
	res.ExitCode = inspect.ExitCode

	e.log.Debug("container command completed",
		zap.String("container", e.container),
		zap.String("command", command),
		zap.Int("exit", res.ExitCode),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// wrap classifies err using the state of ctx.
func (e *DockerExecutor) wrap(ctx context.Context, command string, err error) error {
	kind := KindBackend
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		kind = KindCanceled
	}
	e.log.Warn("container command failed",
		zap.String("container", e.container),
		zap.String("command", command),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return &ExecutionError{Kind: kind, Command: command, Err: err}
}

// Close releases the docker client.
func (e *DockerExecutor) Close() error {
	return e.api.Close()
}
