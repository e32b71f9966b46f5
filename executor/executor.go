// Package executor runs shell commands on behalf of the quest engine.
// A non-zero exit status is reported in the result, not as an error;
// errors mean the command could not be run to completion at all.
package executor

import (
	"context"
	"fmt"

	"github.com/nathoo/shellquest/types"
)

// Executor runs one command in a working directory.
type Executor interface {
	Execute(ctx context.Context, command, dir string) (types.ExecResult, error)
}

// Func adapts a plain function to the Executor interface.
type Func func(ctx context.Context, command, dir string) (types.ExecResult, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, command, dir string) (types.ExecResult, error) {
	return f(ctx, command, dir)
}

// ErrorKind classifies an ExecutionError.
type ErrorKind string

const (
	KindTimeout  ErrorKind = "timeout"
	KindCanceled ErrorKind = "canceled"
	KindSpawn    ErrorKind = "spawn"
	KindBlocked  ErrorKind = "blocked"
	KindBackend  ErrorKind = "backend"
)

// ExecutionError is returned when a command could not be run.
type ExecutionError struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", e.Kind, e.Command)
	}
	return fmt.Sprintf("%s: %q: %v", e.Kind, e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
