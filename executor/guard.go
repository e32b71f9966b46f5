package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/types"
)

// Policy filters commands before they reach the shell. It keeps
// beginners away from obviously destructive commands; it is not a
// sandbox.
type Policy struct {
	Allowed map[string]bool // base commands; empty allows any
	Blocked []*regexp.Regexp
}

// DefaultPolicy returns the allowlist and blocked patterns used in safe
// mode.
func DefaultPolicy() Policy {
	allowed := []string{
		"ls", "cat", "find", "grep", "head", "tail", "wc", "sort", "uniq",
		"mkdir", "touch", "cp", "mv", "rm", "chmod", "chown", "ln",
		"tar", "gzip", "gunzip", "zip", "unzip", "pwd", "cd", "echo",
		"which", "whoami", "date", "df", "du", "ps", "top", "kill",
	}
	blocked := []string{
		`sudo\s+`,
		`rm\s+.*-rf\s+/`,
		`>\s*/dev/`,
		`format\s+`,
		`fdisk\s+`,
		`mkfs\s+`,
		`dd\s+.*of=`,
		`rm\s+.*\*`,
		`curl\s+.*\|\s*sh`,
		`wget\s+.*\|\s*sh`,
		`python\s+.*-c.*exec`,
		`eval\s+`,
		`exec\s+`,
	}

	p := Policy{Allowed: make(map[string]bool, len(allowed))}
	for _, name := range allowed {
		p.Allowed[name] = true
	}
	for _, expr := range blocked {
		p.Blocked = append(p.Blocked, regexp.MustCompile(`(?i)`+expr))
	}
	return p
}

// Check returns a non-nil error describing why command is refused.
func (p Policy) Check(command string) error {
	for _, re := range p.Blocked {
		if re.MatchString(command) {
			return fmt.Errorf("matches blocked pattern %s", re)
		}
	}
	if len(p.Allowed) == 0 {
		return nil
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return fmt.Errorf("empty command")
	}
	if !p.Allowed[fields[0]] {
		return fmt.Errorf("%s is not an allowed command", fields[0])
	}
	return nil
}

// GuardedExecutor applies a Policy in front of another executor.
type GuardedExecutor struct {
	inner  Executor
	policy Policy
	log    *zap.Logger
}

// Guarded wraps inner with policy.
func Guarded(inner Executor, policy Policy, log *zap.Logger) *GuardedExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &GuardedExecutor{inner: inner, policy: policy, log: log}
}

// Execute refuses commands the policy rejects and runs the rest.
func (g *GuardedExecutor) Execute(ctx context.Context, command, dir string) (types.ExecResult, error) {
	if err := g.policy.Check(command); err != nil {
		g.log.Warn("command blocked", zap.String("command", command), zap.Error(err))
		return types.ExecResult{ExitCode: -1, Stderr: "Command blocked for security reasons"},
			&ExecutionError{Kind: KindBlocked, Command: command, Err: err}
	}
	return g.inner.Execute(ctx, command, dir)
}
