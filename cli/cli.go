// Package cli provides the plain line-driven play loop: terminal I/O,
// output formatting, and meta-command dispatch for the quest engine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nathoo/shellquest/engine"
	"github.com/nathoo/shellquest/engine/parser"
	"github.com/nathoo/shellquest/types"
)

// DefaultIntro is shown before the first level.
const DefaultIntro = `Welcome to Shell Quest!
Type shell commands to solve each challenge. Type /help for quest commands.`

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	Intro     string
	Prompt    string
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine: eng,
		In:     os.Stdin,
		Out:    os.Stdout,
		Intro:  DefaultIntro,
		Prompt: "$ ",
	}
}

// Run starts the quest and loops: prompt, input, dispatch, output. It
// returns when the player quits or input ends. Pending level cleanup runs
// before it returns.
func (c *CLI) Run(ctx context.Context) (err error) {
	if c.Intro != "" {
		c.printLine(c.Intro)
	}

	if c.Engine.State() == engine.NotStarted {
		res, err := c.Engine.Start(ctx)
		if err != nil {
			return err
		}
		c.printResult(res)
	} else {
		c.printLines(c.Engine.Present())
	}
	defer func() {
		if cerr := c.Engine.Close(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()

	scanner := bufio.NewScanner(c.In)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.print(c.Prompt)
		if !scanner.Scan() {
			break
		}
		in := parser.Parse(scanner.Text())
		switch in.Kind {
		case types.InputEmpty, types.InputComment:
			continue
		}
		if c.EchoInput {
			c.printLine(in.Raw)
		}

		if in.Kind == types.InputMeta {
			quit, err := c.handleMeta(ctx, in)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		res, err := c.Engine.Submit(ctx, in.Raw)
		if err := c.report(res, err); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// handleMeta dispatches meta-commands. Returns true if the player quit.
func (c *CLI) handleMeta(ctx context.Context, in types.Input) (bool, error) {
	var (
		res types.Result
		err error
	)
	switch in.Verb {
	case parser.VerbQuit:
		c.printSystem("Goodbye. Your progress is saved.")
		return true, nil

	case parser.VerbHint:
		res, err = c.Engine.Hint(ctx)

	case parser.VerbSkip:
		res, err = c.Engine.Skip(ctx)

	case parser.VerbReset:
		res, err = c.Engine.Reset(ctx)

	case parser.VerbStatus:
		c.cmdStatus()
		return false, nil

	case parser.VerbHelp:
		c.cmdHelp()
		return false, nil

	case parser.VerbClear:
		c.printLines(c.Engine.Present())
		return false, nil

	case parser.VerbTrace:
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}
		return false, nil

	default:
		c.printSystem(fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", in.Verb))
		return false, nil
	}
	return false, c.report(res, err)
}

// report prints a transition result. State errors are shown to the player;
// anything else ends the session.
func (c *CLI) report(res types.Result, err error) error {
	var se *engine.StateError
	switch {
	case errors.As(err, &se):
		if se.State == engine.QuestComplete {
			c.printSystem("The quest is complete. Type /reset to play again or /quit to leave.")
		} else {
			c.printSystem(se.Error())
		}
		return nil
	case err != nil:
		return err
	}
	c.printResult(res)
	if c.Trace {
		c.printTrace(res)
	}
	return nil
}

func (c *CLI) cmdStatus() {
	st := c.Engine.Status()
	switch st.State {
	case engine.InProgress:
		c.printSystem(fmt.Sprintf("Level %d/%d: %s", st.LevelIndex+1, st.LevelCount, st.Level.Title))
		c.printSystem(fmt.Sprintf("Hints used: %d/%d", st.HintsUsed, st.HintsTotal))
	default:
		c.printSystem("Quest " + st.State.String())
	}
	c.printSystem(fmt.Sprintf("Score: %d/%d", st.Score, st.MaxScore))
	c.printSystem(fmt.Sprintf("Completed: %d  Skipped: %d", st.Completed, st.Skipped))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Quest commands:",
		"  /hint (/h)    Reveal the next hint for this level",
		"  /skip         Skip this level (costs points)",
		"  /reset        Start the quest over",
		"  /status       Show level, score and hints",
		"  /clear        Show the current challenge again",
		"  /trace        Toggle debug trace output",
		"  /help         Show this help",
		"  /quit         Leave the quest (progress is saved)",
		"",
		"Anything else is run as a shell command and checked against the challenge.",
	}
	c.printLines(help)
}

func (c *CLI) printTrace(res types.Result) {
	if res.Exec != nil {
		c.printSystem(fmt.Sprintf("[trace] exit=%d duration=%s", res.Exec.ExitCode, res.Exec.Duration))
	}
	if res.Reason != "" {
		c.printSystem(fmt.Sprintf("[trace] reason=%s", res.Reason))
	}
	for _, e := range res.Events {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Data[k]))
		}
		c.printSystem(fmt.Sprintf("[trace] event %s %s", e.Type, strings.Join(parts, " ")))
	}
}

func (c *CLI) printResult(res types.Result) {
	if res.Exec != nil {
		c.printOutput(res.Exec.Stdout)
		c.printOutput(res.Exec.Stderr)
	}
	c.printLines(res.Output)
}

// printOutput echoes captured command output, adding a final newline
// when the command did not print one.
func (c *CLI) printOutput(s string) {
	if s == "" {
		return
	}
	c.print(s)
	if !strings.HasSuffix(s, "\n") {
		c.print("\n")
	}
}

func (c *CLI) printLines(lines []string) {
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
