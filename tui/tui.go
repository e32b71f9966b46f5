package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/nathoo/shellquest/engine"
	"github.com/nathoo/shellquest/engine/parser"
	"github.com/nathoo/shellquest/types"
)

// Model is the Bubble Tea model for the shellquest TUI.
//
// The engine is not safe for concurrent use. Transitions run inside a
// tea.Cmd under the gate and input is disabled until the result message
// arrives, so at most one goroutine touches the engine at a time. View
// reads only the cached status snapshot.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc // cancels the running transition on quit
	gate   *gate
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	history  *History
	md       *glamour.TermRenderer // nil renders narrative as plain text

	blocks []block // accumulated output, unstyled so it can be re-rendered on resize
	status engine.Status

	width    int
	height   int
	ready    bool
	trace    bool
	running  bool
	quitting bool
	markdown bool
	err      error
}

// Options configures the TUI.
type Options struct {
	Markdown bool // render level text with glamour
}

// resultMsg carries one engine transition back into the Update loop.
type resultMsg struct {
	input  string // echoed player input, empty for the quest start
	res    types.Result
	err    error
	status engine.Status
}

// gate serializes engine access between transitions and shutdown. Once
// closed, no further transition runs.
type gate struct {
	mu     sync.Mutex
	closed bool
}

// run calls fn unless the gate is closed, and reports whether it ran.
func (g *gate) run(fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	fn()
	return true
}

// close waits for a running transition and refuses later ones.
func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// New creates a TUI model wired to the given engine.
func New(ctx context.Context, eng *engine.Engine, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "$ "
	ti.Placeholder = "type a shell command, or /help"
	ti.Focus()
	ti.CharLimit = 1024
	ti.PromptStyle = styleInputPrompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	ctx, cancel := context.WithCancel(ctx)
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		gate:     &gate{},
		engine:   eng,
		input:    ti,
		spinner:  sp,
		history:  NewHistory(100),
		status:   eng.Status(),
		markdown: opts.Markdown,
		running:  true,
	}
}

// Run starts the Bubble Tea program and returns once the player quits.
// Pending level cleanup runs before it returns.
func Run(ctx context.Context, eng *engine.Engine, opts Options) error {
	m := New(ctx, eng, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if cerr := m.shutdown(context.WithoutCancel(ctx)); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// Init starts the quest, or presents the level in play on a resumed engine.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.startQuest())
}

// shutdown cancels a running transition, waits for it to return and then
// runs the engine's pending cleanup. The program may exit before a
// command's result is delivered, so Run calls this before returning.
func (m Model) shutdown(ctx context.Context) error {
	m.cancel()
	m.gate.close()
	return m.engine.Close(ctx)
}

func (m Model) startQuest() tea.Cmd {
	eng := m.engine
	return m.transition("", func(ctx context.Context) (types.Result, error) {
		if eng.State() != engine.NotStarted {
			return types.Result{Output: eng.Present()}, nil
		}
		return eng.Start(ctx)
	})
}

// present re-shows the level in play.
func (m Model) present() tea.Cmd {
	eng := m.engine
	return m.transition("", func(context.Context) (types.Result, error) {
		return types.Result{Output: eng.Present()}, nil
	})
}

// transition runs an engine operation off the Update loop. After
// shutdown it does nothing and delivers no message.
func (m Model) transition(input string, op func(context.Context) (types.Result, error)) tea.Cmd {
	eng, ctx, g := m.engine, m.ctx, m.gate
	return func() tea.Msg {
		var msg tea.Msg
		g.run(func() {
			res, err := op(ctx)
			msg = resultMsg{input: input, res: res, err: err, status: eng.Status()}
		})
		return msg
	}
}

// Update handles messages (key presses, window resize, engine results).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.input.Width = m.width - 4
		if m.markdown {
			m.md = newRenderer(m.width)
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit

		case "enter":
			if m.running {
				return m, nil
			}
			return m.handleEnter()

		case "up":
			if cmd, ok := m.history.Back(m.input.Value()); ok {
				m.input.SetValue(cmd)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if cmd, ok := m.history.Forward(); ok {
				m.input.SetValue(cmd)
				m.input.CursorEnd()
			}
			return m, nil

		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case spinner.TickMsg:
		var spCmd tea.Cmd
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd

	case resultMsg:
		if m.quitting {
			return m, nil
		}
		m.running = false
		m.status = msg.status
		var se *engine.StateError
		switch {
		case errors.As(msg.err, &se):
			m = m.appendOutput(msg.input, nil)
			m = m.appendSystem(stateMessage(se))
		case msg.err != nil:
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		default:
			m = m.appendResult(msg.input, msg.res)
		}
	}

	if !m.running {
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		cmds = append(cmds, inputCmd)
	}

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	in := parser.Parse(m.input.Value())
	m.input.SetValue("")

	switch in.Kind {
	case types.InputEmpty, types.InputComment:
		return m, nil
	}

	m.history.Push(in.Raw)

	if in.Kind == types.InputShell {
		m.running = true
		return m, m.transition(in.Raw, func(ctx context.Context) (types.Result, error) {
			return m.engine.Submit(ctx, in.Raw)
		})
	}
	return m.handleMeta(in)
}

// handleMeta dispatches meta-commands. Quest transitions run as commands;
// the rest are answered in place.
func (m Model) handleMeta(in types.Input) (tea.Model, tea.Cmd) {
	var op func(context.Context) (types.Result, error)

	switch in.Verb {
	case parser.VerbQuit:
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case parser.VerbHint:
		op = m.engine.Hint

	case parser.VerbSkip:
		op = m.engine.Skip

	case parser.VerbReset:
		op = m.engine.Reset

	case parser.VerbStatus:
		m = m.appendOutput(in.Raw, nil)
		for _, line := range statusLines(m.status) {
			m = m.appendSystem(line)
		}
		return m, nil

	case parser.VerbHelp:
		m = m.appendOutput(in.Raw, nil)
		m = m.appendSystem(helpLines()...)
		return m, nil

	case parser.VerbClear:
		m.blocks = nil
		m.running = true
		return m, m.present()

	case parser.VerbTrace:
		m.trace = !m.trace
		m = m.appendOutput(in.Raw, nil)
		if m.trace {
			m = m.appendSystem("Trace output enabled.")
		} else {
			m = m.appendSystem("Trace output disabled.")
		}
		return m, nil

	default:
		m = m.appendOutput(in.Raw, nil)
		m = m.appendSystem(fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", in.Verb))
		return m, nil
	}

	m.running = true
	return m, m.transition(in.Raw, op)
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	prompt := m.input.View()
	if m.running {
		prompt = m.spinner.View() + " running..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + prompt
}

func stateMessage(se *engine.StateError) string {
	if se.State == engine.QuestComplete {
		return "The quest is complete. Type /reset to play again or /quit to leave."
	}
	return se.Error()
}

func statusLines(st engine.Status) []string {
	var lines []string
	if st.Level != nil {
		lines = append(lines,
			fmt.Sprintf("Level %d/%d: %s", st.LevelIndex+1, st.LevelCount, st.Level.Title),
			fmt.Sprintf("Hints used: %d/%d", st.HintsUsed, st.HintsTotal))
	} else {
		lines = append(lines, "Quest "+st.State.String())
	}
	return append(lines,
		fmt.Sprintf("Score: %d/%d", st.Score, st.MaxScore),
		fmt.Sprintf("Completed: %d  Skipped: %d", st.Completed, st.Skipped))
}

func helpLines() []string {
	return []string{
		"Quest commands:",
		"  /hint (/h)  Reveal the next hint",
		"  /skip       Skip this level (costs points)",
		"  /reset      Start the quest over",
		"  /status     Show level, score and hints",
		"  /clear      Clear the screen and show the challenge",
		"  /trace      Toggle debug trace output",
		"  /quit       Leave (progress is saved)",
		"",
		"Anything else runs as a shell command.",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func formatTrace(res types.Result) []string {
	var lines []string
	if res.Exec != nil {
		lines = append(lines, fmt.Sprintf("[trace] exit=%d duration=%s", res.Exec.ExitCode, res.Exec.Duration))
	}
	if res.Reason != "" {
		lines = append(lines, fmt.Sprintf("[trace] reason=%s", res.Reason))
	}
	for _, e := range res.Events {
		lines = append(lines, fmt.Sprintf("[trace] event %s %v", e.Type, e.Data))
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
