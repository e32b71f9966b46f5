package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/nathoo/shellquest/types"
)

// blockKind classifies a run of output for rendering.
type blockKind int

const (
	blockNarrative blockKind = iota // engine output lines
	blockInput                      // echoed player input
	blockExec                       // captured command stdout and stderr
	blockSystem                     // meta-command replies
	blockTrace
)

// block stores unstyled output so it can be re-wrapped and re-styled
// when the terminal is resized.
type block struct {
	kind  blockKind
	lines []string
}

// appendOutput adds an echoed input line and engine output lines.
func (m Model) appendOutput(input string, lines []string) Model {
	if input != "" {
		m.blocks = append(m.blocks, block{kind: blockInput, lines: []string{input}})
	}
	if len(lines) > 0 {
		m.blocks = append(m.blocks, block{kind: blockNarrative, lines: lines})
	}
	m.refreshViewport()
	return m
}

// appendSystem adds meta-command replies.
func (m Model) appendSystem(lines ...string) Model {
	m.blocks = append(m.blocks, block{kind: blockSystem, lines: lines})
	m.refreshViewport()
	return m
}

// appendResult adds everything a transition produced.
func (m Model) appendResult(input string, res types.Result) Model {
	if input != "" {
		m.blocks = append(m.blocks, block{kind: blockInput, lines: []string{input}})
	}
	if res.Exec != nil {
		var captured []string
		for _, s := range []string{res.Exec.Stdout, res.Exec.Stderr} {
			if s = strings.TrimRight(s, "\n"); s != "" {
				captured = append(captured, strings.Split(s, "\n")...)
			}
		}
		if len(captured) > 0 {
			m.blocks = append(m.blocks, block{kind: blockExec, lines: captured})
		}
	}
	if len(res.Output) > 0 {
		m.blocks = append(m.blocks, block{kind: blockNarrative, lines: res.Output})
	}
	if m.trace {
		if lines := formatTrace(res); len(lines) > 0 {
			m.blocks = append(m.blocks, block{kind: blockTrace, lines: lines})
		}
	}
	m.refreshViewport()
	return m
}

// refreshViewport re-renders all blocks at the current width and updates
// the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.renderBlocks(), "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) renderBlocks() []string {
	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, b := range m.blocks {
		switch b.kind {
		case blockInput:
			styled = append(styled, styledPlayerInput(b.lines[0]))
		case blockExec:
			for _, line := range b.lines {
				styled = append(styled, styleCommandOutput.Render(line))
			}
		case blockSystem:
			for _, line := range b.lines {
				if line == "" {
					styled = append(styled, "")
					continue
				}
				styled = append(styled, styledSystemMsg(wordWrap(line, width-2)))
			}
		case blockTrace:
			for _, line := range b.lines {
				styled = append(styled, styleTrace.Render(wordWrap(line, width)))
			}
		default:
			styled = append(styled, m.renderNarrative(b.lines, width)...)
		}
	}
	return styled
}

// renderNarrative renders engine output through glamour when enabled,
// falling back to per-line styling.
func (m *Model) renderNarrative(lines []string, width int) []string {
	if m.md != nil {
		if out, err := m.md.Render(toMarkdown(lines)); err == nil {
			return []string{strings.Trim(out, "\n")}
		}
	}

	styled := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			styled = append(styled, "")
			continue
		}
		styled = append(styled, renderLineKind(wordWrap(line, width), classifyLine(line)))
	}
	return styled
}

// toMarkdown turns engine output lines into a small markdown document.
// Story text is passed through, so level authors may use markdown.
func toMarkdown(lines []string) string {
	var parts []string
	for _, line := range lines {
		switch kind := classifyLine(line); {
		case line == "":
			continue
		case kind == kindLevelHeader:
			parts = append(parts, "## "+line)
		case kind == kindChallenge:
			parts = append(parts, "**Challenge:**"+strings.TrimPrefix(line, "Challenge:"))
		case kind == kindSuccess:
			parts = append(parts, "**"+line+"**")
		case strings.HasPrefix(line, "  "):
			parts = append(parts, "> "+strings.TrimSpace(line))
		default:
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n\n")
}

// newRenderer builds a glamour renderer wrapped to the terminal width.
func newRenderer(width int) *glamour.TermRenderer {
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}
