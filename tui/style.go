package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleSpinner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("69"))

	styleText = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleLevelHeader = lipgloss.NewStyle().
				Foreground(lipgloss.Color("75")).
				Bold(true)

	styleChallenge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSuccess = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("180"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleCommandOutput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an engine output line for styling.
type lineKind int

const (
	kindText lineKind = iota
	kindLevelHeader
	kindChallenge
	kindSuccess
	kindHint
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "Level ") && strings.Contains(line, "/"):
		return kindLevelHeader
	case strings.HasPrefix(line, "Challenge:"):
		return kindChallenge
	case strings.HasPrefix(line, "Correct!"),
		strings.HasPrefix(line, "Achievement unlocked"),
		strings.HasPrefix(line, "Quest complete!"):
		return kindSuccess
	case strings.HasPrefix(line, "Hint "),
		strings.HasPrefix(line, "("):
		return kindHint
	case strings.HasPrefix(line, "Warning:"),
		strings.HasPrefix(line, "That's not quite"),
		strings.HasPrefix(line, "The command"),
		strings.HasPrefix(line, "You didn't type"):
		return kindError
	default:
		return kindText
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindLevelHeader:
		return styleLevelHeader.Render(line)
	case kindChallenge:
		return styleChallenge.Render(line)
	case kindSuccess:
		return styleSuccess.Render(line)
	case kindHint:
		return styleHint.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleText.Render(line)
	}
}

// styledPlayerInput renders the echoed player input in green with a
// shell prompt.
func styledPlayerInput(input string) string {
	return stylePlayerInput.Render("$ " + input)
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
