package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/shellquest/engine"
)

// statusText builds the left and right halves of the status bar from a
// snapshot: "Level i/n: title | Score: s | Hints used: h/t".
func statusText(st engine.Status) (left, right string) {
	switch st.State {
	case engine.InProgress:
		left = fmt.Sprintf(" Level %d/%d: %s | Score: %d | Hints used: %d/%d",
			st.LevelIndex+1, st.LevelCount, st.Level.Title, st.Score, st.HintsUsed, st.HintsTotal)
	case engine.QuestComplete:
		left = fmt.Sprintf(" Quest complete | Score: %d/%d", st.Score, st.MaxScore)
	default:
		left = " Starting..."
	}
	right = fmt.Sprintf("%d/%d done ", st.Completed, st.LevelCount)
	return left, right
}

// renderStatusBar produces a full-width inverted status line. The level
// title is dropped first when the terminal is too narrow.
func (m Model) renderStatusBar() string {
	left, right := statusText(m.status)
	if lipgloss.Width(left)+lipgloss.Width(right)+1 > m.width && m.status.Level != nil {
		st := m.status
		left = fmt.Sprintf(" Level %d/%d | Score: %d | Hints: %d/%d",
			st.LevelIndex+1, st.LevelCount, st.Score, st.HintsUsed, st.HintsTotal)
	}
	if m.running {
		right = "running " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
