// Package tui provides a Bubble Tea terminal UI for playing a shell quest.
package tui

import "strings"

// History keeps the commands a player has entered, oldest first, and lets
// the prompt step through them. The line being typed when browsing starts
// is kept as a draft and restored when stepping past the newest command.
type History struct {
	commands []string
	limit    int
	pos      int // index into commands while browsing, -1 otherwise
	draft    string
}

// NewHistory returns a history holding at most limit commands.
func NewHistory(limit int) *History {
	return &History{commands: make([]string, 0, limit), limit: limit, pos: -1}
}

// Push records an entered command and stops browsing. Blank lines and a
// repeat of the last command are not recorded.
func (h *History) Push(command string) {
	h.Stop()
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	if n := len(h.commands); n > 0 && h.commands[n-1] == command {
		return
	}
	if len(h.commands) == h.limit {
		h.commands = h.commands[1:]
	}
	h.commands = append(h.commands, command)
}

// Back steps to an older command. typed is the prompt's current contents,
// saved as the draft when browsing starts. It stays on the oldest command
// once reached.
func (h *History) Back(typed string) (string, bool) {
	if len(h.commands) == 0 {
		return "", false
	}
	switch {
	case h.pos < 0:
		h.draft = typed
		h.pos = len(h.commands) - 1
	case h.pos > 0:
		h.pos--
	}
	return h.commands[h.pos], true
}

// Forward steps to a newer command, or back to the draft after the newest.
// It reports false when not browsing.
func (h *History) Forward() (string, bool) {
	if h.pos < 0 {
		return "", false
	}
	h.pos++
	if h.pos == len(h.commands) {
		draft := h.draft
		h.Stop()
		return draft, true
	}
	return h.commands[h.pos], true
}

// Stop ends browsing and forgets the draft.
func (h *History) Stop() {
	h.pos = -1
	h.draft = ""
}

// Len returns the number of recorded commands.
func (h *History) Len() int {
	return len(h.commands)
}
