// Package parser classifies prompt lines into shell submissions and meta
// commands. Intentionally dumb: a leading slash is a meta command, a leading
// hash is a comment, everything else goes to the shell untouched.
package parser

import (
	"strings"

	"github.com/nathoo/shellquest/types"
)

// Meta verbs understood by the play loops.
const (
	VerbHint   = "hint"
	VerbSkip   = "skip"
	VerbReset  = "reset"
	VerbStatus = "status"
	VerbHelp   = "help"
	VerbTrace  = "trace"
	VerbClear  = "clear"
	VerbQuit   = "quit"
)

var verbAliases = map[string]string{
	"h":    VerbHint,
	"?":    VerbHelp,
	"next": VerbSkip,
	"s":    VerbStatus,
	"cls":  VerbClear,
	"q":    VerbQuit,
	"exit": VerbQuit,
	"bye":  VerbQuit,
}

var knownVerbs = map[string]bool{
	VerbHint: true, VerbSkip: true, VerbReset: true, VerbStatus: true,
	VerbHelp: true, VerbTrace: true, VerbClear: true, VerbQuit: true,
}

// Parse converts a raw prompt line into an Input. Shell submissions keep
// their original spelling and spacing apart from the outer trim.
func Parse(line string) types.Input {
	raw := strings.TrimSpace(line)
	switch {
	case raw == "":
		return types.Input{Kind: types.InputEmpty}
	case strings.HasPrefix(raw, "#"):
		return types.Input{Kind: types.InputComment, Raw: raw}
	case !strings.HasPrefix(raw, "/") || raw == "/" || strings.HasPrefix(raw, "//"):
		return types.Input{Kind: types.InputShell, Raw: raw}
	}

	// "/usr/bin/ls" is a path, not a meta command.
	words := strings.Fields(raw[1:])
	if strings.Contains(words[0], "/") {
		return types.Input{Kind: types.InputShell, Raw: raw}
	}

	verb := strings.ToLower(words[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	return types.Input{
		Kind: types.InputMeta,
		Raw:  raw,
		Verb: verb,
		Args: words[1:],
	}
}

// Known reports whether verb is a canonical meta verb.
func Known(verb string) bool {
	return knownVerbs[verb]
}
