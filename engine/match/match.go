// Package match decides whether a submitted command satisfies a level.
package match

import (
	"strings"

	"github.com/nathoo/shellquest/types"
)

// Evaluate judges a submitted command and its captured stdout against the
// level's expected rule. Matching is binary. The returned reason never
// contains the expected command or pattern.
func Evaluate(level *types.LevelDef, submitted, output string) types.MatchResult {
	cmd := strings.TrimSpace(submitted)
	if cmd == "" {
		return types.MatchResult{Reason: types.ReasonEmptyCommand}
	}

	if !MatchesCommand(level.Expected, cmd) {
		return types.MatchResult{Reason: types.ReasonCommandMismatch}
	}

	if level.CheckOutput && strings.TrimSpace(output) != strings.TrimSpace(level.ExpectedOutput) {
		return types.MatchResult{Reason: types.ReasonOutputMismatch}
	}

	return types.MatchResult{Passed: true, Reason: types.ReasonMatched}
}

// MatchesCommand applies a command rule to an already-trimmed command.
// Literal rules compare byte for byte; pattern rules search anywhere.
func MatchesCommand(rule types.CommandRule, cmd string) bool {
	switch rule.Kind {
	case types.RulePattern:
		if rule.Pattern == nil {
			return false
		}
		return rule.Pattern.MatchString(cmd)
	default:
		return cmd == rule.Literal
	}
}

// Describe returns the player-facing message for a failed match.
func Describe(reason types.MatchReason) string {
	switch reason {
	case types.ReasonEmptyCommand:
		return "You didn't type a command. Try again."
	case types.ReasonCommandMismatch:
		return "That's not quite the command this challenge needs. Try again, or type /hint."
	case types.ReasonOutputMismatch:
		return "The command ran, but its output isn't what the challenge expects. Try again, or type /hint."
	case types.ReasonExecutionError:
		return "The command could not be run. Check it and try again."
	case types.ReasonMatched:
		return "Correct!"
	default:
		return "Try again."
	}
}
