package loader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nathoo/shellquest/types"
)

// regexPrefix marks an expected command as a regular expression.
const regexPrefix = "regex:"

// Defaults applied to optional level fields.
const (
	DefaultCategory = "general"
	DefaultPoints   = 10
)

// rawLevel holds a level record before validation, whatever its source
// format.
type rawLevel struct {
	source string // file[index], for messages

	ID              string
	Title           string
	Description     string
	Category        string
	Difficulty      string
	Points          *int // nil when absent
	Story           string
	Challenge       string
	ExpectedCommand string
	ExpectedOutput  string
	Hints           []string
	Rewards         []string
	SetupCommands   []string
	CleanupCommands []string

	typeIssues []Issue // field type problems found while reading
}

// compile validates raw levels and resolves them into definitions. Every
// issue across every level is collected before failing.
func compile(raws []rawLevel) ([]types.LevelDef, []Issue, error) {
	ve := &ValidationError{}
	if len(raws) == 0 {
		ve.Issues = append(ve.Issues, Issue{Message: "no levels defined"})
		return nil, nil, ve
	}

	seen := make(map[string]string, len(raws))
	levels := make([]types.LevelDef, 0, len(raws))

	for _, raw := range raws {
		issues := validateLevel(raw)
		if raw.ID != "" {
			if first, dup := seen[raw.ID]; dup {
				issues = append(issues, fieldIssue("id", fmt.Sprintf("duplicate level id (first defined at %s)", first)))
			} else {
				seen[raw.ID] = raw.source
			}
		}

		rule, err := ResolveRule(raw.ExpectedCommand)
		if err != nil && raw.ExpectedCommand != "" {
			issues = append(issues, fieldIssue("expected_command", err.Error()))
		}

		for _, is := range issues {
			ve.Issues = append(ve.Issues, is.at(raw))
		}
		for _, w := range levelWarnings(raw) {
			ve.Warnings = append(ve.Warnings, w.at(raw))
		}
		if len(issues) > 0 {
			continue
		}
		levels = append(levels, buildLevel(raw, rule))
	}

	if ve.HasErrors() {
		return nil, ve.Warnings, ve
	}
	return levels, ve.Warnings, nil
}

// buildLevel applies defaults to a validated raw level.
func buildLevel(raw rawLevel, rule types.CommandRule) types.LevelDef {
	def := types.LevelDef{
		ID:              raw.ID,
		Title:           raw.Title,
		Description:     raw.Description,
		Category:        raw.Category,
		Difficulty:      types.Difficulty(strings.ToLower(raw.Difficulty)),
		Points:          DefaultPoints,
		Story:           raw.Story,
		Challenge:       raw.Challenge,
		SetupCommands:   nonNil(raw.SetupCommands),
		CleanupCommands: nonNil(raw.CleanupCommands),
		Expected:        rule,
		ExpectedOutput:  raw.ExpectedOutput,
		CheckOutput:     strings.TrimSpace(raw.ExpectedOutput) != "",
		Hints:           nonNil(raw.Hints),
		Rewards:         nonNil(raw.Rewards),
	}
	if def.Category == "" {
		def.Category = DefaultCategory
	}
	if def.Difficulty == "" {
		def.Difficulty = types.Beginner
	}
	if raw.Points != nil {
		def.Points = *raw.Points
	}
	return def
}

// ResolveRule turns an expected_command string into a command rule. A
// "regex:" prefix selects an unanchored pattern; anything else is a
// literal compared byte for byte.
func ResolveRule(expected string) (types.CommandRule, error) {
	if expected == "" {
		return types.CommandRule{}, errors.New("expected command is empty")
	}
	if !strings.HasPrefix(expected, regexPrefix) {
		return types.CommandRule{Kind: types.RuleLiteral, Source: expected, Literal: expected}, nil
	}

	expr := strings.TrimPrefix(expected, regexPrefix)
	if strings.TrimSpace(expr) == "" {
		return types.CommandRule{}, errors.New("regex pattern is empty")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return types.CommandRule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return types.CommandRule{Kind: types.RulePattern, Source: expected, Pattern: re}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
