package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/shellquest/types"
)

// Issue is one validation finding. LevelID and Field are empty when the
// problem is not tied to a level or field.
type Issue struct {
	Source  string
	LevelID string
	Field   string
	Message string
}

func (i Issue) String() string {
	var b strings.Builder
	if i.Source != "" {
		b.WriteString(i.Source)
		b.WriteString(": ")
	}
	if i.LevelID != "" {
		fmt.Fprintf(&b, "level %q ", i.LevelID)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, "field %q: ", i.Field)
	}
	b.WriteString(i.Message)
	return b.String()
}

func fieldIssue(field, msg string) Issue {
	return Issue{Field: field, Message: msg}
}

// at attaches the raw level's location to the issue.
func (i Issue) at(raw rawLevel) Issue {
	i.Source = raw.source
	i.LevelID = raw.ID
	return i
}

// ValidationError collects all validation issues and warnings.
type ValidationError struct {
	Issues   []Issue
	Warnings []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Issues), strings.Join(lines, "\n  "))
}

// HasErrors reports whether any fatal issue was collected.
func (e *ValidationError) HasErrors() bool {
	return len(e.Issues) > 0
}

var validDifficulties = map[types.Difficulty]bool{
	types.Beginner:     true,
	types.Intermediate: true,
	types.Advanced:     true,
}

// validateLevel checks required fields and value ranges for one level.
func validateLevel(raw rawLevel) []Issue {
	issues := append([]Issue(nil), raw.typeIssues...)

	required := []struct {
		field, value string
	}{
		{"id", raw.ID},
		{"title", raw.Title},
		{"challenge", raw.Challenge},
		{"expected_command", raw.ExpectedCommand},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" && !hasIssue(issues, r.field) {
			issues = append(issues, fieldIssue(r.field, "is required"))
		}
	}

	if raw.Difficulty != "" && !validDifficulties[types.Difficulty(strings.ToLower(raw.Difficulty))] {
		issues = append(issues, fieldIssue("difficulty",
			fmt.Sprintf("unknown difficulty %q (want beginner, intermediate or advanced)", raw.Difficulty)))
	}

	if raw.Points != nil && *raw.Points <= 0 {
		issues = append(issues, fieldIssue("points", fmt.Sprintf("must be positive, got %d", *raw.Points)))
	}

	for i, cmd := range raw.SetupCommands {
		if strings.TrimSpace(cmd) == "" {
			issues = append(issues, fieldIssue("setup_commands", fmt.Sprintf("entry %d is empty", i+1)))
		}
	}
	for i, cmd := range raw.CleanupCommands {
		if strings.TrimSpace(cmd) == "" {
			issues = append(issues, fieldIssue("cleanup_commands", fmt.Sprintf("entry %d is empty", i+1)))
		}
	}
	return issues
}

// levelWarnings reports problems that do not stop the level loading.
func levelWarnings(raw rawLevel) []Issue {
	var warnings []Issue
	exp := raw.ExpectedCommand
	if exp != "" && !strings.HasPrefix(exp, regexPrefix) && strings.TrimSpace(exp) != exp {
		warnings = append(warnings, fieldIssue("expected_command",
			"literal has surrounding whitespace and can never match a trimmed command"))
	}
	if len(raw.Hints) == 0 {
		warnings = append(warnings, fieldIssue("hints", "level has no hints"))
	}
	if raw.Description == "" {
		warnings = append(warnings, fieldIssue("description", "level has no description"))
	}
	return warnings
}

func hasIssue(issues []Issue, field string) bool {
	for _, is := range issues {
		if is.Field == field {
			return true
		}
	}
	return false
}
