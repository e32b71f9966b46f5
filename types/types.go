// Package types defines the shared data structures for the shellquest engine.
// This package contains only type definitions: no logic, no methods.
package types

import (
	"regexp"
	"time"
)

// Difficulty is the declared difficulty of a level.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// RuleKind selects how a submitted command is compared.
type RuleKind int

const (
	RuleLiteral RuleKind = iota // exact match after trimming the submission
	RulePattern                 // unanchored regular expression search
)

// CommandRule is the resolved form of a level's expected_command.
// Exactly one of Literal or Pattern is meaningful, selected by Kind.
type CommandRule struct {
	Kind    RuleKind
	Source  string // expected_command as written, including any regex: tag
	Literal string
	Pattern *regexp.Regexp
}

// LevelDef is one scripted teaching unit. Immutable once loaded.
type LevelDef struct {
	ID              string
	Title           string
	Description     string
	Category        string
	Difficulty      Difficulty
	Points          int
	Story           string
	Challenge       string
	SetupCommands   []string
	CleanupCommands []string
	Expected        CommandRule
	ExpectedOutput  string
	CheckOutput     bool // false when the level declares no expected_output
	Hints           []string
	Rewards         []string
}

// MatchReason explains a MatchResult without revealing the expected rule.
type MatchReason string

const (
	ReasonMatched         MatchReason = "matched"
	ReasonEmptyCommand    MatchReason = "empty_command"
	ReasonCommandMismatch MatchReason = "command_mismatch"
	ReasonOutputMismatch  MatchReason = "output_mismatch"
	ReasonExecutionError  MatchReason = "execution_error"
)

// MatchResult is the binary verdict of the match evaluator.
type MatchResult struct {
	Passed bool
	Reason MatchReason
}

// ExecResult is what the command executor captured for one command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ProgressStats aggregates counters over the lifetime of a progress record.
type ProgressStats struct {
	LevelsCompleted    int     `json:"levels_completed"`
	LevelsSkipped      int     `json:"levels_skipped"`
	HintsUsed          int     `json:"hints_used"`
	PerfectCompletions int     `json:"perfect_completions"`
	TimePlayed         float64 `json:"time_played_seconds"`
}

// CompletionRecord is one entry in the level history.
type CompletionRecord struct {
	LevelID     string    `json:"level_id"`
	Points      int       `json:"points"`
	HintsUsed   int       `json:"hints_used"`
	Perfect     bool      `json:"perfect"`
	TimeTaken   float64   `json:"time_taken_seconds"`
	CompletedAt time.Time `json:"completed_at"`
}

// Achievement is an earned badge.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

// Progress is the per-player mutable record of a quest.
type Progress struct {
	RunID        string             `json:"run_id"`
	CurrentLevel int                `json:"current_level"`
	Score        int                `json:"score"`
	Completed    []string           `json:"completed_levels"` // set, kept in completion order
	HintsUsed    map[string]int     `json:"hints_used"`
	Stats        ProgressStats      `json:"stats"`
	History      []CompletionRecord `json:"level_history"`
	Achievements []Achievement      `json:"achievements"`
	StartedAt    time.Time          `json:"started_at"`
	LastPlayedAt time.Time          `json:"last_played_at"`
}

// Event is emitted by the quest engine after a transition.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a single engine transition.
type Result struct {
	Passed bool
	Reason MatchReason
	Output []string
	Events []Event
	Exec   *ExecResult // nil when nothing was executed
	Hint   *HintResult // set by hint requests only
}

// HintResult is returned by a hint request.
type HintResult struct {
	Text      string
	Number    int // 1-based index of the revealed hint
	Total     int
	Exhausted bool
}

// InputKind classifies a line typed at the quest prompt.
type InputKind int

const (
	InputEmpty   InputKind = iota
	InputComment           // script comment, starts with #
	InputShell             // submitted to the engine as a shell command
	InputMeta              // slash command such as /hint
)

// Input is a parsed prompt line.
type Input struct {
	Kind InputKind
	Raw  string   // the line with surrounding whitespace removed
	Verb string   // canonical meta verb, without the slash
	Args []string // words after a meta verb
}
