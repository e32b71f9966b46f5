// Package state manages the mutable progress record: cursor, score,
// completed levels, hint counters and the derived stats.
package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/nathoo/shellquest/types"
)

// NewProgress creates a fresh progress record at the first level.
func NewProgress(now time.Time) *types.Progress {
	return &types.Progress{
		RunID:        uuid.NewString(),
		CurrentLevel: 0,
		Score:        0,
		Completed:    []string{},
		HintsUsed:    map[string]int{},
		History:      []types.CompletionRecord{},
		Achievements: []types.Achievement{},
		StartedAt:    now,
		LastPlayedAt: now,
	}
}

// Clone returns a deep copy so a transition can be prepared without
// touching the live record.
func Clone(p *types.Progress) *types.Progress {
	c := *p
	c.Completed = append([]string{}, p.Completed...)
	c.HintsUsed = make(map[string]int, len(p.HintsUsed))
	for k, v := range p.HintsUsed {
		c.HintsUsed[k] = v
	}
	c.History = append([]types.CompletionRecord{}, p.History...)
	c.Achievements = append([]types.Achievement{}, p.Achievements...)
	return &c
}

// Normalize repairs a record read from storage: nil collections are
// replaced and the cursor is clamped into [0, levelCount].
func Normalize(p *types.Progress, levelCount int) {
	if p.Completed == nil {
		p.Completed = []string{}
	}
	if p.HintsUsed == nil {
		p.HintsUsed = map[string]int{}
	}
	if p.History == nil {
		p.History = []types.CompletionRecord{}
	}
	if p.Achievements == nil {
		p.Achievements = []types.Achievement{}
	}
	if p.CurrentLevel < 0 {
		p.CurrentLevel = 0
	}
	if p.CurrentLevel > levelCount {
		p.CurrentLevel = levelCount
	}
	if p.Score < 0 {
		p.Score = 0
	}
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}
}

// IsCompleted returns true if the level id is in the completed set.
func IsCompleted(p *types.Progress, levelID string) bool {
	for _, id := range p.Completed {
		if id == levelID {
			return true
		}
	}
	return false
}

// HintsUsed returns how many hints were revealed for a level.
func HintsUsed(p *types.Progress, levelID string) int {
	return p.HintsUsed[levelID]
}

// RevealHint returns the next unrevealed hint for the level and bumps its
// counter. Once all hints are revealed the counter stops and the result
// is marked exhausted.
func RevealHint(p *types.Progress, level *types.LevelDef) types.HintResult {
	used := p.HintsUsed[level.ID]
	total := len(level.Hints)
	if used >= total {
		return types.HintResult{Number: used, Total: total, Exhausted: true}
	}
	p.HintsUsed[level.ID] = used + 1
	p.Stats.HintsUsed++
	return types.HintResult{Text: level.Hints[used], Number: used + 1, Total: total}
}

// Complete records a passed level: points, completed set, history and stats.
// Returns the points awarded, which is zero if the level was already completed.
func Complete(p *types.Progress, level *types.LevelDef, taken time.Duration, now time.Time) int {
	if IsCompleted(p, level.ID) {
		return 0
	}
	hints := p.HintsUsed[level.ID]
	perfect := hints == 0

	p.Score += level.Points
	p.Completed = append(p.Completed, level.ID)
	p.Stats.LevelsCompleted++
	p.Stats.TimePlayed += taken.Seconds()
	if perfect {
		p.Stats.PerfectCompletions++
	}
	p.History = append(p.History, types.CompletionRecord{
		LevelID:     level.ID,
		Points:      level.Points,
		HintsUsed:   hints,
		Perfect:     perfect,
		TimeTaken:   taken.Seconds(),
		CompletedAt: now,
	})
	return level.Points
}

// Advance moves the cursor to the next level.
func Advance(p *types.Progress) {
	p.CurrentLevel++
}

// Skip moves past the current level without completing it. The penalty is
// subtracted with the score floored at zero. Returns the points deducted.
func Skip(p *types.Progress, penalty int) int {
	if penalty < 0 {
		penalty = 0
	}
	deducted := penalty
	if deducted > p.Score {
		deducted = p.Score
	}
	p.Score -= deducted
	p.Stats.LevelsSkipped++
	p.CurrentLevel++
	return deducted
}

// Touch stamps the last-played time.
func Touch(p *types.Progress, now time.Time) {
	p.LastPlayedAt = now
}
