package engine

import (
	"fmt"

	"github.com/nathoo/shellquest/types"
)

// Status is a snapshot for status bars and the /status command.
type Status struct {
	State      State
	LevelIndex int // 0-based cursor
	LevelCount int
	Level      *types.LevelDef // nil unless in progress
	Score      int
	MaxScore   int
	Completed  int
	Skipped    int
	HintsUsed  int // for the current level
	HintsTotal int // for the current level
}

// Status returns the current snapshot.
func (e *Engine) Status() Status {
	st := Status{
		State:      e.state,
		LevelCount: e.cat.Len(),
		MaxScore:   e.cat.Statistics().TotalPoints,
	}
	if e.progress == nil {
		return st
	}
	st.LevelIndex = e.progress.CurrentLevel
	st.Score = e.progress.Score
	st.Completed = len(e.progress.Completed)
	st.Skipped = e.progress.Stats.LevelsSkipped
	if level := e.Current(); level != nil {
		st.Level = level
		st.HintsUsed = e.progress.HintsUsed[level.ID]
		st.HintsTotal = len(level.Hints)
	}
	return st
}

// Present returns the introduction of the level in play, or the quest
// summary once every level is done.
func (e *Engine) Present() []string {
	switch e.state {
	case NotStarted:
		return nil
	case QuestComplete:
		return e.summary()
	}

	level := e.Current()
	lines := []string{
		"",
		fmt.Sprintf("Level %d/%d: %s [%s, %d points]",
			e.progress.CurrentLevel+1, e.cat.Len(), level.Title, level.Difficulty, level.Points),
	}
	if level.Story != "" {
		lines = append(lines, "", level.Story)
	}
	if level.Description != "" && level.Story == "" {
		lines = append(lines, "", level.Description)
	}
	lines = append(lines, "", "Challenge: "+level.Challenge)
	if n := len(level.Hints); n > 0 {
		lines = append(lines, fmt.Sprintf("(%d hint(s) available, type /hint)", n))
	}
	return lines
}

func (e *Engine) summary() []string {
	p := e.progress
	lines := []string{
		"",
		"Quest complete!",
		fmt.Sprintf("Final score: %d/%d", p.Score, e.cat.Statistics().TotalPoints),
		fmt.Sprintf("Levels completed: %d/%d (skipped %d)", len(p.Completed), e.cat.Len(), p.Stats.LevelsSkipped),
		fmt.Sprintf("Hints used: %d", p.Stats.HintsUsed),
	}
	if len(p.Achievements) > 0 {
		lines = append(lines, "Achievements:")
		for _, a := range p.Achievements {
			lines = append(lines, "  "+a.Name)
		}
	}
	lines = append(lines, "Type /reset to play again.")
	return lines
}
