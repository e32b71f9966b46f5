package state

import (
	"time"

	"github.com/nathoo/shellquest/types"
)

// achievementDef is a badge and the predicate that earns it.
type achievementDef struct {
	id          string
	name        string
	description string
	earned      func(p *types.Progress, levelCount int) bool
}

const (
	speedDemonSeconds   = 60
	perfectionistTarget = 5
)

var achievementDefs = []achievementDef{
	{
		id:          "first_steps",
		name:        "First Steps",
		description: "Complete your first level",
		earned: func(p *types.Progress, _ int) bool {
			return p.Stats.LevelsCompleted >= 1
		},
	},
	{
		id:          "curious_mind",
		name:        "Curious Mind",
		description: "Reveal your first hint",
		earned: func(p *types.Progress, _ int) bool {
			return p.Stats.HintsUsed >= 1
		},
	},
	{
		id:          "speed_demon",
		name:        "Speed Demon",
		description: "Complete a level in under 60 seconds",
		earned: func(p *types.Progress, _ int) bool {
			for _, r := range p.History {
				if r.TimeTaken < speedDemonSeconds {
					return true
				}
			}
			return false
		},
	},
	{
		id:          "perfectionist",
		name:        "Perfectionist",
		description: "Complete 5 levels without hints",
		earned: func(p *types.Progress, _ int) bool {
			return p.Stats.PerfectCompletions >= perfectionistTarget
		},
	},
	{
		id:          "quest_complete",
		name:        "Quest Complete",
		description: "Complete every level in the quest",
		earned: func(p *types.Progress, levelCount int) bool {
			return levelCount > 0 && len(p.Completed) >= levelCount
		},
	},
}

// HasAchievement returns true if the badge was already earned.
func HasAchievement(p *types.Progress, id string) bool {
	for _, a := range p.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// AwardAchievements evaluates every badge and appends the newly earned ones.
// Each badge is awarded at most once. Returns only the new badges.
func AwardAchievements(p *types.Progress, levelCount int, now time.Time) []types.Achievement {
	var awarded []types.Achievement
	for _, def := range achievementDefs {
		if HasAchievement(p, def.id) || !def.earned(p, levelCount) {
			continue
		}
		a := types.Achievement{
			ID:          def.id,
			Name:        def.name,
			Description: def.description,
			EarnedAt:    now,
		}
		p.Achievements = append(p.Achievements, a)
		awarded = append(awarded, a)
	}
	return awarded
}
