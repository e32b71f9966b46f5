package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/types"
)

// Hint reveals the next hint for the current level. Once every hint has
// been shown the result is marked exhausted and nothing is persisted.
func (e *Engine) Hint(ctx context.Context) (types.Result, error) {
	if err := e.require("request a hint"); err != nil {
		return types.Result{}, err
	}
	level := e.cat.At(e.progress.CurrentLevel)

	next := state.Clone(e.progress)
	hint := state.RevealHint(next, level)
	res := types.Result{Hint: &hint}

	if hint.Exhausted {
		if hint.Total == 0 {
			res.Output = append(res.Output, "There are no hints for this level.")
		} else {
			res.Output = append(res.Output, "No more hints for this level.")
		}
		return res, nil
	}

	now := e.now()
	state.Touch(next, now)
	badges := state.AwardAchievements(next, e.cat.Len(), now)
	if err := e.commit(ctx, next); err != nil {
		return types.Result{}, err
	}
	e.log.Info("hint revealed",
		zap.String("level", level.ID),
		zap.Int("number", hint.Number),
		zap.Int("total", hint.Total))

	res.Passed = true
	res.Output = append(res.Output, fmt.Sprintf("Hint %d/%d: %s", hint.Number, hint.Total, hint.Text))
	res.Events = append(res.Events, types.Event{
		Type: "hint_revealed",
		Data: map[string]any{"level_id": level.ID, "number": hint.Number},
	})
	res.Output, res.Events = appendBadges(res.Output, res.Events, badges)
	return res, nil
}

// Skip moves past the current level without completing it. The skip
// penalty is deducted with the score floored at zero.
func (e *Engine) Skip(ctx context.Context) (types.Result, error) {
	if err := e.require("skip a level"); err != nil {
		return types.Result{}, err
	}
	level := e.cat.At(e.progress.CurrentLevel)

	next := state.Clone(e.progress)
	deducted := state.Skip(next, e.penalty)
	state.Touch(next, e.now())
	if err := e.commit(ctx, next); err != nil {
		return types.Result{}, err
	}
	e.log.Info("level skipped",
		zap.String("level", level.ID),
		zap.Int("deducted", deducted),
		zap.Int("score", next.Score))

	e.cleanup(ctx)

	res := types.Result{Passed: true}
	if deducted > 0 {
		res.Output = append(res.Output, fmt.Sprintf("Level skipped. -%d points (score: %d)", deducted, next.Score))
	} else {
		res.Output = append(res.Output, "Level skipped.")
	}
	res.Events = append(res.Events, types.Event{
		Type: "level_skipped",
		Data: map[string]any{"level_id": level.ID, "deducted": deducted, "score": next.Score},
	})
	res.Output = append(res.Output, e.enter(ctx)...)
	if e.state == QuestComplete {
		res.Events = append(res.Events, types.Event{
			Type: "quest_complete",
			Data: map[string]any{"score": next.Score},
		})
	}
	return res, nil
}

// Reset discards all progress and restarts at the first level. It is
// valid in any state; the catalog is not affected.
func (e *Engine) Reset(ctx context.Context) (types.Result, error) {
	next := state.NewProgress(e.now())
	if err := e.commit(ctx, next); err != nil {
		return types.Result{}, err
	}
	e.log.Info("progress reset", zap.String("run_id", next.RunID))

	e.cleanup(ctx)

	res := types.Result{Passed: true}
	res.Output = append(res.Output, "Progress reset. Starting over!")
	res.Events = append(res.Events, types.Event{Type: "progress_reset"})
	res.Output = append(res.Output, e.enter(ctx)...)
	return res, nil
}
