package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/engine/match"
	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/executor"
	"github.com/nathoo/shellquest/types"
)

// Submit runs the player's command and judges it against the current
// level. A failed attempt leaves progress untouched. A pass scores the
// level, advances the cursor, persists, and then runs the level's
// cleanup.
func (e *Engine) Submit(ctx context.Context, raw string) (types.Result, error) {
	// 1. Only valid while a level is in play.
	if err := e.require("submit a command"); err != nil {
		return types.Result{}, err
	}
	level := e.cat.At(e.progress.CurrentLevel)

	// 2. Setup runs once per level entry.
	var res types.Result
	res.Output = append(res.Output, e.setup(ctx, level)...)

	// 3. Empty input is never executed.
	if strings.TrimSpace(raw) == "" {
		res.Reason = types.ReasonEmptyCommand
		res.Output = append(res.Output, match.Describe(res.Reason))
		return res, nil
	}

	// 4. Execute. The command is passed through unmodified.
	out, err := e.exec.Execute(ctx, raw, e.workDir)
	if err != nil {
		e.log.Warn("command execution failed",
			zap.String("level", level.ID),
			zap.String("command", raw),
			zap.Error(err))
		res.Reason = types.ReasonExecutionError
		res.Exec = &out
		res.Output = append(res.Output, match.Describe(res.Reason), executionDetail(err))
		return res, nil
	}
	res.Exec = &out

	// 5. Evaluate. A non-zero exit is not itself a failure.
	mr := match.Evaluate(level, raw, out.Stdout)
	res.Reason = mr.Reason
	e.log.Debug("command evaluated",
		zap.String("level", level.ID),
		zap.String("command", raw),
		zap.Int("exit", out.ExitCode),
		zap.String("reason", string(mr.Reason)))
	if !mr.Passed {
		res.Output = append(res.Output, match.Describe(mr.Reason))
		return res, nil
	}

	// 6. Score and advance on a clone, persist, then swap in.
	now := e.now()
	next := state.Clone(e.progress)
	taken := now.Sub(e.enteredAt)
	points := state.Complete(next, level, taken, now)
	state.Advance(next)
	state.Touch(next, now)
	badges := state.AwardAchievements(next, e.cat.Len(), now)
	if err := e.commit(ctx, next); err != nil {
		return types.Result{}, err
	}

	e.log.Info("level completed",
		zap.String("level", level.ID),
		zap.Int("points", points),
		zap.Int("score", next.Score),
		zap.Duration("taken", taken))

	// 7. Cleanup only after the pass is committed.
	e.cleanup(ctx)

	res.Passed = true
	res.Output = append(res.Output, fmt.Sprintf("Correct! +%d points (score: %d)", points, next.Score))
	for _, r := range level.Rewards {
		res.Output = append(res.Output, "  "+r)
	}
	res.Events = append(res.Events, types.Event{
		Type: "level_completed",
		Data: map[string]any{"level_id": level.ID, "points": points, "score": next.Score},
	})
	res.Output, res.Events = appendBadges(res.Output, res.Events, badges)

	// 8. Enter the next level or finish.
	res.Output = append(res.Output, e.enter(ctx)...)
	if e.state == QuestComplete {
		res.Events = append(res.Events, types.Event{
			Type: "quest_complete",
			Data: map[string]any{"score": next.Score},
		})
	}
	return res, nil
}

// enter prepares the level under the cursor and returns its
// introduction, or the completion summary at the end of the quest.
func (e *Engine) enter(ctx context.Context) []string {
	if e.state != InProgress {
		return e.Present()
	}
	e.enteredAt = e.now()
	lines := e.setup(ctx, e.cat.At(e.progress.CurrentLevel))
	return append(lines, e.Present()...)
}

// setup runs the level's setup commands unless they already ran for this
// entry. Failures are reported as warning lines and never block play.
func (e *Engine) setup(ctx context.Context, level *types.LevelDef) []string {
	idx := e.progress.CurrentLevel
	if e.setupFor == idx {
		return nil
	}
	e.setupFor = idx

	var warnings []string
	for _, cmd := range level.SetupCommands {
		out, err := e.exec.Execute(ctx, cmd, e.workDir)
		if err == nil && out.ExitCode == 0 {
			continue
		}
		e.log.Warn("setup command failed",
			zap.String("level", level.ID),
			zap.String("command", cmd),
			zap.Int("exit", out.ExitCode),
			zap.String("stderr", out.Stderr),
			zap.Error(err))
		warnings = append(warnings, "Warning: level setup did not finish; the challenge may not work as described.")
		break
	}
	return warnings
}

// cleanup runs cleanup for the level whose setup ran, if any. Errors are
// logged and skipped.
func (e *Engine) cleanup(ctx context.Context) {
	if e.setupFor < 0 {
		return
	}
	level := e.cat.At(e.setupFor)
	e.setupFor = -1
	if level == nil {
		return
	}
	for _, cmd := range level.CleanupCommands {
		out, err := e.exec.Execute(ctx, cmd, e.workDir)
		if err != nil || out.ExitCode != 0 {
			e.log.Warn("cleanup command failed",
				zap.String("level", level.ID),
				zap.String("command", cmd),
				zap.Int("exit", out.ExitCode),
				zap.Error(err))
		}
	}
}

// executionDetail turns an executor error into a short player message.
func executionDetail(err error) string {
	var execErr *executor.ExecutionError
	if !errors.As(err, &execErr) {
		return "  " + err.Error()
	}
	switch execErr.Kind {
	case executor.KindTimeout:
		return "  The command took too long and was stopped."
	case executor.KindBlocked:
		return "  That command is not allowed in this quest."
	case executor.KindCanceled:
		return "  The command was interrupted."
	default:
		return "  " + execErr.Error()
	}
}

// appendBadges reports newly earned achievements.
func appendBadges(out []string, events []types.Event, badges []types.Achievement) ([]string, []types.Event) {
	for _, b := range badges {
		out = append(out, fmt.Sprintf("Achievement unlocked: %s (%s)", b.Name, b.Description))
		events = append(events, types.Event{
			Type: "achievement_earned",
			Data: map[string]any{"id": b.ID},
		})
	}
	return out, events
}
