package state

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/shellquest/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLevel(id string, points int, hints ...string) *types.LevelDef {
	return &types.LevelDef{ID: id, Title: id, Points: points, Hints: hints}
}

func TestNewProgress_Defaults(t *testing.T) {
	p := NewProgress(t0)

	if p.CurrentLevel != 0 || p.Score != 0 {
		t.Errorf("cursor/score = %d/%d, want 0/0", p.CurrentLevel, p.Score)
	}
	if p.Completed == nil || p.HintsUsed == nil || p.History == nil || p.Achievements == nil {
		t.Error("collections must be non-nil")
	}
	if p.RunID == "" {
		t.Error("RunID must be set")
	}
	if !p.StartedAt.Equal(t0) || !p.LastPlayedAt.Equal(t0) {
		t.Errorf("timestamps = %v/%v", p.StartedAt, p.LastPlayedAt)
	}
}

func TestClone_IsDeep(t *testing.T) {
	p := NewProgress(t0)
	p.Completed = append(p.Completed, "a")
	p.HintsUsed["a"] = 1

	c := Clone(p)
	if diff := cmp.Diff(p, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	c.Completed[0] = "changed"
	c.HintsUsed["a"] = 9
	c.Completed = append(c.Completed, "b")
	if p.Completed[0] != "a" || len(p.Completed) != 1 || p.HintsUsed["a"] != 1 {
		t.Error("mutating the clone changed the original")
	}
}

func TestComplete_AddsPointsAndRecords(t *testing.T) {
	p := NewProgress(t0)
	level := testLevel("ls", 10)

	got := Complete(p, level, 30*time.Second, t0.Add(time.Minute))
	if got != 10 || p.Score != 10 {
		t.Errorf("awarded=%d score=%d, want 10/10", got, p.Score)
	}
	if !IsCompleted(p, "ls") {
		t.Error("ls should be completed")
	}
	if p.Stats.LevelsCompleted != 1 || p.Stats.PerfectCompletions != 1 {
		t.Errorf("stats = %+v", p.Stats)
	}
	if len(p.History) != 1 || p.History[0].TimeTaken != 30 || !p.History[0].Perfect {
		t.Errorf("history = %+v", p.History)
	}
}

func TestComplete_AlreadyCompletedAwardsNothing(t *testing.T) {
	p := NewProgress(t0)
	level := testLevel("ls", 10)
	Complete(p, level, time.Second, t0)

	if got := Complete(p, level, time.Second, t0); got != 0 {
		t.Errorf("second completion awarded %d", got)
	}
	if p.Score != 10 || len(p.Completed) != 1 {
		t.Errorf("score=%d completed=%v", p.Score, p.Completed)
	}
}

func TestComplete_WithHintsIsNotPerfect(t *testing.T) {
	p := NewProgress(t0)
	level := testLevel("ls", 10, "h1")
	RevealHint(p, level)
	Complete(p, level, time.Second, t0)

	if p.Stats.PerfectCompletions != 0 {
		t.Error("completion after a hint must not be perfect")
	}
	if p.History[0].HintsUsed != 1 {
		t.Errorf("history hints = %d", p.History[0].HintsUsed)
	}
}

func TestRevealHint_InOrderThenExhausted(t *testing.T) {
	p := NewProgress(t0)
	level := testLevel("find", 10, "first", "second")

	want := []types.HintResult{
		{Text: "first", Number: 1, Total: 2},
		{Text: "second", Number: 2, Total: 2},
		{Number: 2, Total: 2, Exhausted: true},
		{Number: 2, Total: 2, Exhausted: true},
	}
	for i, w := range want {
		got := RevealHint(p, level)
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("call %d (-want +got):\n%s", i+1, diff)
		}
	}
	if HintsUsed(p, "find") != 2 || p.Stats.HintsUsed != 2 {
		t.Errorf("hints used = %d, stats = %d", HintsUsed(p, "find"), p.Stats.HintsUsed)
	}
}

func TestRevealHint_NoHints(t *testing.T) {
	p := NewProgress(t0)
	got := RevealHint(p, testLevel("bare", 10))
	if !got.Exhausted || got.Total != 0 {
		t.Errorf("got %+v", got)
	}
	if _, ok := p.HintsUsed["bare"]; ok {
		t.Error("exhausted hint request must not create a counter")
	}
}

func TestSkip_FloorsAtZero(t *testing.T) {
	tests := []struct {
		score, penalty, wantScore, wantDeducted int
	}{
		{20, 5, 15, 5},
		{3, 5, 0, 3},
		{0, 5, 0, 0},
		{10, -1, 10, 0},
	}
	for _, tt := range tests {
		p := NewProgress(t0)
		p.Score = tt.score
		got := Skip(p, tt.penalty)
		if p.Score != tt.wantScore || got != tt.wantDeducted {
			t.Errorf("Skip(score=%d, penalty=%d) -> score=%d deducted=%d, want %d/%d",
				tt.score, tt.penalty, p.Score, got, tt.wantScore, tt.wantDeducted)
		}
		if p.CurrentLevel != 1 || p.Stats.LevelsSkipped != 1 {
			t.Errorf("cursor=%d skipped=%d", p.CurrentLevel, p.Stats.LevelsSkipped)
		}
	}
}

func TestNormalize(t *testing.T) {
	p := &types.Progress{CurrentLevel: 12, Score: -4}
	Normalize(p, 3)

	if p.CurrentLevel != 3 {
		t.Errorf("cursor = %d, want 3 (clamped to catalog length)", p.CurrentLevel)
	}
	if p.Score != 0 {
		t.Errorf("score = %d", p.Score)
	}
	if p.Completed == nil || p.HintsUsed == nil || p.History == nil || p.Achievements == nil {
		t.Error("collections must be filled")
	}
	if p.RunID == "" {
		t.Error("RunID must be filled")
	}

	p.CurrentLevel = -2
	Normalize(p, 3)
	if p.CurrentLevel != 0 {
		t.Errorf("negative cursor = %d", p.CurrentLevel)
	}
}

func TestAwardAchievements(t *testing.T) {
	p := NewProgress(t0)

	if got := AwardAchievements(p, 2, t0); len(got) != 0 {
		t.Fatalf("fresh progress earned %v", got)
	}

	Complete(p, testLevel("a", 10), 10*time.Second, t0)
	got := AwardAchievements(p, 2, t0)
	ids := map[string]bool{}
	for _, a := range got {
		ids[a.ID] = true
	}
	if !ids["first_steps"] || !ids["speed_demon"] {
		t.Errorf("expected first_steps and speed_demon, got %v", got)
	}
	if ids["quest_complete"] {
		t.Error("quest_complete awarded too early")
	}

	// Awarded once only.
	if again := AwardAchievements(p, 2, t0); len(again) != 0 {
		t.Errorf("re-awarded %v", again)
	}

	Complete(p, testLevel("b", 10), 2*time.Minute, t0)
	got = AwardAchievements(p, 2, t0)
	if len(got) != 1 || got[0].ID != "quest_complete" {
		t.Errorf("expected quest_complete, got %v", got)
	}
}

func TestAwardAchievements_CuriousMind(t *testing.T) {
	p := NewProgress(t0)
	RevealHint(p, testLevel("a", 10, "hint"))
	got := AwardAchievements(p, 5, t0)
	if len(got) != 1 || got[0].ID != "curious_mind" {
		t.Errorf("got %v", got)
	}
	if !HasAchievement(p, "curious_mind") {
		t.Error("HasAchievement should report curious_mind")
	}
}
