package engine

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/shellquest/engine/catalog"
	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/executor"
	"github.com/nathoo/shellquest/store"
	"github.com/nathoo/shellquest/types"
)

// fakeExec records every command and answers from canned results.
type fakeExec struct {
	results map[string]types.ExecResult
	errs    map[string]error
	calls   []string
}

func newFakeExec() *fakeExec {
	return &fakeExec{results: map[string]types.ExecResult{}, errs: map[string]error{}}
}

func (f *fakeExec) Execute(ctx context.Context, command, dir string) (types.ExecResult, error) {
	f.calls = append(f.calls, command)
	if err, ok := f.errs[command]; ok {
		return types.ExecResult{}, err
	}
	return f.results[command], nil
}

func (f *fakeExec) count(command string) int {
	n := 0
	for _, c := range f.calls {
		if c == command {
			n++
		}
	}
	return n
}

// failingStore fails every save after the first n.
type failingStore struct {
	*store.MemoryStore
	allowed int
}

func (s *failingStore) Save(ctx context.Context, p *types.Progress) error {
	if s.allowed <= 0 {
		return errors.New("disk full")
	}
	s.allowed--
	return s.MemoryStore.Save(ctx, p)
}

func literal(cmd string) types.CommandRule {
	return types.CommandRule{Kind: types.RuleLiteral, Source: cmd, Literal: cmd}
}

func pattern(expr string) types.CommandRule {
	return types.CommandRule{Kind: types.RulePattern, Source: "regex:" + expr, Pattern: regexp.MustCompile(expr)}
}

// testLevels builds a three level quest: a literal, a pattern with setup
// and cleanup, and an output check.
func testLevels() []types.LevelDef {
	return []types.LevelDef{
		{
			ID: "look", Title: "Look Around", Difficulty: types.Beginner, Points: 10,
			Challenge: "List files.", Expected: literal("ls"),
			Hints: []string{"two letters", "starts with l"}, Rewards: []string{"You can see!"},
		},
		{
			ID: "find", Title: "Find Text", Difficulty: types.Intermediate, Points: 20,
			Challenge: "Find txt files.", Expected: pattern(`find.*-name.*\.txt`),
			SetupCommands:   []string{"mkdir -p cave", "touch cave/a.txt"},
			CleanupCommands: []string{"rm -r cave"},
			Hints:           []string{"use find"},
		},
		{
			ID: "read", Title: "Read", Difficulty: types.Advanced, Points: 30,
			Challenge: "Read the note.", Expected: literal("cat note.txt"),
			ExpectedOutput: "hidden message", CheckOutput: true,
		},
	}
}

type harness struct {
	eng   *Engine
	exec  *fakeExec
	store *store.MemoryStore
	clock time.Time
}

func newHarness(t *testing.T, levels []types.LevelDef) *harness {
	t.Helper()
	cat, err := catalog.New(levels)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h := &harness{
		exec:  newFakeExec(),
		store: store.NewMemoryStore(),
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	h.eng, err = New(cat, Options{
		Executor: h.exec,
		Store:    h.store,
		WorkDir:  "/quest",
		Now:      func() time.Time { return h.clock },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func (h *harness) start(t *testing.T) types.Result {
	t.Helper()
	res, err := h.eng.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return res
}

func (h *harness) submit(t *testing.T, cmd string) types.Result {
	t.Helper()
	res, err := h.eng.Submit(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Submit(%q): %v", cmd, err)
	}
	return res
}

func (h *harness) finishAll(t *testing.T) {
	t.Helper()
	h.exec.results["cat note.txt"] = types.ExecResult{Stdout: "hidden message\n"}
	for _, cmd := range []string{"ls", "find . -name '*.txt'", "cat note.txt"} {
		if res := h.submit(t, cmd); !res.Passed {
			t.Fatalf("Submit(%q) failed: %v", cmd, res.Reason)
		}
	}
}

func TestNew_RequiresExecutor(t *testing.T) {
	cat, _ := catalog.New(testLevels())
	if _, err := New(cat, Options{}); err == nil {
		t.Fatal("expected error without executor")
	}
	if _, err := New(nil, Options{Executor: newFakeExec()}); err == nil {
		t.Fatal("expected error without catalog")
	}
}

func TestStart_Fresh(t *testing.T) {
	h := newHarness(t, testLevels())
	if h.eng.State() != NotStarted {
		t.Fatalf("initial state = %v", h.eng.State())
	}

	res := h.start(t)

	if h.eng.State() != InProgress {
		t.Errorf("state = %v, want in progress", h.eng.State())
	}
	if h.eng.Current().ID != "look" {
		t.Errorf("current = %s, want look", h.eng.Current().ID)
	}
	if h.store.Saves() != 1 {
		t.Errorf("saves = %d, want 1", h.store.Saves())
	}
	if !strings.Contains(strings.Join(res.Output, "\n"), "Level 1/3: Look Around") {
		t.Errorf("intro missing from output: %v", res.Output)
	}
	p := h.eng.Progress()
	if p.Score != 0 || p.CurrentLevel != 0 || len(p.Completed) != 0 {
		t.Errorf("fresh progress = %+v", p)
	}
}

func TestStart_Twice(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)

	_, err := h.eng.Start(context.Background())
	var se *StateError
	if !errors.As(err, &se) || se.Op != "start" {
		t.Fatalf("expected StateError for start, got %v", err)
	}
}

func TestStart_Resumes(t *testing.T) {
	h := newHarness(t, testLevels())
	saved := state.NewProgress(h.clock)
	saved.CurrentLevel = 1
	saved.Score = 10
	saved.Completed = []string{"look"}
	h.store.Save(context.Background(), saved)

	res := h.start(t)

	if h.eng.Current().ID != "find" {
		t.Errorf("current = %s, want find", h.eng.Current().ID)
	}
	if h.eng.Progress().Score != 10 {
		t.Errorf("score = %d, want 10", h.eng.Progress().Score)
	}
	if !strings.Contains(res.Output[0], "Welcome back") {
		t.Errorf("output = %v", res.Output)
	}
	// Entering the resumed level runs its setup.
	if h.exec.count("mkdir -p cave") != 1 {
		t.Errorf("setup not run on resume: %v", h.exec.calls)
	}
}

func TestStart_ResumeClampsCursor(t *testing.T) {
	h := newHarness(t, testLevels())
	saved := state.NewProgress(h.clock)
	saved.CurrentLevel = 99
	h.store.Save(context.Background(), saved)

	h.start(t)

	if h.eng.State() != QuestComplete {
		t.Errorf("state = %v, want complete", h.eng.State())
	}
	if got := h.eng.Progress().CurrentLevel; got != 3 {
		t.Errorf("cursor = %d, want clamped to 3", got)
	}
}

func TestSubmit_Progression(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)

	res := h.submit(t, "ls")
	if !res.Passed || res.Reason != types.ReasonMatched {
		t.Fatalf("ls result = %+v", res)
	}
	p := h.eng.Progress()
	if p.Score != 10 || p.CurrentLevel != 1 || !cmp.Equal(p.Completed, []string{"look"}) {
		t.Errorf("after level 1: score=%d level=%d completed=%v", p.Score, p.CurrentLevel, p.Completed)
	}
	if !hasEvent(res, "level_completed") {
		t.Errorf("missing level_completed event: %+v", res.Events)
	}
	if !strings.Contains(strings.Join(res.Output, "\n"), "You can see!") {
		t.Errorf("rewards missing: %v", res.Output)
	}

	h.exec.results["cat note.txt"] = types.ExecResult{Stdout: "hidden message\n"}
	h.submit(t, "find . -name '*.txt'")
	res = h.submit(t, "cat note.txt")

	if !res.Passed {
		t.Fatalf("final level failed: %+v", res)
	}
	if h.eng.State() != QuestComplete {
		t.Fatalf("state = %v, want complete", h.eng.State())
	}
	if !hasEvent(res, "quest_complete") {
		t.Errorf("missing quest_complete event")
	}
	if h.eng.Progress().Score != 60 {
		t.Errorf("score = %d, want 60", h.eng.Progress().Score)
	}
	if h.eng.Current() != nil {
		t.Errorf("Current() should be nil when complete")
	}

	_, err := h.eng.Submit(context.Background(), "ls")
	var se *StateError
	if !errors.As(err, &se) || se.State != QuestComplete {
		t.Fatalf("expected StateError after completion, got %v", err)
	}
}

func TestSubmit_FailureLeavesProgressIdentical(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	before := h.store.Bytes()
	saves := h.store.Saves()

	for i := 0; i < 2; i++ {
		res := h.submit(t, "ls -la")
		if res.Passed || res.Reason != types.ReasonCommandMismatch {
			t.Fatalf("attempt %d = %+v", i, res)
		}
		if !bytes.Equal(h.store.Bytes(), before) {
			t.Fatalf("attempt %d changed persisted progress", i)
		}
	}
	if h.store.Saves() != saves {
		t.Errorf("failed attempts saved progress: %d saves, want %d", h.store.Saves(), saves)
	}
}

func TestSubmit_FailureDoesNotRevealExpected(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)

	res := h.submit(t, "pwd")
	for _, line := range res.Output {
		if strings.Contains(line, "`ls`") || strings.Contains(line, " ls ") {
			t.Errorf("output reveals expected command: %q", line)
		}
	}
}

func TestSubmit_EmptyCommandNotExecuted(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	calls := len(h.exec.calls)

	res := h.submit(t, "   ")
	if res.Passed || res.Reason != types.ReasonEmptyCommand {
		t.Errorf("result = %+v", res)
	}
	if len(h.exec.calls) != calls {
		t.Errorf("empty command was executed: %v", h.exec.calls)
	}
}

func TestSubmit_SetupRunsOncePerEntry(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.submit(t, "ls")

	h.submit(t, "find nothing")
	h.submit(t, "find still nothing")

	if n := h.exec.count("mkdir -p cave"); n != 1 {
		t.Errorf("setup ran %d times, want 1", n)
	}
	if n := h.exec.count("touch cave/a.txt"); n != 1 {
		t.Errorf("setup ran %d times, want 1", n)
	}
	if n := h.exec.count("rm -r cave"); n != 0 {
		t.Errorf("cleanup ran before pass")
	}

	h.submit(t, "find cave -name '*.txt'")
	if n := h.exec.count("rm -r cave"); n != 1 {
		t.Errorf("cleanup ran %d times after pass, want 1", n)
	}
}

func TestSubmit_SetupFailureWarnsButContinues(t *testing.T) {
	h := newHarness(t, testLevels())
	h.exec.results["mkdir -p cave"] = types.ExecResult{ExitCode: 1, Stderr: "denied"}
	h.start(t)

	res := h.submit(t, "ls")
	joined := strings.Join(res.Output, "\n")
	if !strings.Contains(joined, "Warning: level setup") {
		t.Errorf("expected setup warning: %v", res.Output)
	}
	if h.exec.count("touch cave/a.txt") != 0 {
		t.Error("setup continued after a failing command")
	}
	if h.eng.Current().ID != "find" {
		t.Errorf("setup failure should not block play")
	}
}

func TestSubmit_NonZeroExitStillEvaluated(t *testing.T) {
	levels := []types.LevelDef{{
		ID: "grep", Title: "Grep", Points: 10, Challenge: "search",
		Expected: literal("grep missing notes.txt"),
	}}
	h := newHarness(t, levels)
	h.exec.results["grep missing notes.txt"] = types.ExecResult{ExitCode: 1}
	h.start(t)

	res := h.submit(t, "grep missing notes.txt")
	if !res.Passed {
		t.Fatalf("non-zero exit should not fail a matching command: %+v", res)
	}
	if res.Exec == nil || res.Exec.ExitCode != 1 {
		t.Errorf("exec result not reported: %+v", res.Exec)
	}
}

func TestSubmit_OutputCheck(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.submit(t, "ls")
	h.submit(t, "find . -name x.txt")

	h.exec.results["cat note.txt"] = types.ExecResult{Stdout: "something else\n"}
	res := h.submit(t, "cat note.txt")
	if res.Passed || res.Reason != types.ReasonOutputMismatch {
		t.Fatalf("wrong output should fail: %+v", res)
	}

	h.exec.results["cat note.txt"] = types.ExecResult{Stdout: "  hidden message \n"}
	if res := h.submit(t, "cat note.txt"); !res.Passed {
		t.Fatalf("trimmed output should pass: %+v", res)
	}
}

func TestSubmit_ExecutionErrorIsFailedAttempt(t *testing.T) {
	h := newHarness(t, testLevels())
	h.exec.errs["ls"] = &executor.ExecutionError{Kind: executor.KindTimeout, Command: "ls"}
	h.start(t)
	before := h.store.Bytes()

	res, err := h.eng.Submit(context.Background(), "ls")
	if err != nil {
		t.Fatalf("execution error should not surface as error: %v", err)
	}
	if res.Passed || res.Reason != types.ReasonExecutionError {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(strings.Join(res.Output, "\n"), "too long") {
		t.Errorf("timeout detail missing: %v", res.Output)
	}
	if !bytes.Equal(h.store.Bytes(), before) {
		t.Error("execution error changed progress")
	}

	delete(h.exec.errs, "ls")
	if res := h.submit(t, "ls"); !res.Passed {
		t.Errorf("retry after execution error failed: %+v", res)
	}
}

func TestSubmit_SaveFailureKeepsLiveState(t *testing.T) {
	cat, _ := catalog.New(testLevels())
	fs := &failingStore{MemoryStore: store.NewMemoryStore(), allowed: 1}
	eng, err := New(cat, Options{Executor: newFakeExec(), Store: fs})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.Submit(context.Background(), "ls"); err == nil {
		t.Fatal("expected save error")
	}
	p := eng.Progress()
	if p.Score != 0 || p.CurrentLevel != 0 || len(p.Completed) != 0 {
		t.Errorf("live state changed despite failed save: %+v", p)
	}
	if eng.Current().ID != "look" {
		t.Errorf("current = %s, want look", eng.Current().ID)
	}
}

func TestHint_InOrderThenExhausted(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)

	want := []string{"two letters", "starts with l"}
	for i, text := range want {
		res, err := h.eng.Hint(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Hint == nil || res.Hint.Text != text || res.Hint.Number != i+1 || res.Hint.Total != 2 {
			t.Errorf("hint %d = %+v", i+1, res.Hint)
		}
	}
	saves := h.store.Saves()

	for i := 0; i < 2; i++ {
		res, err := h.eng.Hint(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !res.Hint.Exhausted || res.Output[0] != "No more hints for this level." {
			t.Errorf("exhausted hint = %+v %v", res.Hint, res.Output)
		}
	}
	if h.store.Saves() != saves {
		t.Error("exhausted hints should not persist")
	}
	if got := h.eng.Progress().HintsUsed["look"]; got != 2 {
		t.Errorf("hints used = %d, want 2", got)
	}
}

func TestHint_AwardsCuriousMindOnce(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)

	res, _ := h.eng.Hint(context.Background())
	if !hasEvent(res, "achievement_earned") {
		t.Errorf("first hint should earn an achievement: %+v", res.Events)
	}
	res, _ = h.eng.Hint(context.Background())
	if hasEvent(res, "achievement_earned") {
		t.Errorf("achievement awarded twice")
	}
}

func TestHint_NoHints(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.finishAll(t)
	h.eng.Reset(context.Background())
	h.submit(t, "ls")
	h.submit(t, "find . -name a.txt")

	res, err := h.eng.Hint(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Hint.Exhausted || res.Hint.Total != 0 {
		t.Errorf("hint = %+v", res.Hint)
	}
}

func TestHint_PerfectOnlyWithoutHints(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.eng.Hint(context.Background())
	h.submit(t, "ls")

	hist := h.eng.Progress().History
	if len(hist) != 1 || hist[0].Perfect || hist[0].HintsUsed != 1 {
		t.Errorf("history = %+v", hist)
	}
}

func TestSkip(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.submit(t, "ls")

	res, err := h.eng.Skip(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p := h.eng.Progress()
	if p.Score != 10-DefaultSkipPenalty || p.CurrentLevel != 2 {
		t.Errorf("after skip: score=%d level=%d", p.Score, p.CurrentLevel)
	}
	if state.IsCompleted(p, "find") {
		t.Error("skipped level marked completed")
	}
	if !hasEvent(res, "level_skipped") {
		t.Errorf("missing level_skipped event")
	}
	if h.exec.count("rm -r cave") != 1 {
		t.Errorf("cleanup not run on skip: %v", h.exec.calls)
	}
}

func TestSkip_ScoreFloorsAtZero(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)

	for i := 0; i < 3; i++ {
		if _, err := h.eng.Skip(context.Background()); err != nil {
			t.Fatal(err)
		}
		if s := h.eng.Progress().Score; s != 0 {
			t.Fatalf("score = %d, want 0", s)
		}
	}
	if h.eng.State() != QuestComplete {
		t.Fatalf("state = %v after skipping every level", h.eng.State())
	}

	_, err := h.eng.Skip(context.Background())
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestSkip_CustomPenalty(t *testing.T) {
	cat, _ := catalog.New(testLevels())
	ms := store.NewMemoryStore()
	eng, _ := New(cat, Options{Executor: newFakeExec(), Store: ms, SkipPenalty: NoSkipPenalty})
	eng.Start(context.Background())
	eng.Submit(context.Background(), "ls")

	eng.Skip(context.Background())
	if s := eng.Progress().Score; s != 10 {
		t.Errorf("score = %d, want 10 with no penalty", s)
	}
}

func TestReset(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.finishAll(t)
	oldRun := h.eng.Progress().RunID

	res, err := h.eng.Reset(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p := h.eng.Progress()
	if p.Score != 0 || p.CurrentLevel != 0 || len(p.Completed) != 0 || len(p.HintsUsed) != 0 {
		t.Errorf("reset progress = %+v", p)
	}
	if p.RunID == oldRun {
		t.Error("reset should start a new run")
	}
	if h.eng.State() != InProgress {
		t.Errorf("state = %v, want in progress", h.eng.State())
	}
	if !hasEvent(res, "progress_reset") {
		t.Error("missing progress_reset event")
	}

	saved, err := h.store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if saved.Score != 0 || saved.CurrentLevel != 0 {
		t.Errorf("persisted after reset = %+v", saved)
	}
}

func TestReset_BeforeStart(t *testing.T) {
	h := newHarness(t, testLevels())

	if _, err := h.eng.Reset(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.eng.State() != InProgress || h.eng.Current().ID != "look" {
		t.Errorf("state = %v current = %v", h.eng.State(), h.eng.Current())
	}
}

func TestReset_RunsPendingCleanup(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.submit(t, "ls")

	h.eng.Reset(context.Background())
	if h.exec.count("rm -r cave") != 1 {
		t.Errorf("reset should clean up the entered level: %v", h.exec.calls)
	}
}

func TestClose_RunsPendingCleanup(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.submit(t, "ls")

	if err := h.eng.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.exec.count("rm -r cave") != 1 {
		t.Errorf("close should clean up: %v", h.exec.calls)
	}
	h.eng.Close(context.Background())
	if h.exec.count("rm -r cave") != 1 {
		t.Error("cleanup ran twice")
	}
}

func TestOperationsBeforeStart(t *testing.T) {
	h := newHarness(t, testLevels())
	ctx := context.Background()

	ops := map[string]func() error{
		"submit": func() error { _, err := h.eng.Submit(ctx, "ls"); return err },
		"hint":   func() error { _, err := h.eng.Hint(ctx); return err },
		"skip":   func() error { _, err := h.eng.Skip(ctx); return err },
	}
	for name, op := range ops {
		err := op()
		var se *StateError
		if !errors.As(err, &se) || se.State != NotStarted {
			t.Errorf("%s before start: got %v", name, err)
		}
	}
	if len(h.exec.calls) != 0 || h.store.Saves() != 0 {
		t.Error("rejected operations had side effects")
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.eng.Hint(context.Background())

	st := h.eng.Status()
	if st.State != InProgress || st.LevelIndex != 0 || st.LevelCount != 3 {
		t.Errorf("status = %+v", st)
	}
	if st.HintsUsed != 1 || st.HintsTotal != 2 || st.MaxScore != 60 {
		t.Errorf("status = %+v", st)
	}
}

func TestPresent_QuestComplete(t *testing.T) {
	h := newHarness(t, testLevels())
	h.start(t)
	h.finishAll(t)

	out := strings.Join(h.eng.Present(), "\n")
	if !strings.Contains(out, "Quest complete!") || !strings.Contains(out, "Final score: 60/60") {
		t.Errorf("summary = %s", out)
	}
	if !state.HasAchievement(h.eng.Progress(), "quest_complete") {
		t.Error("quest_complete achievement not earned")
	}
}

func TestCommandsRunInWorkDir(t *testing.T) {
	var dirs []string
	cat, _ := catalog.New(testLevels())
	exec := executor.Func(func(ctx context.Context, command, dir string) (types.ExecResult, error) {
		dirs = append(dirs, dir)
		return types.ExecResult{}, nil
	})
	eng, _ := New(cat, Options{Executor: exec, WorkDir: "/tmp/quest_x"})
	eng.Start(context.Background())
	eng.Submit(context.Background(), "ls")

	for _, d := range dirs {
		if d != "/tmp/quest_x" {
			t.Errorf("command ran in %q", d)
		}
	}
}

func hasEvent(res types.Result, typ string) bool {
	for _, e := range res.Events {
		if e.Type == typ {
			return true
		}
	}
	return false
}
