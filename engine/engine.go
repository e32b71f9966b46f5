// Package engine provides the quest state machine that wires together the
// level catalog, match evaluation, progress state, command execution and
// persistence into single player transitions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nathoo/shellquest/engine/catalog"
	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/executor"
	"github.com/nathoo/shellquest/store"
	"github.com/nathoo/shellquest/types"
)

// DefaultSkipPenalty is the score deducted when a level is skipped.
const DefaultSkipPenalty = 5

// NoSkipPenalty disables the skip penalty in Options.
const NoSkipPenalty = -1

// State is the engine's position in the quest lifecycle.
type State int

const (
	NotStarted State = iota
	InProgress
	QuestComplete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InProgress:
		return "in progress"
	case QuestComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateError is returned when an operation is not valid in the current
// state. Nothing is mutated.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: quest is %s", e.Op, e.State)
}

// Options configures an Engine.
type Options struct {
	Executor    executor.Executor // required
	Store       store.Store       // nil keeps progress in memory only
	Logger      *zap.Logger
	WorkDir     string           // directory commands run in
	SkipPenalty int              // zero means DefaultSkipPenalty; NoSkipPenalty disables it
	Now         func() time.Time // clock, for tests
}

// Engine drives one player's quest over a shared catalog. It is not safe
// for concurrent use.
type Engine struct {
	cat     *catalog.Catalog
	exec    executor.Executor
	store   store.Store
	log     *zap.Logger
	workDir string
	penalty int
	now     func() time.Time

	progress *types.Progress
	state    State

	// setupFor is the index of the level whose setup has run in this
	// session, or -1. Cleanup is owed while it is set.
	setupFor  int
	enteredAt time.Time
}

// New creates an engine in the NotStarted state.
func New(cat *catalog.Catalog, opts Options) (*Engine, error) {
	if cat == nil {
		return nil, errors.New("engine requires a catalog")
	}
	if opts.Executor == nil {
		return nil, errors.New("engine requires an executor")
	}
	e := &Engine{
		cat:      cat,
		exec:     opts.Executor,
		store:    opts.Store,
		log:      opts.Logger,
		workDir:  opts.WorkDir,
		penalty:  opts.SkipPenalty,
		now:      opts.Now,
		setupFor: -1,
	}
	if e.store == nil {
		e.store = store.NewMemoryStore()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	switch {
	case e.penalty == 0:
		e.penalty = DefaultSkipPenalty
	case e.penalty < 0:
		e.penalty = 0
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Start loads saved progress, or creates it, and enters the current
// level. Resuming at the end of the catalog goes straight to
// QuestComplete.
func (e *Engine) Start(ctx context.Context) (types.Result, error) {
	if e.state != NotStarted {
		return types.Result{}, &StateError{Op: "start", State: e.state}
	}

	now := e.now()
	p, err := e.store.Load(ctx)
	resumed := true
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = state.NewProgress(now)
		resumed = false
	case err != nil:
		return types.Result{}, fmt.Errorf("loading progress: %w", err)
	}
	state.Normalize(p, e.cat.Len())
	state.Touch(p, now)

	if err := e.store.Save(ctx, p); err != nil {
		return types.Result{}, fmt.Errorf("saving progress: %w", err)
	}
	e.progress = p
	e.syncState()

	e.log.Info("quest started",
		zap.String("run_id", p.RunID),
		zap.Bool("resumed", resumed),
		zap.Int("level", p.CurrentLevel),
		zap.Int("score", p.Score))

	var res types.Result
	res.Passed = true
	res.Events = append(res.Events, types.Event{
		Type: "quest_started",
		Data: map[string]any{"resumed": resumed, "level": p.CurrentLevel},
	})
	if resumed && p.CurrentLevel > 0 {
		res.Output = append(res.Output, fmt.Sprintf("Welcome back! Score: %d", p.Score))
	}
	res.Output = append(res.Output, e.enter(ctx)...)
	return res, nil
}

// Close runs pending cleanup for the level in play. Progress is already
// persisted after every transition.
func (e *Engine) Close(ctx context.Context) error {
	e.cleanup(ctx)
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Current returns the level in play, or nil when not in progress.
func (e *Engine) Current() *types.LevelDef {
	if e.state != InProgress {
		return nil
	}
	return e.cat.At(e.progress.CurrentLevel)
}

// Progress returns a copy of the live progress record, or nil before
// Start.
func (e *Engine) Progress() *types.Progress {
	if e.progress == nil {
		return nil
	}
	return state.Clone(e.progress)
}

// Catalog returns the catalog the engine plays.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// commit persists next and makes it the live record. On failure the
// live record is untouched.
func (e *Engine) commit(ctx context.Context, next *types.Progress) error {
	if err := e.store.Save(ctx, next); err != nil {
		e.log.Error("saving progress failed", zap.Error(err))
		return fmt.Errorf("saving progress: %w", err)
	}
	e.progress = next
	e.syncState()
	return nil
}

// syncState derives the lifecycle state from the cursor.
func (e *Engine) syncState() {
	if e.progress.CurrentLevel >= e.cat.Len() {
		e.state = QuestComplete
		return
	}
	e.state = InProgress
}

// require returns a StateError unless the engine is in progress.
func (e *Engine) require(op string) error {
	if e.state != InProgress {
		return &StateError{Op: op, State: e.state}
	}
	return nil
}
