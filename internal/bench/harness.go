package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/roach88/sunshine/internal/store"
)

// Phase names.
const (
	PhaseBaseline = "baseline"
	PhaseIndexed  = "indexed"
)

// Step names reported by PhaseError.
const (
	StepDropIndex   = "drop-index"
	StepCreateIndex = "create-index"
	StepQuery       = "query"
)

// Target is the database a plan runs against. *store.Store implements it.
type Target interface {
	// Drain runs query and reads its whole result set.
	Drain(ctx context.Context, query string, args ...any) (int64, error)
	CreateIndex(ctx context.Context, idx store.Index) error
	DropIndex(ctx context.Context, name string) error
}

var _ Target = (*store.Store)(nil)

// PhaseError reports where a comparison failed.
// Every index create or drop is atomic on its own, so after a PhaseError
// each index of the plan either fully exists or does not exist at all.
type PhaseError struct {
	Plan  string
	Phase string
	Step  string
	// Index is set for index steps.
	Index string
	// Run is the 1-based run number for query steps.
	Run int
	Err error
}

func (e *PhaseError) Error() string {
	switch {
	case e.Index != "":
		return fmt.Sprintf("plan %s: %s phase: %s %s: %v", e.Plan, e.Phase, e.Step, e.Index, e.Err)
	case e.Run > 0:
		return fmt.Sprintf("plan %s: %s phase: %s run %d: %v", e.Plan, e.Phase, e.Step, e.Run, e.Err)
	default:
		return fmt.Sprintf("plan %s: %s phase: %s: %v", e.Plan, e.Phase, e.Step, e.Err)
	}
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// PhaseResult holds the timings of one phase.
type PhaseResult struct {
	Phase  string          `json:"phase"`
	Runs   []time.Duration `json:"runs_ns"`
	Median time.Duration   `json:"median_ns"`
	Min    time.Duration   `json:"min_ns"`
	Max    time.Duration   `json:"max_ns"`
	Mean   time.Duration   `json:"mean_ns"`
	// Rows read by the last run.
	Rows int64 `json:"rows"`
}

// Result is the outcome of comparing one plan.
type Result struct {
	RunID   string      `json:"run_id"`
	Plan    string      `json:"plan"`
	Query   string      `json:"query"`
	Indexes []string    `json:"indexes"`
	Without PhaseResult `json:"without"`
	With    PhaseResult `json:"with"`
	// Speedup is Without.Median / With.Median, nil when With.Median is zero.
	Speedup *float64 `json:"speedup"`
}

// Options configures a Harness.
type Options struct {
	// Clock times each run. Defaults to the real clock.
	Clock clockwork.Clock

	// Logger receives per-run debug output. Defaults to slog.Default().
	Logger *slog.Logger

	// NewID generates run ids. Defaults to UUIDv7 strings.
	NewID func() string
}

// Harness runs plans against a target.
type Harness struct {
	target Target
	clock  clockwork.Clock
	log    *slog.Logger
	newID  func() string
}

// NewHarness creates a Harness for target.
func NewHarness(target Target, opts Options) *Harness {
	h := &Harness{
		target: target,
		clock:  opts.Clock,
		log:    opts.Logger,
		newID:  opts.NewID,
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.newID == nil {
		h.newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	return h
}

// Compare runs the plan's query RunsWithout times with its indexes dropped,
// then creates the indexes and runs it RunsWith times. The indexes are left
// created on success.
//
// Failures during a phase are returned as *PhaseError.
func (h *Harness) Compare(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	log := h.log.With("plan", plan.Name)
	log.Debug("plan starting", "runs_without", plan.RunsWithout, "runs_with", plan.RunsWith)

	for _, idx := range plan.Indexes {
		if err := h.target.DropIndex(ctx, idx.Name); err != nil {
			return nil, &PhaseError{Plan: plan.Name, Phase: PhaseBaseline, Step: StepDropIndex, Index: idx.Name, Err: err}
		}
	}
	without, err := h.runPhase(ctx, log, plan, PhaseBaseline, plan.RunsWithout)
	if err != nil {
		return nil, err
	}

	for _, idx := range plan.Indexes {
		if err := h.target.CreateIndex(ctx, idx); err != nil {
			return nil, &PhaseError{Plan: plan.Name, Phase: PhaseIndexed, Step: StepCreateIndex, Index: idx.Name, Err: err}
		}
	}
	with, err := h.runPhase(ctx, log, plan, PhaseIndexed, plan.RunsWith)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:   h.newID(),
		Plan:    plan.Name,
		Query:   plan.Query,
		Indexes: plan.IndexNames(),
		Without: without,
		With:    with,
	}
	if ratio, ok := Speedup(without.Median, with.Median); ok {
		result.Speedup = &ratio
	}

	log.Debug("comparison finished",
		"median_without", without.Median,
		"median_with", with.Median,
		"speedup_defined", result.Speedup != nil,
	)
	return result, nil
}

// CompareAll compares each plan in order and stops at the first failure.
func (h *Harness) CompareAll(ctx context.Context, plans []Plan) ([]*Result, error) {
	results := make([]*Result, 0, len(plans))
	for _, plan := range plans {
		result, err := h.Compare(ctx, plan)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (h *Harness) runPhase(ctx context.Context, log *slog.Logger, plan Plan, phase string, runs int) (PhaseResult, error) {
	durations := make([]time.Duration, 0, runs)
	var rows int64
	for run := 1; run <= runs; run++ {
		start := h.clock.Now()
		n, err := h.target.Drain(ctx, plan.Query)
		elapsed := h.clock.Since(start)
		if err != nil {
			return PhaseResult{}, &PhaseError{Plan: plan.Name, Phase: phase, Step: StepQuery, Run: run, Err: err}
		}
		durations = append(durations, elapsed)
		rows = n
		log.Debug("query run", "phase", phase, "run", run, "elapsed", elapsed, "rows", n)
	}
	return summarize(phase, durations, rows), nil
}
