// Package pipeline runs a complete planning pass: candidate generation, the
// purchase optimization and result extraction, with timing metadata.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/results"
	"github.com/iwvelando/procurement-planner/internal/solver"
	"github.com/iwvelando/procurement-planner/internal/store"
	"github.com/iwvelando/procurement-planner/pkg/optimization"
	"go.uber.org/zap"
)

// Runner executes planning passes for one configuration.
type Runner struct {
	logger    *zap.Logger
	conf      *config.Configuration
	generator *catalog.Generator
	solver    *solver.Solver
	store     *store.Store
	now       func() time.Time
}

// Output is everything a planning pass produced.
type Output struct {
	Candidates []catalog.Candidate  `json:"-"`
	Stats      catalog.Stats        `json:"stats"`
	Solve      solver.Result        `json:"-"`
	Results    results.Results      `json:"results"`
	Summary    optimization.Summary `json:"summary"`
}

// NewRunner constructs a Runner for the provided configuration.
func NewRunner(logger *zap.Logger, conf *config.Configuration) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gen, err := catalog.NewGenerator(logger, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	slv, err := solver.NewSolver(logger, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize solver: %w", err)
	}

	return &Runner{
		logger:    logger,
		conf:      conf,
		generator: gen,
		solver:    slv,
		now:       time.Now,
	}, nil
}

// SetStore enables persistence of every run. A nil store disables it.
func (r *Runner) SetStore(s *store.Store) {
	r.store = s
}

// OnProgress forwards generation progress to fn; nil silences it.
func (r *Runner) OnProgress(fn catalog.ProgressFunc) {
	r.generator.OnProgress(fn)
}

// Solver exposes the solver so callers can swap its backend.
func (r *Runner) Solver() *solver.Solver {
	return r.solver
}

// Run executes one planning pass. A solver status other than OPTIMAL or
// FEASIBLE is not an error: it is reported in Output.Results.Status. Errors
// are returned only when generation or persistence fails.
func (r *Runner) Run(ctx context.Context) (*Output, error) {
	start := r.now()

	candidates, stats, err := r.generator.Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate candidates: %w", err)
	}
	generated := r.now()

	res := r.solver.Solve(candidates)
	solved := r.now()

	plan := results.Extract(res, candidates)
	out := &Output{
		Candidates: candidates,
		Stats:      stats,
		Solve:      res,
		Results:    plan,
		Summary: optimization.Summary{
			Seed:            r.conf.Seed,
			Status:          res.Status.String(),
			Objective:       plan.ObjectiveValue,
			Candidates:      len(candidates),
			Considered:      res.Considered,
			Dropped:         res.Dropped,
			Purchased:       plan.TotalUnits,
			Periods:         res.Periods,
			Nodes:           res.Nodes,
			TransitStrategy: res.TransitStrategy,
			Workers:         r.conf.Generation.Workers,
			StartedAt:       start,
			Generation:      generated.Sub(start),
			Solve:           solved.Sub(generated),
		},
	}
	if res.Message != "" {
		out.Summary.Notes = append(out.Summary.Notes, res.Message)
	}
	out.Summary.Total = r.now().Sub(start)

	if r.store != nil {
		id, err := r.store.SaveRun(ctx, out.Summary, candidates, plan)
		if err != nil {
			return out, fmt.Errorf("failed to store run: %w", err)
		}
		out.Summary.RunID = id
	}

	r.logger.Info("planning run complete",
		zap.String("op", "pipeline.Run"),
		zap.String("status", out.Summary.Status),
		zap.Float64("objective", out.Summary.Objective),
		zap.Int("candidates", out.Summary.Candidates),
		zap.Int("purchased", out.Summary.Purchased),
		zap.Duration("generation", out.Summary.Generation),
		zap.Duration("solve", out.Summary.Solve),
		zap.String("runId", out.Summary.RunID),
	)
	return out, nil
}
