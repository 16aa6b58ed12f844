// Package solver chooses purchase quantities for a candidate list by solving a
// mixed-integer program with branch-and-bound over LP relaxations.
package solver

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/forecast"
	"github.com/iwvelando/procurement-planner/internal/models"
	"go.uber.org/zap"
)

// Solver builds and solves the procurement MILP.
type Solver struct {
	logger   *zap.Logger
	cfg      config.SolverConfig
	forecast *forecast.Forecast
	backend  LPBackend
	now      func() time.Time
}

// NewSolver constructs a Solver for the provided configuration using the gonum
// simplex backend.
func NewSolver(logger *zap.Logger, conf *config.Configuration) (*Solver, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := conf.Solver
	if cfg.Horizon != nil {
		horizon := *cfg.Horizon
		cfg.Horizon = &horizon
	}
	cfg.Normalize()
	fc, err := forecast.GetForecast(logger, cfg.Horizon)
	if err != nil {
		return nil, err
	}

	return &Solver{
		logger:   logger,
		cfg:      cfg,
		forecast: fc,
		backend:  GonumSimplex{},
		now:      time.Now,
	}, nil
}

// SetBackend replaces the LP backend. A nil backend makes every solve return
// an ERROR result carrying ErrBackendUnavailable.
func (s *Solver) SetBackend(b LPBackend) {
	s.backend = b
}

// Solve runs the optimization synchronously within the configured time limit.
// It never panics; every failure is reported through the returned Result.
func (s *Solver) Solve(candidates []catalog.Candidate) (res Result) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			res = errorResult(&FaultError{Stage: "solve", Cause: r})
			s.logger.Error("solver fault recovered",
				zap.String("op", "solver.Solve"),
				zap.Any("cause", r),
			)
		}
		res.Elapsed = s.now().Sub(start)
		res.TransitStrategy = s.cfg.TransitStrategy
	}()

	if s.backend == nil {
		return errorResult(ErrBackendUnavailable)
	}

	profiles, err := validateTransit(candidates, s.cfg.TransitStrategy)
	if err != nil {
		return errorResult(&FaultError{Stage: "model build", Cause: err})
	}

	kept := prefilter(candidates, s.cfg, s.cfg.MaxCandidates)
	selected := make([]catalog.Candidate, len(kept))
	for i, k := range kept {
		selected[i] = candidates[k]
	}
	if dropped := len(candidates) - len(selected); dropped > 0 {
		s.logger.Info("pre-filtered candidates",
			zap.String("op", "solver.Solve"),
			zap.Int("kept", len(selected)),
			zap.Int("dropped", dropped),
		)
	}

	periods := s.cfg.Periods()
	res = Result{
		Status:     Optimal,
		Quantities: make(map[string][]int, len(selected)),
		Periods:    periods,
		Considered: len(selected),
		Dropped:    len(candidates) - len(selected),
	}
	for _, c := range selected {
		res.Quantities[c.ID] = make([]int, periods)
	}
	if s.cfg.TransitStrategy == config.TransitStrategyUnits {
		res.TransitUnits = make(map[models.TransitMode][]int)
	}

	deadline := start.Add(s.cfg.TimeLimit)

	var messages []string
	for m := 1; m <= periods; m++ {
		// Remaining time is split evenly over the periods still to solve.
		remaining := deadline.Sub(s.now())
		limits := searchLimits{
			deadline: s.now().Add(remaining / time.Duration(periods-m+1)),
			maxNodes: s.cfg.MaxNodes,
			now:      s.now,
		}
		pm := buildPeriod(selected, s.cfg, s.forecast, profiles, m)
		out := branchAndBound(pm.prob, s.backend, limits)
		res.Nodes += out.nodes
		res.Status = worse(res.Status, out.status)
		if out.message != "" {
			messages = append(messages, fmt.Sprintf("period %d: %s", m, out.message))
		}

		s.logger.Debug("period solved",
			zap.String("op", "solver.Solve"),
			zap.Int("period", m),
			zap.String("status", out.status.String()),
			zap.Int("nodes", out.nodes),
			zap.Int("variables", len(pm.prob.obj)),
			zap.Int("rows", len(pm.prob.rows)),
		)

		if !out.status.HasSolution() {
			continue
		}
		for i, c := range selected {
			res.Quantities[c.ID][m-1] = int(math.Round(out.x[pm.qty[i]]))
		}
		for mode, idx := range pm.units {
			if res.TransitUnits[mode] == nil {
				res.TransitUnits[mode] = make([]int, periods)
			}
			res.TransitUnits[mode][m-1] = int(math.Round(out.x[idx]))
		}
	}

	if res.Dropped > 0 && res.Status.HasSolution() {
		// The search only proves optimality over the kept subset.
		res.Status = worse(res.Status, Feasible)
		messages = append(messages, fmt.Sprintf("pre-filter kept %d of %d candidates; plan is optimal for the kept subset only", res.Considered, len(candidates)))
	}
	if len(messages) > 0 {
		res.Message = strings.Join(messages, "; ")
	}
	if !res.Status.HasSolution() {
		res.Quantities = nil
		res.TransitUnits = nil
		res.Objective = 0
	} else {
		res.Objective = s.objective(selected, res)
	}

	s.logger.Info("solve complete",
		zap.String("op", "solver.Solve"),
		zap.String("status", res.Status.String()),
		zap.Float64("objective", res.Objective),
		zap.Int("nodes", res.Nodes),
		zap.Int("candidates", res.Considered),
		zap.Int("periods", periods),
	)
	return res
}

// objective recomputes the model objective from the integer plan.
func (s *Solver) objective(selected []catalog.Candidate, res Result) float64 {
	total := 0.0
	for _, c := range selected {
		coef := coefficient(c, s.cfg)
		for _, q := range res.Quantities[c.ID] {
			total += coef * float64(q)
		}
	}
	if s.cfg.TransitStrategy == config.TransitStrategyUnits {
		costs := make(map[models.TransitMode]float64)
		for _, c := range selected {
			costs[c.Transit] = c.TransitCost
		}
		for mode, units := range res.TransitUnits {
			for _, n := range units {
				total -= costs[mode] * float64(n)
			}
		}
	}
	return total
}
