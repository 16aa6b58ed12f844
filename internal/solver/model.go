package solver

import (
	"fmt"
	"math"
	"sort"

	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/forecast"
	"github.com/iwvelando/procurement-planner/internal/models"
)

// periodModel is the MILP of one planning period. Periods share no
// constraints, so each is solved on its own.
type periodModel struct {
	period int
	prob   *problem
	// qty[i] is the variable of candidate i.
	qty []int
	// units holds the transit unit counter per mode under the units strategy.
	units map[models.TransitMode]int
}

// modeProfile is the shared capacity and cost of a mode in the units strategy.
type modeProfile struct {
	capacity float64
	cost     float64
}

// coefficient is the objective weight of one unit of c, net of duty and,
// under the rate strategy, of approximate transit cost.
func coefficient(c catalog.Candidate, cfg config.SolverConfig) float64 {
	coef := c.UnitScore()
	if cfg.TransitStrategy == config.TransitStrategyRate {
		coef -= c.TransitRate() * c.Size
	}
	if cfg.CrossBorder {
		coef -= cfg.DutyRate * c.Price
	}
	return coef
}

// validateTransit rejects candidates whose transit profile cannot be modeled.
func validateTransit(candidates []catalog.Candidate, strategy string) (map[models.TransitMode]modeProfile, error) {
	profiles := make(map[models.TransitMode]modeProfile)
	for _, c := range candidates {
		if c.TransitCapacity <= 0 || math.IsNaN(c.TransitCapacity) {
			return nil, fmt.Errorf("candidate %s: transit capacity must be positive, got %v", c.ID, c.TransitCapacity)
		}
		if c.TransitCost < 0 || math.IsNaN(c.TransitCost) {
			return nil, fmt.Errorf("candidate %s: transit cost must not be negative, got %v", c.ID, c.TransitCost)
		}
		if strategy != config.TransitStrategyUnits {
			continue
		}
		p := modeProfile{capacity: c.TransitCapacity, cost: c.TransitCost}
		if prev, ok := profiles[c.Transit]; ok && prev != p {
			return nil, fmt.Errorf("candidate %s: %s profile %v/%v differs from %v/%v", c.ID, c.Transit, p.capacity, p.cost, prev.capacity, prev.cost)
		}
		profiles[c.Transit] = p
	}
	return profiles, nil
}

// prefilter keeps the limit candidates with the most value they can deliver
// in one period, preserving input order. It returns the kept indices.
func prefilter(candidates []catalog.Candidate, cfg config.SolverConfig, limit int) []int {
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	if limit <= 0 || len(candidates) <= limit {
		return idx
	}

	rank := make([]float64, len(candidates))
	ratio := make([]float64, len(candidates))
	for i, c := range candidates {
		coef := coefficient(c, cfg)
		ratio[i] = coef / math.Max(c.Price, 1e-9)
		if coef <= 0 {
			rank[i] = coef
			continue
		}
		rank[i] = coef * deliverable(c, cfg)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if rank[idx[a]] != rank[idx[b]] {
			return rank[idx[a]] > rank[idx[b]]
		}
		return ratio[idx[a]] > ratio[idx[b]]
	})
	kept := idx[:limit]
	sort.Ints(kept)
	return kept
}

// deliverable is the most units of c a single period can hold when c is
// bought alone: its stock bound cut by the budget and space limits.
func deliverable(c catalog.Candidate, cfg config.SolverConfig) float64 {
	units := upperBound(c, cfg, nil, 1)
	if cfg.Budget != nil && c.Price > 0 {
		units = math.Min(units, math.Floor(*cfg.Budget/c.Price))
	}
	if cfg.Space != nil && c.Size > 0 {
		units = math.Min(units, math.Floor(*cfg.Space/c.Size))
	}
	return math.Max(units, 0)
}

// upperBound is the per-period cap of candidate c.
func upperBound(c catalog.Candidate, cfg config.SolverConfig, fc *forecast.Forecast, period int) float64 {
	ub := c.Stock.Bound()
	if cfg.IgnoreStock {
		ub = 1
	}
	if fc != nil {
		ub = math.Min(ub, fc.Bound(c.Demand, period))
	}
	return ub
}

// buildPeriod assembles the MILP of one period.
func buildPeriod(candidates []catalog.Candidate, cfg config.SolverConfig, fc *forecast.Forecast, profiles map[models.TransitMode]modeProfile, period int) *periodModel {
	pm := &periodModel{period: period, prob: &problem{}, qty: make([]int, len(candidates))}
	p := pm.prob

	for i, c := range candidates {
		pm.qty[i] = p.addVar(coefficient(c, cfg), 0, upperBound(c, cfg, fc, period))
	}

	sumRow := func(name string, weight func(catalog.Candidate) float64, rhs float64) row {
		r := row{name: name, rhs: rhs}
		for i, c := range candidates {
			if w := weight(c); w != 0 {
				r.idx = append(r.idx, pm.qty[i])
				r.val = append(r.val, w)
			}
		}
		return r
	}
	price := func(c catalog.Candidate) float64 { return c.Price }
	size := func(c catalog.Candidate) float64 { return c.Size }

	if cfg.Budget != nil {
		p.addRow(sumRow("budget", price, *cfg.Budget))
	}
	if cfg.Space != nil {
		p.addRow(sumRow("space", size, *cfg.Space))
	}
	if cfg.Horizon != nil && cfg.Horizon.VolumeCeiling != nil {
		p.addRow(sumRow("volume", size, *cfg.Horizon.VolumeCeiling))
	}

	if cfg.TransitStrategy == config.TransitStrategyUnits {
		pm.units = make(map[models.TransitMode]int)
		for _, mode := range models.TransitModes {
			profile, ok := profiles[mode]
			if !ok {
				continue
			}
			r := sumRow("transit."+mode.String(), func(c catalog.Candidate) float64 {
				if c.Transit != mode {
					return 0
				}
				return c.Size
			}, 0)
			if len(r.idx) == 0 {
				continue
			}
			n := p.addVar(-profile.cost, 0, math.Inf(1))
			r.idx = append(r.idx, n)
			r.val = append(r.val, -profile.capacity)
			rowIdx := p.addRow(r)
			p.aux = append(p.aux, auxVar{index: n, row: rowIdx, capacity: profile.capacity})
			pm.units[mode] = n
		}
	}

	p.finalize()
	return pm
}
