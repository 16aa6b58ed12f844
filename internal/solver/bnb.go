package solver

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/procurement-planner/pkg/constants"
)

// searchLimits bound a branch-and-bound run.
type searchLimits struct {
	deadline time.Time
	maxNodes int
	now      func() time.Time
}

func (l searchLimits) reached(nodes int) bool {
	if l.maxNodes > 0 && nodes >= l.maxNodes {
		return true
	}
	return !l.deadline.IsZero() && !l.now().Before(l.deadline)
}

type node struct {
	lb, ub []float64
	bound  float64
}

// searchResult is the outcome of one branch-and-bound run.
type searchResult struct {
	status  Status
	x       []float64
	obj     float64
	nodes   int
	message string
}

// branchAndBound maximizes p with depth-first search over LP relaxations,
// branching on the most fractional variable. The root is always evaluated; the
// deadline is checked between later nodes and a relaxation is never interrupted.
func branchAndBound(p *problem, backend LPBackend, limits searchLimits) searchResult {
	if limits.now == nil {
		limits.now = time.Now
	}

	rootLB := append([]float64(nil), p.lb...)
	rootUB := append([]float64(nil), p.ub...)
	if !p.tighten(rootLB, rootUB) {
		return searchResult{status: Infeasible, message: "constraints admit no assignment"}
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(-1)
		nodes        int
		numeric      int
		limitHit     bool
	)
	better := func(obj float64) bool {
		return incumbent == nil || obj > incumbentObj+tolerance(incumbentObj)*1e-3
	}
	offer := func(x []float64) {
		obj := p.objective(x)
		if better(obj) {
			incumbent, incumbentObj = x, obj
		}
	}

	stack := []node{{lb: rootLB, ub: rootUB, bound: math.Inf(1)}}
	for len(stack) > 0 {
		if nodes > 0 && limits.reached(nodes) {
			limitHit = true
			break
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		root := nodes == 0
		nodes++

		if incumbent != nil && !better(nd.bound) {
			continue
		}
		if !root && !p.tighten(nd.lb, nd.ub) {
			continue
		}

		sol, err := p.relax(backend, nd.lb, nd.ub)
		if err != nil {
			switch {
			case errors.Is(err, ErrLPInfeasible):
				if root {
					return searchResult{status: Infeasible, nodes: nodes, message: "constraints admit no assignment"}
				}
			case errors.Is(err, ErrLPUnbounded):
				if root {
					return searchResult{status: Unbounded, nodes: nodes, message: "objective is unbounded; set a budget or space limit"}
				}
				numeric++
			default:
				if root {
					return searchResult{status: Abnormal, nodes: nodes, message: fmt.Sprintf("root relaxation failed: %v", err)}
				}
				numeric++
			}
			continue
		}

		if incumbent != nil && !better(sol.obj) {
			continue
		}

		j := mostFractional(sol.x, constants.IntegralityTolerance)
		if j < 0 {
			x := make([]float64, len(sol.x))
			for i, v := range sol.x {
				x[i] = math.Round(v)
			}
			if p.feasible(x, nd.lb, nd.ub) {
				offer(x)
			}
			continue
		}

		if x, ok := p.roundHeuristic(sol.x, nd.lb, nd.ub); ok {
			offer(x)
		}

		v := sol.x[j]
		down := node{lb: clone(nd.lb), ub: clone(nd.ub), bound: sol.obj}
		down.ub[j] = math.Floor(v)
		up := node{lb: clone(nd.lb), ub: clone(nd.ub), bound: sol.obj}
		up.lb[j] = math.Ceil(v)

		// The branch nearer the relaxed value is explored first.
		if v-math.Floor(v) >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	res := searchResult{nodes: nodes, x: incumbent, obj: incumbentObj}
	switch {
	case incumbent == nil && (limitHit || numeric > 0):
		res.status = Abnormal
		res.message = "no integer solution found before the search stopped"
	case incumbent == nil:
		res.status = Infeasible
		res.message = "no integer assignment satisfies the constraints"
	case limitHit:
		res.status = Feasible
		res.message = "search limit reached; returning best plan found"
	case numeric > 0:
		res.status = Feasible
		res.message = fmt.Sprintf("%d nodes pruned after numerical failures", numeric)
	default:
		res.status = Optimal
	}
	return res
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
