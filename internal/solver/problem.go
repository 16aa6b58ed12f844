package solver

import (
	"math"
	"sort"

	"github.com/iwvelando/procurement-planner/pkg/mathutil"
	"gonum.org/v1/gonum/mat"
)

// row is a sparse constraint Σ val·x[idx] ≤ rhs.
type row struct {
	name string
	idx  []int
	val  []float64
	rhs  float64
}

// auxVar links a transit unit counter to its capacity row.
type auxVar struct {
	index    int
	row      int
	capacity float64
}

// problem is an all-integer maximization over box-bounded variables.
type problem struct {
	obj  []float64
	lb   []float64
	ub   []float64
	rows []row
	aux  []auxVar

	// nonneg marks columns whose row coefficients are all non-negative.
	nonneg []bool
}

func (p *problem) addVar(obj, lb, ub float64) int {
	p.obj = append(p.obj, obj)
	p.lb = append(p.lb, lb)
	p.ub = append(p.ub, ub)
	return len(p.obj) - 1
}

func (p *problem) addRow(r row) int {
	p.rows = append(p.rows, r)
	return len(p.rows) - 1
}

// finalize computes column sign information once all rows are in place.
func (p *problem) finalize() {
	p.nonneg = make([]bool, len(p.obj))
	for j := range p.nonneg {
		p.nonneg[j] = true
	}
	for _, r := range p.rows {
		for k, j := range r.idx {
			if r.val[k] < 0 {
				p.nonneg[j] = false
			}
		}
	}
}

func tolerance(v float64) float64 {
	return 1e-6 * math.Max(1, math.Abs(v))
}

func floorTol(v float64) float64 {
	return math.Floor(v + 1e-9*math.Max(1, math.Abs(v)))
}

func ceilTol(v float64) float64 {
	return math.Ceil(v - 1e-9*math.Max(1, math.Abs(v)))
}

// tighten propagates row activity into the node bounds in place. It returns
// false when the bounds prove the node infeasible.
func (p *problem) tighten(lb, ub []float64) bool {
	for _, r := range p.rows {
		rest := r.rhs
		negative, negIdx := 0, -1
		for k, j := range r.idx {
			a := r.val[k]
			if a < 0 {
				negative++
				negIdx = k
				continue
			}
			rest -= a * lb[j]
		}

		switch negative {
		case 0:
			if rest < -tolerance(r.rhs) {
				return false
			}
			rest = math.Max(0, rest)
			for k, j := range r.idx {
				a := r.val[k]
				if a <= 0 {
					continue
				}
				if limit := lb[j] + floorTol(rest/a); limit < ub[j] {
					ub[j] = limit
				}
			}
		case 1:
			// A single negative term must cover the rest of the row.
			j := r.idx[negIdx]
			if need := ceilTol(-rest / -r.val[negIdx]); need > lb[j] {
				lb[j] = need
			}
		}
	}

	for j := range p.obj {
		if ub[j] < lb[j]-tolerance(lb[j]) {
			return false
		}
		if ub[j] < lb[j] {
			ub[j] = lb[j]
		}
		// Lowering a non-positive column never hurts feasibility or the objective.
		if p.obj[j] <= 0 && p.nonneg[j] {
			ub[j] = lb[j]
		}
	}
	return true
}

// objective evaluates the objective at x.
func (p *problem) objective(x []float64) float64 {
	total := 0.0
	for j, c := range p.obj {
		total += c * x[j]
	}
	return total
}

// feasible checks x against bounds and rows.
func (p *problem) feasible(x, lb, ub []float64) bool {
	for j := range x {
		if x[j] < lb[j]-tolerance(lb[j]) || x[j] > ub[j]+tolerance(ub[j]) {
			return false
		}
	}
	for _, r := range p.rows {
		activity := 0.0
		for k, j := range r.idx {
			activity += r.val[k] * x[j]
		}
		if activity > r.rhs+tolerance(r.rhs) {
			return false
		}
	}
	return true
}

type lpSolution struct {
	x   []float64
	obj float64
}

// activeRow is a row restricted to the LP columns, shifted by the lower bounds.
type activeRow struct {
	cols []int
	val  []float64
	rhs  float64
}

// relax solves the LP relaxation of the node. Variables that no active row
// touches are settled directly at the bound favored by their objective, so the
// backend only sees the coupled part of the problem.
func (p *problem) relax(backend LPBackend, lb, ub []float64) (lpSolution, error) {
	n := len(p.obj)
	x := make([]float64, n)
	copy(x, lb)

	col := make([]int, n)
	var free []int
	for j := 0; j < n; j++ {
		col[j] = -1
		if ub[j]-lb[j] > 0 {
			col[j] = len(free)
			free = append(free, j)
		}
	}

	var active []activeRow
	touched := make([]bool, len(free))
	for _, r := range p.rows {
		rhs := r.rhs
		var ar activeRow
		maxActivity := 0.0
		for k, j := range r.idx {
			a := r.val[k]
			rhs -= a * lb[j]
			c := col[j]
			if c < 0 || a == 0 {
				continue
			}
			ar.cols = append(ar.cols, c)
			ar.val = append(ar.val, a)
			if a > 0 {
				maxActivity += a * (ub[j] - lb[j])
			}
		}
		if len(ar.cols) == 0 {
			if rhs < -tolerance(r.rhs) {
				return lpSolution{}, ErrLPInfeasible
			}
			continue
		}
		if maxActivity <= rhs {
			continue
		}
		ar.rhs = rhs
		for _, c := range ar.cols {
			touched[c] = true
		}
		active = append(active, ar)
	}

	// Settle untouched columns and number the rest.
	lpIndex := make([]int, len(free))
	var lpVars []int
	for c, j := range free {
		lpIndex[c] = -1
		if touched[c] {
			lpIndex[c] = len(lpVars)
			lpVars = append(lpVars, j)
			continue
		}
		if p.obj[j] > 0 {
			if math.IsInf(ub[j], 1) {
				return lpSolution{}, ErrLPUnbounded
			}
			x[j] = ub[j]
		}
	}
	if len(lpVars) == 0 {
		return lpSolution{x: x, obj: p.objective(x)}, nil
	}

	// Column bounds already implied by a non-negative row need no extra row.
	implied := make([]float64, len(lpVars))
	for i := range implied {
		implied[i] = math.Inf(1)
	}
	for _, ar := range active {
		if ar.rhs < 0 {
			continue
		}
		allPositive := true
		for _, a := range ar.val {
			if a <= 0 {
				allPositive = false
				break
			}
		}
		if !allPositive {
			continue
		}
		for k, c := range ar.cols {
			i := lpIndex[c]
			implied[i] = math.Min(implied[i], ar.rhs/ar.val[k])
		}
	}
	for i, j := range lpVars {
		width := ub[j] - lb[j]
		if math.IsInf(width, 1) || implied[i] <= width {
			continue
		}
		active = append(active, activeRow{cols: []int{col[j]}, val: []float64{1}, rhs: width})
	}

	k := len(lpVars)
	m := len(active)
	A := mat.NewDense(m, k+m, nil)
	b := make([]float64, m)
	cost := make([]float64, k+m)
	for i, j := range lpVars {
		cost[i] = -p.obj[j]
	}

	feasibleStart := true
	for i, ar := range active {
		scale := 0.0
		for _, a := range ar.val {
			scale = math.Max(scale, math.Abs(a))
		}
		if scale == 0 {
			scale = 1
		}
		for t, c := range ar.cols {
			A.Set(i, lpIndex[c], ar.val[t]/scale)
		}
		A.Set(i, k+i, 1)
		b[i] = ar.rhs / scale
		if b[i] < 0 {
			feasibleStart = false
		}
	}

	var basis []int
	if feasibleStart {
		basis = make([]int, m)
		for i := range basis {
			basis[i] = k + i
		}
	}

	y, err := backend.Solve(cost, A, b, basis)
	if err != nil {
		return lpSolution{}, err
	}
	for i, j := range lpVars {
		x[j] = lb[j] + math.Max(0, math.Min(y[i], ub[j]-lb[j]))
	}
	return lpSolution{x: x, obj: p.objective(x)}, nil
}

// mostFractional returns the variable furthest from an integer, or -1.
func mostFractional(x []float64, tol float64) int {
	best, bestDist := -1, tol
	for j, v := range x {
		if mathutil.IsIntegral(v, tol) {
			continue
		}
		frac := v - math.Floor(v)
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

// roundHeuristic builds an integer point from an LP solution: quantities are
// rounded down, transit unit counters are recomputed from the committed size,
// and when there are no counters the remaining row slack is filled greedily.
func (p *problem) roundHeuristic(x, lb, ub []float64) ([]float64, bool) {
	cand := make([]float64, len(x))
	isAux := make([]bool, len(x))
	for _, a := range p.aux {
		isAux[a.index] = true
	}
	for j, v := range x {
		cand[j] = math.Max(lb[j], floorTol(v))
	}

	for _, a := range p.aux {
		committed := 0.0
		r := p.rows[a.row]
		for k, j := range r.idx {
			if j != a.index {
				committed += r.val[k] * cand[j]
			}
		}
		cand[a.index] = math.Max(lb[a.index], ceilTol(committed/a.capacity))
	}

	if len(p.aux) == 0 {
		p.greedyFill(cand, ub)
	}

	if !p.feasible(cand, lb, ub) {
		return nil, false
	}
	return cand, true
}

func (p *problem) greedyFill(x, ub []float64) {
	slack := make([]float64, len(p.rows))
	for i, r := range p.rows {
		slack[i] = r.rhs
		for k, j := range r.idx {
			slack[i] -= r.val[k] * x[j]
		}
	}
	colRows := make([][]int, len(x))
	colVals := make([][]float64, len(x))
	for i, r := range p.rows {
		for k, j := range r.idx {
			colRows[j] = append(colRows[j], i)
			colVals[j] = append(colVals[j], r.val[k])
		}
	}

	order := make([]int, 0, len(x))
	for j := range x {
		if p.obj[j] > 0 && p.nonneg[j] && x[j] < ub[j] {
			order = append(order, j)
		}
	}
	p.sortByDensity(order, colRows, colVals)

	for _, j := range order {
		room := ub[j] - x[j]
		for t, i := range colRows[j] {
			a := colVals[j][t]
			if a <= 0 {
				continue
			}
			room = math.Min(room, floorTol(math.Max(0, slack[i])/a))
		}
		if room <= 0 || math.IsInf(room, 1) {
			continue
		}
		x[j] += room
		for t, i := range colRows[j] {
			slack[i] -= colVals[j][t] * room
		}
	}
}

// sortByDensity orders columns by objective per unit of normalized row usage,
// best first.
func (p *problem) sortByDensity(order []int, colRows [][]int, colVals [][]float64) {
	density := make(map[int]float64, len(order))
	for _, j := range order {
		usage := 0.0
		for t, i := range colRows[j] {
			usage += colVals[j][t] / math.Max(math.Abs(p.rows[i].rhs), 1e-9)
		}
		if usage <= 0 {
			density[j] = math.Inf(1)
			continue
		}
		density[j] = p.obj[j] / usage
	}
	sort.SliceStable(order, func(a, b int) bool {
		return density[order[a]] > density[order[b]]
	})
}
