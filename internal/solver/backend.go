package solver

import (
	"errors"
	"fmt"

	"github.com/iwvelando/procurement-planner/pkg/constants"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var (
	// ErrLPInfeasible is returned by a backend when the relaxation has no solution.
	ErrLPInfeasible = errors.New("lp relaxation infeasible")
	// ErrLPUnbounded is returned by a backend when the relaxation is unbounded.
	ErrLPUnbounded = errors.New("lp relaxation unbounded")
)

// LPBackend solves minimize cᵀx subject to Ax = b, x ≥ 0. initialBasic, when
// non-nil, lists m columns forming a feasible starting basis. Any error other
// than ErrLPInfeasible or ErrLPUnbounded is treated as a numerical failure.
type LPBackend interface {
	Solve(c []float64, A *mat.Dense, b []float64, initialBasic []int) ([]float64, error)
}

// GonumSimplex solves relaxations with gonum's dense simplex.
type GonumSimplex struct {
	Tol float64
}

// Solve implements LPBackend.
func (g GonumSimplex) Solve(c []float64, A *mat.Dense, b []float64, initialBasic []int) ([]float64, error) {
	tol := g.Tol
	if tol <= 0 {
		tol = constants.SimplexTolerance
	}

	_, x, err := lp.Simplex(c, A, b, tol, initialBasic)
	switch {
	case err == nil:
		return x, nil
	case errors.Is(err, lp.ErrInfeasible):
		return nil, ErrLPInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return nil, ErrLPUnbounded
	default:
		return nil, fmt.Errorf("simplex: %w", err)
	}
}
