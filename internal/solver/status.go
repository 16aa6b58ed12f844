package solver

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/procurement-planner/internal/models"
)

// Status is the terminal state of a solve.
type Status int

const (
	// Optimal means the search proved the returned plan optimal.
	Optimal Status = iota
	// Feasible means a plan was found but the search stopped early.
	Feasible
	// Infeasible means no assignment satisfies the constraints.
	Infeasible
	// Unbounded means the objective can grow without limit.
	Unbounded
	// Abnormal means the LP backend failed numerically without a usable plan.
	Abnormal
	// Error means the model could not be built or the backend faulted.
	Error
)

var statusNames = map[Status]string{
	Optimal:    "OPTIMAL",
	Feasible:   "FEASIBLE",
	Infeasible: "INFEASIBLE",
	Unbounded:  "UNBOUNDED",
	Abnormal:   "ABNORMAL",
	Error:      "ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown solver status %q", text)
}

// HasSolution reports whether the status carries a usable plan.
func (s Status) HasSolution() bool {
	return s == Optimal || s == Feasible
}

// severity orders statuses when per-period results are combined.
func (s Status) severity() int {
	switch s {
	case Error:
		return 5
	case Infeasible:
		return 4
	case Unbounded:
		return 3
	case Abnormal:
		return 2
	case Feasible:
		return 1
	default:
		return 0
	}
}

func worse(a, b Status) Status {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// ErrBackendUnavailable is carried in Result.Err when no LP backend is set.
var ErrBackendUnavailable = errors.New("solver backend unavailable")

// FaultError wraps a panic or build failure caught at the solver boundary.
type FaultError struct {
	Stage string
	Cause interface{}
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("solver fault during %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the cause when it is an error.
func (e *FaultError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// Result is the typed outcome of Solve. It is always returned, never a panic.
type Result struct {
	Status    Status  `json:"status"`
	Objective float64 `json:"objectiveValue"`
	// Quantities maps candidate id to its quantity in each period. Only
	// candidates that entered the model are present.
	Quantities map[string][]int `json:"quantities,omitempty"`
	// TransitUnits holds the shipping units per mode and period under the
	// units strategy.
	TransitUnits    map[models.TransitMode][]int `json:"transitUnits,omitempty"`
	TransitStrategy string                       `json:"transitStrategy"`
	Periods         int                          `json:"periods"`
	Considered      int                          `json:"considered"`
	Dropped         int                          `json:"dropped"`
	Nodes           int                          `json:"nodes"`
	Elapsed         time.Duration                `json:"elapsed"`
	Message         string                       `json:"message,omitempty"`
	Err             error                        `json:"-"`
}

// Quantity returns the total quantity of id across all periods.
func (r Result) Quantity(id string) int {
	total := 0
	for _, q := range r.Quantities[id] {
		total += q
	}
	return total
}

func errorResult(err error) Result {
	return Result{Status: Error, Err: err, Message: err.Error()}
}
