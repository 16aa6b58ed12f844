// Package results turns a solver outcome into the auditable purchase report.
package results

import (
	"sort"

	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/models"
	"github.com/iwvelando/procurement-planner/internal/solver"
	"github.com/iwvelando/procurement-planner/pkg/constants"
	"github.com/iwvelando/procurement-planner/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// moneyPlaces is the precision of reported money amounts.
const moneyPlaces = 2

// Entry is one purchased candidate.
type Entry struct {
	ID         string             `json:"id"`
	Quantity   int                `json:"quantity"`
	Periods    []int              `json:"periods,omitempty"`
	Price      float64            `json:"price"`
	Size       float64            `json:"size"`
	Demand     float64            `json:"demand"`
	Logistics  float64            `json:"logistics"`
	Markup     float64            `json:"markup"`
	Stock      models.Stock       `json:"stock"`
	Transit    models.TransitMode `json:"transit"`
	UnitScore  float64            `json:"unitScore"`
	TotalScore float64            `json:"totalScore"`
	Cost       decimal.Decimal    `json:"cost"`
	Revenue    decimal.Decimal    `json:"revenue"`
	Margin     decimal.Decimal    `json:"margin"`
}

// Results is the report of one solve.
type Results struct {
	Status         solver.Status                `json:"status"`
	ObjectiveValue float64                      `json:"objectiveValue"`
	Message        string                       `json:"message,omitempty"`
	Periods        int                          `json:"periods"`
	Dropped        int                          `json:"dropped"`
	// Entries are the product totals, one per ID, ordered by total score.
	// Use Find for lookup by ID.
	Entries        []Entry                      `json:"productTotals"`
	TransitUnits   map[models.TransitMode][]int `json:"transitUnits,omitempty"`
	TotalUnits     int                          `json:"totalUnits"`
	TotalCost      decimal.Decimal              `json:"totalCost"`
	TotalRevenue   decimal.Decimal              `json:"totalRevenue"`
	TotalMargin    decimal.Decimal              `json:"totalMargin"`
}

// Extract builds the report for res. Candidates without a positive quantity
// are left out, and scores are recomputed from the candidate attributes rather
// than read back from the model. Entries are ordered by total score, highest
// first.
func Extract(res solver.Result, candidates []catalog.Candidate) Results {
	out := Results{
		Status:         res.Status,
		ObjectiveValue: res.Objective,
		Message:        res.Message,
		Periods:        res.Periods,
		Dropped:        res.Dropped,
		TransitUnits:   res.TransitUnits,
		TotalCost:      decimal.Zero,
		TotalRevenue:   decimal.Zero,
		TotalMargin:    decimal.Zero,
	}
	if !res.Status.HasSolution() {
		out.ObjectiveValue = 0
		return out
	}

	for _, c := range candidates {
		qty := res.Quantity(c.ID)
		if qty <= 0 {
			continue
		}
		e := newEntry(c, qty)
		if len(res.Quantities[c.ID]) > 1 {
			e.Periods = append([]int(nil), res.Quantities[c.ID]...)
		}
		out.Entries = append(out.Entries, e)
		out.TotalUnits += qty
		out.TotalCost = out.TotalCost.Add(e.Cost)
		out.TotalRevenue = out.TotalRevenue.Add(e.Revenue)
		out.TotalMargin = out.TotalMargin.Add(e.Margin)
	}

	sort.SliceStable(out.Entries, func(i, j int) bool {
		if out.Entries[i].TotalScore != out.Entries[j].TotalScore {
			return out.Entries[i].TotalScore > out.Entries[j].TotalScore
		}
		return out.Entries[i].ID < out.Entries[j].ID
	})
	return out
}

func newEntry(c catalog.Candidate, qty int) Entry {
	score := c.UnitScore()
	units := decimal.NewFromInt(int64(qty))
	price := decimal.NewFromFloat(c.Price)

	cost := price.Mul(units)
	revenue := price.Mul(decimal.NewFromFloat(1 + c.Markup)).Mul(units)

	return Entry{
		ID:         c.ID,
		Quantity:   qty,
		Price:      c.Price,
		Size:       c.Size,
		Demand:     c.Demand,
		Logistics:  c.Logistics,
		Markup:     c.Markup,
		Stock:      c.Stock,
		Transit:    c.Transit,
		UnitScore:  mathutil.Round(score, constants.ScorePrecision),
		TotalScore: mathutil.Round(score*float64(qty), constants.ScorePrecision),
		Cost:       cost.Round(moneyPlaces),
		Revenue:    revenue.Round(moneyPlaces),
		Margin:     revenue.Sub(cost).Round(moneyPlaces),
	}
}

// Find returns the entry for id, or nil.
func (r Results) Find(id string) *Entry {
	for i := range r.Entries {
		if r.Entries[i].ID == id {
			return &r.Entries[i]
		}
	}
	return nil
}
