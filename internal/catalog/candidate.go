// Package catalog generates the candidate products that feed the procurement
// solver.
package catalog

import (
	"github.com/iwvelando/procurement-planner/internal/models"
)

// Candidate is one synthesized product. It is created once per generation run
// and treated as read-only afterwards.
type Candidate struct {
	ID              string             `json:"id"`
	Price           float64            `json:"price"`
	Size            float64            `json:"size"`
	Demand          float64            `json:"demand"`
	Markup          float64            `json:"markup"`
	Logistics       float64            `json:"logistics"`
	Transit         models.TransitMode `json:"transit"`
	TransitCapacity float64            `json:"transitCapacity"`
	TransitCost     float64            `json:"transitCost"`
	Stock           models.Stock       `json:"stock"`
}

// UnitScore is the expected profit of one unit: demand·(1−logistics)·markup·price.
func (c Candidate) UnitScore() float64 {
	return UnitScore(c.Price, c.Demand, c.Logistics, c.Markup)
}

// UnitScore computes demand·(1−logistics)·markup·price.
func UnitScore(price, demand, logistics, markup float64) float64 {
	return demand * (1 - logistics) * markup * price
}

// TransitRate is the transit cost per unit of size under the rate approximation.
func (c Candidate) TransitRate() float64 {
	if c.TransitCapacity <= 0 {
		return 0
	}
	return c.TransitCost / c.TransitCapacity
}
