// Package models holds the economic models that map a (price, size) pair onto
// the attributes of a candidate product. Every model is a pure function of its
// inputs and an explicit noise source.
package models

import (
	"math"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/pkg/mathutil"
)

// Noise supplies uniform draws in [0, 1). *rand.Rand from math/rand/v2
// satisfies it.
type Noise interface {
	Float64() float64
}

// uniform draws from [lo, hi).
func uniform(n Noise, lo, hi float64) float64 {
	return lo + (hi-lo)*n.Float64()
}

// perturb multiplies value by a draw from [1-noise, 1+noise].
func perturb(n Noise, value, noise float64) float64 {
	return value * uniform(n, 1-noise, 1+noise)
}

// DemandModel estimates the probability that a unit sells.
type DemandModel struct {
	cfg config.DemandConfig
}

// NewDemandModel creates a DemandModel.
func NewDemandModel(cfg config.DemandConfig) DemandModel {
	return DemandModel{cfg: cfg}
}

// Evaluate returns a demand probability within [MinDemand, MaxDemand].
func (m DemandModel) Evaluate(price, size float64, n Noise) float64 {
	priceNorm := mathutil.LogNorm(price, 1, m.cfg.PriceScale, 10)
	sizeNorm := mathutil.LogNorm(size, 1, m.cfg.SizeScale, 10)
	penalty := m.cfg.PriceSensitivity*priceNorm + m.cfg.SizeSensitivity*sizeNorm
	demand := perturb(n, m.cfg.BaseDemand*math.Exp(-penalty), m.cfg.Noise)
	return mathutil.Clamp(demand, m.cfg.MinDemand, m.cfg.MaxDemand)
}

// MarkupModel computes the resale markup rate from price.
type MarkupModel struct {
	cfg config.MarkupConfig
}

// NewMarkupModel creates a MarkupModel.
func NewMarkupModel(cfg config.MarkupConfig) MarkupModel {
	return MarkupModel{cfg: cfg}
}

// Evaluate returns a markup rate within [MinRate, MaxRateClamp].
func (m MarkupModel) Evaluate(price float64, n Noise) float64 {
	factor := math.Log10(math.Max(1, price)) / m.cfg.PriceDivisor
	rate := mathutil.Clamp(m.cfg.BaseRate+m.cfg.PriceScale*factor, m.cfg.MinRate, m.cfg.MaxRate)
	rate = perturb(n, rate, m.cfg.Noise)
	return mathutil.Clamp(rate, m.cfg.MinRate, m.cfg.MaxRateClamp)
}

// LogisticsModel is a U-shaped handling difficulty curve in log size,
// cheapest at the optimal size.
type LogisticsModel struct {
	cfg      config.LogisticsConfig
	optimal  float64
	baseCost float64
}

// NewLogisticsModel creates a LogisticsModel.
func NewLogisticsModel(cfg config.LogisticsConfig, optimal, baseCost float64) LogisticsModel {
	return LogisticsModel{cfg: cfg, optimal: optimal, baseCost: baseCost}
}

// Evaluate returns a difficulty within [0, MaxDifficulty].
func (m LogisticsModel) Evaluate(size float64) float64 {
	diff := math.Log10(math.Max(m.cfg.MinSizeLog, size)) - math.Log10(m.optimal)
	value := m.baseCost + m.cfg.PenaltyFactor*diff*diff
	return mathutil.Clamp(value, 0, m.cfg.MaxDifficulty)
}

// Attributes are the model outputs for one (price, size) pair.
type Attributes struct {
	Transit   Transit
	Demand    float64
	Logistics float64
	Markup    float64
	Stock     Stock
}

// Bank groups the five models built from one configuration.
type Bank struct {
	Demand    DemandModel
	Markup    MarkupModel
	Transit   TransitModel
	Logistics LogisticsModel
	Stock     StockModel
}

// NewBank builds every model from a normalized configuration.
func NewBank(conf *config.Configuration) *Bank {
	return &Bank{
		Demand:    NewDemandModel(conf.Demand),
		Markup:    NewMarkupModel(conf.Markup),
		Transit:   NewTransitModel(conf.Transit),
		Logistics: NewLogisticsModel(conf.Logistics, conf.Generation.LogisticsOptimal, conf.Generation.LogisticsBaseCost),
		Stock:     NewStockModel(conf.Stock),
	}
}

// Evaluate runs all models for one pair. Draws are taken from n in a fixed
// order: transit, demand, markup, stock.
func (b *Bank) Evaluate(price, size float64, n Noise) Attributes {
	transit := b.Transit.Assign(price, size, n)
	demand := b.Demand.Evaluate(price, size, n)
	logistics := b.Logistics.Evaluate(size)
	markup := b.Markup.Evaluate(price, n)
	stock := b.Stock.Generate(price, size, n)

	return Attributes{
		Transit:   transit,
		Demand:    demand,
		Logistics: logistics,
		Markup:    markup,
		Stock:     stock,
	}
}
