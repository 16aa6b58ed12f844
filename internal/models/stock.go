package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/pkg/mathutil"
)

const unboundedLabel = "unbounded"

// Stock is a supply cap: either a non-negative unit count or unbounded.
// The zero value is a limit of zero units.
type Stock struct {
	limit     int
	unbounded bool
}

// Unbounded returns a Stock with no supply limit.
func Unbounded() Stock {
	return Stock{unbounded: true}
}

// Limited returns a Stock capped at n units; negative n is treated as zero.
func Limited(n int) Stock {
	if n < 0 {
		n = 0
	}
	return Stock{limit: n}
}

// IsUnbounded reports whether the stock has no limit.
func (s Stock) IsUnbounded() bool {
	return s.unbounded
}

// Limit returns the cap and true, or 0 and false when unbounded.
func (s Stock) Limit() (int, bool) {
	if s.unbounded {
		return 0, false
	}
	return s.limit, true
}

// Bound is the cap as a float, +Inf when unbounded.
func (s Stock) Bound() float64 {
	if s.unbounded {
		return math.Inf(1)
	}
	return float64(s.limit)
}

func (s Stock) String() string {
	if s.unbounded {
		return unboundedLabel
	}
	return strconv.Itoa(s.limit)
}

// ParseStock is the inverse of String.
func ParseStock(text string) (Stock, error) {
	if text == unboundedLabel {
		return Unbounded(), nil
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return Stock{}, fmt.Errorf("invalid stock %q", text)
	}
	return Limited(n), nil
}

// MarshalJSON encodes a limit as a number and unbounded stock as "unbounded".
func (s Stock) MarshalJSON() ([]byte, error) {
	if s.unbounded {
		return json.Marshal(unboundedLabel)
	}
	return json.Marshal(s.limit)
}

func (s *Stock) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		parsed, perr := ParseStock(label)
		if perr != nil {
			return perr
		}
		*s = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid stock %s", data)
	}
	*s = Limited(n)
	return nil
}

// StockModel generates supply limits. Cheap small items are likelier to be
// unbounded; otherwise the cap decays with price and size.
type StockModel struct {
	cfg config.StockConfig
}

// NewStockModel creates a StockModel.
func NewStockModel(cfg config.StockConfig) StockModel {
	return StockModel{cfg: cfg}
}

// UnboundedChance is the probability of drawing unbounded supply.
func (m StockModel) UnboundedChance(price, size float64) float64 {
	decay := m.cfg.UnboundedDecayScale
	chance := m.cfg.UnboundedChanceBase *
		math.Exp(-price/decay) *
		math.Exp(-size/(decay*m.cfg.UnboundedDecaySizeMultiplier))
	return mathutil.Clamp01(chance)
}

// Generate draws a supply limit, never below MinStock.
func (m StockModel) Generate(price, size float64, n Noise) Stock {
	if n.Float64() < m.UnboundedChance(price, size) {
		return Unbounded()
	}

	priceNorm := mathutil.LogNorm(price, m.cfg.MinPriceNorm, m.cfg.PriceScale, m.cfg.MinScale)
	sizeNorm := mathutil.LogNorm(size, m.cfg.MinSizeNorm, m.cfg.SizeScale, m.cfg.MinScale)
	penalty := m.cfg.PriceSensitivity*priceNorm + m.cfg.SizeSensitivity*sizeNorm
	stock := perturb(n, m.cfg.BaseStock*math.Exp(-penalty), m.cfg.Noise)

	units := int(stock)
	if units < m.cfg.MinStock {
		units = m.cfg.MinStock
	}
	return Limited(units)
}
