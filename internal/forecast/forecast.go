// Package forecast projects per-period unit demand for multi-period purchase
// planning.
package forecast

import (
	"fmt"
	"math"

	"github.com/iwvelando/procurement-planner/internal/config"
	"go.uber.org/zap"
)

// Period holds the demand multipliers of one planning period. Month is 1-based.
type Period struct {
	Month    int     `json:"month"`
	Seasonal float64 `json:"seasonal"`
	Trend    float64 `json:"trend"`
}

// Factor is the combined seasonal and trend multiplier.
func (p Period) Factor() float64 {
	return p.Seasonal * p.Trend
}

// Forecast turns a candidate's demand probability into per-period unit bounds.
type Forecast struct {
	Periods    []Period `json:"periods"`
	Scale      float64  `json:"scale"`
	Multiplier float64  `json:"multiplier"`
	Buffer     float64  `json:"buffer"`
}

// GetForecast builds the forecast for the configured horizon. A nil horizon
// yields a nil Forecast, meaning single-period planning.
func GetForecast(logger *zap.Logger, horizon *config.HorizonConfig) (*Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if horizon == nil {
		return nil, nil
	}
	if horizon.Periods < 1 {
		return nil, fmt.Errorf("forecast horizon needs at least one period, got %d", horizon.Periods)
	}

	f := &Forecast{
		Periods:    make([]Period, horizon.Periods),
		Scale:      horizon.DemandScale,
		Multiplier: horizon.DemandMultiplier,
		Buffer:     horizon.Buffer,
	}
	for m := 1; m <= horizon.Periods; m++ {
		f.Periods[m-1] = Period{
			Month:    m,
			Seasonal: SeasonalFactor(horizon.SeasonalFactors, m),
			Trend:    math.Pow(horizon.TrendFactor, float64(m-1)),
		}
	}

	logger.Debug(fmt.Sprintf("built %d period demand forecast", len(f.Periods)),
		zap.String("op", "forecast.GetForecast"),
		zap.Float64("trendFactor", horizon.TrendFactor),
		zap.Float64("buffer", horizon.Buffer),
	)
	return f, nil
}

// SeasonalFactor cycles through factors by month; an empty table gives 1.0.
func SeasonalFactor(factors []float64, month int) float64 {
	if len(factors) == 0 || month < 1 {
		return 1.0
	}
	return factors[(month-1)%len(factors)]
}

// Units is the expected unit demand in period m (1-based):
// demand·scale·seasonal(m)·trend^(m−1).
func (f *Forecast) Units(demand float64, m int) float64 {
	if m < 1 || m > len(f.Periods) {
		return 0
	}
	return demand * f.Scale * f.Periods[m-1].Factor()
}

// Bound is the purchase cap for period m: floor(max(0, units·multiplier·buffer)).
func (f *Forecast) Bound(demand float64, m int) float64 {
	return math.Floor(math.Max(0, f.Units(demand, m)*f.Multiplier*f.Buffer))
}
