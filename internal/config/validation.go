package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/procurement-planner/pkg/constants"
	"github.com/iwvelando/procurement-planner/pkg/mathutil"
	"go.uber.org/multierr"
)

// ConfigurationError reports every problem found while validating a
// configuration. It is returned before any generation work starts.
type ConfigurationError struct {
	Err error
}

func newConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{Err: err}
}

func (e *ConfigurationError) Error() string {
	problems := e.Problems()
	msgs := make([]string, len(problems))
	for i, p := range problems {
		msgs[i] = p.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Problems lists the individual validation failures.
func (e *ConfigurationError) Problems() []error {
	return multierr.Errors(e.Err)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Validate checks every section and returns a *ConfigurationError describing
// all problems, or nil.
func (c *Configuration) Validate() error {
	var err error
	add := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	g := c.Generation
	validateRange(add, "generation.priceRange", g.PriceRange)
	validateRange(add, "generation.sizeRange", g.SizeRange)
	if g.LogisticsOptimal <= 0 {
		add("generation.logisticsOptimal must be positive, got %v", g.LogisticsOptimal)
	}
	if _, zerr := g.ResolvePriceZones(); zerr != nil {
		add("generation.priceZones: %v", zerr)
	}
	if _, zerr := g.ResolveSizeZones(); zerr != nil {
		add("generation.sizeZones: %v", zerr)
	}

	d := c.Demand
	if d.MinDemand > d.MaxDemand {
		add("demand.minDemand %v exceeds demand.maxDemand %v", d.MinDemand, d.MaxDemand)
	}
	validateNoise(add, "demand.noise", d.Noise)

	m := c.Markup
	if m.PriceDivisor == 0 {
		add("markup.priceDivisor must not be zero")
	}
	if m.MinRate > m.MaxRate {
		add("markup.minRate %v exceeds markup.maxRate %v", m.MinRate, m.MaxRate)
	}
	if m.MinRate > m.MaxRateClamp {
		add("markup.minRate %v exceeds markup.maxRateClamp %v", m.MinRate, m.MaxRateClamp)
	}
	validateNoise(add, "markup.noise", m.Noise)

	t := c.Transit
	for _, mode := range []struct {
		name    string
		profile ModeProfile
	}{
		{"courier", t.Modes.Courier},
		{"pallet", t.Modes.Pallet},
		{"container", t.Modes.Container},
	} {
		if mode.profile.Capacity <= 0 {
			add("transit.modes.%s.capacity must be positive, got %v", mode.name, mode.profile.Capacity)
		}
		if mode.profile.Cost < 0 {
			add("transit.modes.%s.cost must not be negative, got %v", mode.name, mode.profile.Cost)
		}
	}

	l := c.Logistics
	if l.MaxDifficulty < 0 {
		add("logistics.maxDifficulty must not be negative, got %v", l.MaxDifficulty)
	}

	s := c.Stock
	if s.MinStock < 0 {
		add("stock.minStock must not be negative, got %d", s.MinStock)
	}
	if s.UnboundedDecayScale <= 0 {
		add("stock.unboundedDecayScale must be positive, got %v", s.UnboundedDecayScale)
	}
	if s.MinScale <= 1 {
		add("stock.minScale must be greater than 1, got %v", s.MinScale)
	}
	validateNoise(add, "stock.noise", s.Noise)

	sv := c.Solver
	switch sv.TransitStrategy {
	case TransitStrategyRate, TransitStrategyUnits:
	default:
		add("solver.transitStrategy %q is not supported", sv.TransitStrategy)
	}
	if sv.DutyRate < 0 {
		add("solver.dutyRate must not be negative, got %v", sv.DutyRate)
	}
	if sv.MaxNodes < 0 {
		add("solver.maxNodes must not be negative, got %d", sv.MaxNodes)
	}
	if h := sv.Horizon; h != nil {
		if h.Periods < 1 {
			add("solver.horizon.periods must be at least 1, got %d", h.Periods)
		}
		if h.TrendFactor <= 0 {
			add("solver.horizon.trendFactor must be positive, got %v", h.TrendFactor)
		}
		for i, f := range h.SeasonalFactors {
			if f < 0 {
				add("solver.horizon.seasonalFactors[%d] must not be negative, got %v", i, f)
			}
		}
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		add("logging.format %q is not supported", c.Logging.Format)
	}

	if err != nil {
		return newConfigurationError(err)
	}
	return nil
}

// ValidateConfiguration returns warnings for settings that are legal but
// probably unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if !hasAuto(c.Generation.PriceZones, c.Generation.ZoneDefaults) && !sharesSumToOne(c.Generation.PriceZones, c.Generation.ZoneDefaults) {
		warnings = append(warnings, "price zone span shares do not sum to 1 and will be rescaled")
	}
	if !hasAuto(c.Generation.SizeZones, c.Generation.ZoneDefaults) && !sharesSumToOne(c.Generation.SizeZones, c.Generation.ZoneDefaults) {
		warnings = append(warnings, "size zone span shares do not sum to 1 and will be rescaled")
	}
	if c.Solver.Budget == nil && c.Solver.Space == nil && !c.Solver.IgnoreStock && c.Solver.Horizon == nil {
		warnings = append(warnings, "solver has neither budget nor space limit; unbounded-stock candidates make the plan unbounded")
	}
	if c.Solver.DutyRate > 0 && !c.Solver.CrossBorder {
		warnings = append(warnings, "solver.dutyRate is set but solver.crossBorder is false; no duty will be charged")
	}
	if c.Stock.Noise >= 1 || c.Demand.Noise >= 1 || c.Markup.Noise >= 1 {
		warnings = append(warnings, "noise of 1 or more allows draws of zero before clamping")
	}

	return warnings
}

func validateRange(add func(string, ...interface{}), name string, r []float64) {
	if len(r) != 2 {
		add("%s must have exactly two values, got %d", name, len(r))
		return
	}
	if r[0] <= 0 {
		add("%s minimum must be positive, got %v", name, r[0])
	}
	if r[0] > r[1] {
		add("%s minimum %v exceeds maximum %v", name, r[0], r[1])
	}
}

func validateNoise(add func(string, ...interface{}), name string, noise float64) {
	if noise < 0 || math.IsNaN(noise) {
		add("%s must not be negative, got %v", name, noise)
	}
}

func hasAuto(zones []ZoneConfig, defaults ZoneConfig) bool {
	for _, z := range zones {
		if strings.EqualFold(strings.TrimSpace(pickString(z.SpanShare, defaults.SpanShare)), SpanShareAuto) {
			return true
		}
	}
	return false
}

func sharesSumToOne(zones []ZoneConfig, defaults ZoneConfig) bool {
	total := 0.0
	for _, z := range zones {
		share, err := strconv.ParseFloat(strings.TrimSpace(pickString(z.SpanShare, defaults.SpanShare)), 64)
		if err != nil {
			return true
		}
		total += share
	}
	return mathutil.WithinTolerance(total, 1, constants.ShareTolerance)
}
