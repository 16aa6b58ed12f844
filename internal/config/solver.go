package config

import (
	"strings"
	"time"

	"github.com/iwvelando/procurement-planner/pkg/constants"
)

const (
	// TransitStrategyRate charges (unit cost / capacity) per unit of committed size.
	TransitStrategyRate = "rate"
	// TransitStrategyUnits counts whole shipping units with an integer variable per mode.
	TransitStrategyUnits = "units"
)

// SolverConfig holds the limits of the purchase optimization. Budget and Space
// are optional; a nil limit adds no constraint.
type SolverConfig struct {
	Budget          *float64       `yaml:"budget,omitempty" mapstructure:"budget"`
	Space           *float64       `yaml:"space,omitempty" mapstructure:"space"`
	TimeLimit       time.Duration  `yaml:"timeLimit,omitempty" mapstructure:"timeLimit"`
	TransitStrategy string         `yaml:"transitStrategy,omitempty" mapstructure:"transitStrategy"`
	IgnoreStock     bool           `yaml:"ignoreStock,omitempty" mapstructure:"ignoreStock"`
	MaxCandidates   int            `yaml:"maxCandidates,omitempty" mapstructure:"maxCandidates"`
	MaxNodes        int            `yaml:"maxNodes,omitempty" mapstructure:"maxNodes"`
	CrossBorder     bool           `yaml:"crossBorder,omitempty" mapstructure:"crossBorder"`
	DutyRate        float64        `yaml:"dutyRate,omitempty" mapstructure:"dutyRate"`
	Horizon         *HorizonConfig `yaml:"horizon,omitempty" mapstructure:"horizon"`
}

// HorizonConfig enables multi-period planning. Every period gets its own
// quantity variables and its own budget, space and volume limits.
type HorizonConfig struct {
	Periods          int       `yaml:"periods" mapstructure:"periods"`
	SeasonalFactors  []float64 `yaml:"seasonalFactors,omitempty" mapstructure:"seasonalFactors"`
	TrendFactor      float64   `yaml:"trendFactor,omitempty" mapstructure:"trendFactor"`
	Buffer           float64   `yaml:"buffer,omitempty" mapstructure:"buffer"`
	DemandMultiplier float64   `yaml:"demandMultiplier,omitempty" mapstructure:"demandMultiplier"`
	DemandScale      float64   `yaml:"demandScale,omitempty" mapstructure:"demandScale"`
	VolumeCeiling    *float64  `yaml:"volumeCeiling,omitempty" mapstructure:"volumeCeiling"`
}

// Normalize ensures defaults and canonical values are applied before validation.
func (s *SolverConfig) Normalize() {
	if s.TimeLimit <= 0 {
		s.TimeLimit = constants.DefaultTimeLimitSeconds * time.Second
	}
	s.TransitStrategy = strings.ToLower(strings.TrimSpace(s.TransitStrategy))
	if s.TransitStrategy == "" {
		s.TransitStrategy = TransitStrategyRate
	}
	if s.MaxCandidates <= 0 {
		s.MaxCandidates = constants.DefaultMaxCandidates
	}
	if s.Horizon != nil {
		s.Horizon.normalize()
	}
}

func (h *HorizonConfig) normalize() {
	if h.TrendFactor == 0 {
		h.TrendFactor = constants.DefaultTrendFactor
	}
	if h.Buffer == 0 {
		h.Buffer = constants.DefaultDemandBuffer
	}
	if h.DemandMultiplier == 0 {
		h.DemandMultiplier = 1
	}
	if h.DemandScale == 0 {
		h.DemandScale = 1
	}
}

// Periods returns the number of planning periods, one when no horizon is set.
func (s SolverConfig) Periods() int {
	if s.Horizon == nil || s.Horizon.Periods < 1 {
		return 1
	}
	return s.Horizon.Periods
}
