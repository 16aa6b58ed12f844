package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// SpanShareAuto marks a zone whose share is filled from the unassigned remainder.
	SpanShareAuto = "auto"

	ZoneModeExact     = "exact"
	ZoneModePower     = "power"
	ZoneModeGeometric = "geometric"
	ZoneModeUShape    = "u_shape"
)

// GenerationConfig describes the price/size domains and how they are bucketed.
type GenerationConfig struct {
	PriceRange        []float64        `yaml:"priceRange" mapstructure:"priceRange"`
	SizeRange         []float64        `yaml:"sizeRange" mapstructure:"sizeRange"`
	LogisticsOptimal  float64          `yaml:"logisticsOptimal" mapstructure:"logisticsOptimal"`
	LogisticsBaseCost float64          `yaml:"logisticsBaseCost" mapstructure:"logisticsBaseCost"`
	Workers           int              `yaml:"workers,omitempty" mapstructure:"workers"`
	ZoneDefaults      ZoneConfig       `yaml:"zoneDefaults,omitempty" mapstructure:"zoneDefaults"`
	PriceZones        []ZoneConfig     `yaml:"priceZones" mapstructure:"priceZones"`
	SizeZones         []ZoneConfig     `yaml:"sizeZones" mapstructure:"sizeZones"`
	Guardrails        GuardrailsConfig `yaml:"guardrails,omitempty" mapstructure:"guardrails"`
}

// ZoneConfig is one weighted sub-range entry. Unset fields fall back to
// GenerationConfig.ZoneDefaults. SpanShare is either a number or "auto".
type ZoneConfig struct {
	Mode       string   `yaml:"mode,omitempty" mapstructure:"mode"`
	SpanShare  string   `yaml:"spanShare,omitempty" mapstructure:"spanShare"`
	Resolution *int     `yaml:"resolution,omitempty" mapstructure:"resolution"`
	Bias       *float64 `yaml:"bias,omitempty" mapstructure:"bias"`
	Step       *float64 `yaml:"step,omitempty" mapstructure:"step"`
}

// GuardrailsConfig holds the numeric floors that keep zone synthesis away from
// degenerate inputs.
type GuardrailsConfig struct {
	MinSpan       float64 `yaml:"minSpan,omitempty" mapstructure:"minSpan"`
	MinStep       float64 `yaml:"minStep,omitempty" mapstructure:"minStep"`
	MinResolution int     `yaml:"minResolution,omitempty" mapstructure:"minResolution"`
	MinBias       float64 `yaml:"minBias,omitempty" mapstructure:"minBias"`
	MinSafeStart  float64 `yaml:"minSafeStart,omitempty" mapstructure:"minSafeStart"`
	MinCount      int     `yaml:"minCount,omitempty" mapstructure:"minCount"`
	RoundMin      int     `yaml:"roundMin,omitempty" mapstructure:"roundMin"`
}

// ResolvedZone is a ZoneConfig with defaults merged and its share resolved.
type ResolvedZone struct {
	Mode       string
	Share      float64
	Resolution int
	Bias       float64
	Step       float64
}

// Normalize fills generation defaults.
func (g *GenerationConfig) Normalize() {
	if g.Workers <= 0 {
		g.Workers = 1
	}
	g.Guardrails.normalize()
}

func (gr *GuardrailsConfig) normalize() {
	if gr.MinSpan <= 0 {
		gr.MinSpan = 1e-9
	}
	if gr.MinStep <= 0 {
		gr.MinStep = 1e-9
	}
	if gr.MinResolution < 2 {
		gr.MinResolution = 2
	}
	if gr.MinBias <= 0 {
		gr.MinBias = 1e-3
	}
	if gr.MinSafeStart <= 0 {
		gr.MinSafeStart = 1e-6
	}
	if gr.MinCount < 1 {
		gr.MinCount = 2
	}
	if gr.RoundMin < 1 {
		gr.RoundMin = 1
	}
}

// ResolvePriceZones merges defaults into the price zones and resolves their shares.
func (g GenerationConfig) ResolvePriceZones() ([]ResolvedZone, error) {
	return resolveZones(g.PriceZones, g.ZoneDefaults)
}

// ResolveSizeZones merges defaults into the size zones and resolves their shares.
func (g GenerationConfig) ResolveSizeZones() ([]ResolvedZone, error) {
	return resolveZones(g.SizeZones, g.ZoneDefaults)
}

func resolveZones(zones []ZoneConfig, defaults ZoneConfig) ([]ResolvedZone, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("at least one zone is required")
	}

	raw := make([]string, len(zones))
	resolved := make([]ResolvedZone, len(zones))
	for i, z := range zones {
		mode := strings.ToLower(strings.TrimSpace(pickString(z.Mode, defaults.Mode)))
		if mode == "" {
			return nil, fmt.Errorf("zone %d: missing mode", i)
		}
		switch mode {
		case ZoneModeExact, ZoneModePower, ZoneModeGeometric, ZoneModeUShape:
		default:
			return nil, fmt.Errorf("zone %d: unsupported mode %q", i, mode)
		}

		resolution := pickInt(z.Resolution, defaults.Resolution)
		bias := pickFloat(z.Bias, defaults.Bias)
		step := pickFloat(z.Step, defaults.Step)
		if resolution == nil {
			return nil, fmt.Errorf("zone %d: missing resolution", i)
		}
		if bias == nil {
			return nil, fmt.Errorf("zone %d: missing bias", i)
		}
		if step == nil {
			return nil, fmt.Errorf("zone %d: missing step", i)
		}

		raw[i] = pickString(z.SpanShare, defaults.SpanShare)
		resolved[i] = ResolvedZone{
			Mode:       mode,
			Resolution: *resolution,
			Bias:       *bias,
			Step:       *step,
		}
	}

	shares, err := ResolveSpanShares(raw)
	if err != nil {
		return nil, err
	}
	for i := range resolved {
		resolved[i].Share = shares[i]
	}
	return resolved, nil
}

// ResolveSpanShares turns raw span share values into fractions summing to one.
// "auto" entries split whatever the fixed entries leave unassigned. When no
// entry is "auto" the fixed shares are scaled by their total.
func ResolveSpanShares(raw []string) ([]float64, error) {
	shares := make([]float64, len(raw))
	autoCount := 0
	fixedTotal := 0.0

	for i, value := range raw {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil, fmt.Errorf("zone %d: missing span share", i)
		}
		if strings.EqualFold(trimmed, SpanShareAuto) {
			shares[i] = math.NaN()
			autoCount++
			continue
		}
		share, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("zone %d: invalid span share %q: %w", i, value, err)
		}
		if share < 0 || math.IsNaN(share) || math.IsInf(share, 0) {
			return nil, fmt.Errorf("zone %d: span share %v must be a finite non-negative number", i, share)
		}
		shares[i] = share
		fixedTotal += share
	}

	if autoCount > 0 {
		if fixedTotal > 1+1e-9 {
			return nil, fmt.Errorf("fixed span shares total %.4f leaves nothing for auto zones", fixedTotal)
		}
		autoValue := math.Max(0, 1-fixedTotal) / float64(autoCount)
		for i := range shares {
			if math.IsNaN(shares[i]) {
				shares[i] = autoValue
			}
		}
		return shares, nil
	}

	if fixedTotal <= 0 {
		return nil, fmt.Errorf("span shares must total more than zero")
	}
	for i := range shares {
		shares[i] /= fixedTotal
	}
	return shares, nil
}

func pickString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func pickInt(value, fallback *int) *int {
	if value != nil {
		return value
	}
	return fallback
}

func pickFloat(value, fallback *float64) *float64 {
	if value != nil {
		return value
	}
	return fallback
}
