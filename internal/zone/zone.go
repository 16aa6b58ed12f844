// Package zone turns a numeric range and a list of weighted zones into an
// ordered sequence of integer bucket values.
package zone

import (
	"fmt"
	"math"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/pkg/mathutil"
)

// Mode is the curve used to place values inside a zone's sub-span.
type Mode int

const (
	// Exact places evenly spaced values at Step intervals.
	Exact Mode = iota
	// PowerCurve reparametrizes a uniform lattice with t^Bias.
	PowerCurve
	// Geometric uses a constant ratio between consecutive values.
	Geometric
	// UShape concentrates values at both edges of the sub-span.
	UShape
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return config.ZoneModeExact
	case PowerCurve:
		return config.ZoneModePower
	case Geometric:
		return config.ZoneModeGeometric
	case UShape:
		return config.ZoneModeUShape
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration mode name onto a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case config.ZoneModeExact:
		return Exact, nil
	case config.ZoneModePower:
		return PowerCurve, nil
	case config.ZoneModeGeometric:
		return Geometric, nil
	case config.ZoneModeUShape:
		return UShape, nil
	default:
		return 0, fmt.Errorf("unsupported zone mode %q", name)
	}
}

// Zone is one weighted sub-range of a domain.
type Zone struct {
	Mode       Mode
	SpanShare  float64
	Resolution int
	Bias       float64
	Step       float64
}

// Guardrails are the floors applied to degenerate zone inputs.
type Guardrails struct {
	MinSpan       float64
	MinStep       float64
	MinResolution int
	MinBias       float64
	MinSafeStart  float64
	MinCount      int
	RoundMin      int
}

// GuardrailsFromConfig copies normalized guardrail settings.
func GuardrailsFromConfig(c config.GuardrailsConfig) Guardrails {
	return Guardrails{
		MinSpan:       c.MinSpan,
		MinStep:       c.MinStep,
		MinResolution: c.MinResolution,
		MinBias:       c.MinBias,
		MinSafeStart:  c.MinSafeStart,
		MinCount:      c.MinCount,
		RoundMin:      c.RoundMin,
	}
}

// FromConfig builds zones from resolved configuration entries.
func FromConfig(resolved []config.ResolvedZone) ([]Zone, error) {
	zones := make([]Zone, len(resolved))
	for i, r := range resolved {
		mode, err := ParseMode(r.Mode)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		zones[i] = Zone{
			Mode:       mode,
			SpanShare:  r.Share,
			Resolution: r.Resolution,
			Bias:       r.Bias,
			Step:       r.Step,
		}
	}
	return zones, nil
}

// Values evaluates the zone's curve over [start, end].
func Values(start, end float64, z Zone, g Guardrails) []float64 {
	switch z.Mode {
	case Exact:
		return exactValues(start, end, z.Step, g)
	case PowerCurve:
		return powerValues(start, end, z.Resolution, z.Bias, g)
	case Geometric:
		return geometricValues(start, end, z.Resolution, g)
	case UShape:
		return uShapeValues(start, end, z.Resolution, g)
	default:
		return nil
	}
}

func resolution(n int, g Guardrails) int {
	if g.MinResolution < 2 {
		g.MinResolution = 2
	}
	if n < g.MinResolution {
		return g.MinResolution
	}
	return n
}

func exactValues(start, end, step float64, g Guardrails) []float64 {
	span := math.Max(g.MinSpan, end-start)
	step = math.Max(g.MinStep, step)
	if step <= 0 {
		step = span
	}
	count := int(span/step) + 1
	if count < g.MinCount {
		count = g.MinCount
	}
	if count < 1 {
		count = 1
	}
	return mathutil.Linspace(start, end, count)
}

func powerValues(start, end float64, n int, bias float64, g Guardrails) []float64 {
	bias = math.Max(g.MinBias, bias)
	t := mathutil.Linspace(0, 1, resolution(n, g))
	values := make([]float64, len(t))
	for i, ti := range t {
		values[i] = start + (end-start)*math.Pow(ti, bias)
	}
	return values
}

func geometricValues(start, end float64, n int, g Guardrails) []float64 {
	n = resolution(n, g)
	safeStart := math.Max(g.MinSafeStart, start)
	if safeStart <= 0 {
		safeStart = math.SmallestNonzeroFloat64
	}
	safeEnd := math.Max(safeStart, end)
	ratio := math.Pow(safeEnd/safeStart, 1/float64(n-1))
	values := make([]float64, n)
	for i := range values {
		values[i] = safeStart * math.Pow(ratio, float64(i))
	}
	values[n-1] = safeEnd
	return values
}

func uShapeValues(start, end float64, n int, g Guardrails) []float64 {
	t := mathutil.Linspace(0, 1, resolution(n, g))
	values := make([]float64, len(t))
	for i, ti := range t {
		values[i] = start + (end-start)*(0.5-0.5*math.Cos(math.Pi*ti))
	}
	return values
}

// Synthesize partitions [min, max] among zones in proportion to their shares
// and concatenates the rounded values of each zone in domain order. The first
// value of every zone after the first is dropped, along with any further
// leading values that do not exceed the previous zone's last value, so the
// output never repeats a value across a boundary and never decreases.
func Synthesize(min, max float64, zones []Zone, g Guardrails) []int {
	var out []int
	for _, values := range synthesizeZones(min, max, zones, g) {
		out = append(out, values...)
	}
	return out
}

// synthesizeZones returns the per-zone output of Synthesize.
func synthesizeZones(min, max float64, zones []Zone, g Guardrails) [][]int {
	if len(zones) == 0 {
		return nil
	}
	if max < min {
		max = min
	}

	shares := normalizedShares(zones)
	totalSpan := max - min
	boundary := min

	out := make([][]int, len(zones))
	last, emitted := 0, false
	for idx, z := range zones {
		start := boundary
		end := start + totalSpan*shares[idx]
		if idx == len(zones)-1 {
			end = max
		}

		raw := Values(start, end, z, g)
		rounded := make([]int, 0, len(raw))
		for _, v := range raw {
			v = mathutil.Clamp(v, start, math.Max(start, end))
			bucket := int(math.Round(v))
			if bucket < g.RoundMin {
				bucket = g.RoundMin
			}
			rounded = append(rounded, bucket)
		}

		if idx > 0 && len(rounded) > 0 {
			rounded = rounded[1:]
			if emitted {
				skip := 0
				for skip < len(rounded) && rounded[skip] <= last {
					skip++
				}
				rounded = rounded[skip:]
			}
		}

		if len(rounded) > 0 {
			last, emitted = rounded[len(rounded)-1], true
		}
		out[idx] = rounded
		boundary = end
	}
	return out
}

func normalizedShares(zones []Zone) []float64 {
	shares := make([]float64, len(zones))
	total := 0.0
	for _, z := range zones {
		if z.SpanShare > 0 {
			total += z.SpanShare
		}
	}
	for i, z := range zones {
		switch {
		case total <= 0:
			shares[i] = 1 / float64(len(zones))
		case z.SpanShare > 0:
			shares[i] = z.SpanShare / total
		}
	}
	return shares
}
