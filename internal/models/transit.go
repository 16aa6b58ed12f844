package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/procurement-planner/internal/config"
)

// TransitMode is the logistics channel used to ship a product.
type TransitMode int

const (
	Courier TransitMode = iota
	Pallet
	Container
)

// TransitModes lists every mode in declaration order.
var TransitModes = []TransitMode{Courier, Pallet, Container}

func (m TransitMode) String() string {
	switch m {
	case Courier:
		return "courier"
	case Pallet:
		return "pallet"
	case Container:
		return "container"
	default:
		return fmt.Sprintf("TransitMode(%d)", int(m))
	}
}

// ParseTransitMode is the inverse of String.
func ParseTransitMode(s string) (TransitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "courier":
		return Courier, nil
	case "pallet":
		return Pallet, nil
	case "container":
		return Container, nil
	default:
		return 0, fmt.Errorf("unknown transit mode %q", s)
	}
}

func (m TransitMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TransitMode) UnmarshalText(text []byte) error {
	parsed, err := ParseTransitMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Transit is an assigned mode with its fixed per-unit capacity and cost.
type Transit struct {
	Mode     TransitMode `json:"mode"`
	Capacity float64     `json:"capacity"`
	Cost     float64     `json:"cost"`
}

// TransitModel assigns a shipping mode by weighted random choice.
type TransitModel struct {
	cfg config.TransitConfig
}

// NewTransitModel creates a TransitModel.
func NewTransitModel(cfg config.TransitConfig) TransitModel {
	return TransitModel{cfg: cfg}
}

// Weights returns the tier-adjusted weights for pallet, container and courier.
// Negative weights are clamped to zero.
func (m TransitModel) Weights(price, size float64) (pallet, container, courier float64) {
	w := m.cfg.BaseWeights
	mult := m.cfg.Multipliers
	th := m.cfg.Thresholds
	pallet, container, courier = w.Pallet, w.Container, w.Courier

	density := price / math.Max(m.cfg.DensityEpsilon, size)
	switch {
	case size >= th.LargeSize:
		pallet *= mult.LargePallet
		container *= mult.LargeContainer
		courier *= mult.LargeCourier
	case size >= th.MediumSize:
		pallet *= mult.MediumPallet
		container *= mult.MediumContainer
		courier *= mult.MediumCourier
	case size <= th.SmallSize && density >= th.HighDensity:
		pallet *= mult.SmallPallet
		container *= mult.SmallContainer
		courier *= mult.SmallCourier
	default:
		pallet *= mult.DefaultPallet
		container *= mult.DefaultContainer
	}

	return math.Max(0, pallet), math.Max(0, container), math.Max(0, courier)
}

// Assign picks a mode for the pair and returns it with its profile.
func (m TransitModel) Assign(price, size float64, n Noise) Transit {
	pallet, container, courier := m.Weights(price, size)
	return m.Profile(weightedChoice(n, pallet, container, courier))
}

// Profile attaches the configured capacity and cost to mode.
func (m TransitModel) Profile(mode TransitMode) Transit {
	var p config.ModeProfile
	switch mode {
	case Courier:
		p = m.cfg.Modes.Courier
	case Container:
		p = m.cfg.Modes.Container
	default:
		mode = Pallet
		p = m.cfg.Modes.Pallet
	}
	return Transit{Mode: mode, Capacity: p.Capacity, Cost: p.Cost}
}

// weightedChoice compares a scaled draw against cumulative weights in the
// order pallet, container, courier. Strict comparison keeps zero-weight modes
// out of the draw; all-zero weights fall back to Pallet.
func weightedChoice(n Noise, pallet, container, courier float64) TransitMode {
	total := pallet + container + courier
	if total <= 0 {
		return Pallet
	}

	ordered := []struct {
		mode   TransitMode
		weight float64
	}{
		{Pallet, pallet},
		{Container, container},
		{Courier, courier},
	}

	r := n.Float64() * total
	cumulative := 0.0
	fallback := Pallet
	for _, o := range ordered {
		if o.weight <= 0 {
			continue
		}
		fallback = o.mode
		cumulative += o.weight
		if r < cumulative {
			return o.mode
		}
	}
	return fallback
}
