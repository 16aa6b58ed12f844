package config

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/procurement-planner/pkg/constants"
)

func examplePath() string {
	return filepath.Join("..", "..", constants.ExampleConfigFile)
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Example config file",
			configPath: examplePath(),
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationDecodesExample(t *testing.T) {
	conf, err := LoadConfiguration(examplePath())
	if err != nil {
		t.Fatalf("failed to load example: %v", err)
	}

	if conf.Seed != 42 {
		t.Errorf("expected seed 42, got %d", conf.Seed)
	}
	if len(conf.Generation.PriceZones) != 3 {
		t.Fatalf("expected 3 price zones, got %d", len(conf.Generation.PriceZones))
	}
	if conf.Generation.PriceZones[0].SpanShare != "0.05" {
		t.Errorf("expected numeric span share to decode as \"0.05\", got %q", conf.Generation.PriceZones[0].SpanShare)
	}
	if conf.Solver.TimeLimit != 30*time.Second {
		t.Errorf("expected 30s time limit, got %v", conf.Solver.TimeLimit)
	}
	if conf.Solver.Budget == nil || *conf.Solver.Budget != 25000 {
		t.Errorf("expected budget 25000, got %v", conf.Solver.Budget)
	}
	if conf.Solver.Horizon == nil || conf.Solver.Horizon.Periods != 3 {
		t.Fatalf("expected a 3 period horizon, got %+v", conf.Solver.Horizon)
	}
	if conf.Transit.Modes.Container.Capacity != 33000000 {
		t.Errorf("expected container capacity 33000000, got %v", conf.Transit.Modes.Container.Capacity)
	}

	zones, err := conf.Generation.ResolvePriceZones()
	if err != nil {
		t.Fatalf("resolve price zones: %v", err)
	}
	total := 0.0
	for _, z := range zones {
		total += z.Share
	}
	if math.Abs(total-1) > constants.ShareTolerance {
		t.Errorf("expected resolved shares to sum to 1, got %v", total)
	}
	// The middle zone inherits its share from the defaults and resolves to the remainder.
	if math.Abs(zones[1].Share-0.65) > 1e-9 {
		t.Errorf("expected auto zone share 0.65, got %v", zones[1].Share)
	}
	if zones[1].Step != 5 {
		t.Errorf("expected default step 5, got %v", zones[1].Step)
	}
}

func TestLoadConfigurationFromReaderMissingKeys(t *testing.T) {
	yamlData := `
generation:
  priceRange: [1, 100]
demand:
  baseDemand: 0.5
`
	_, err := LoadConfigurationFromReader(strings.NewReader(yamlData))
	if err == nil {
		t.Fatal("expected an error for an incomplete configuration")
	}
	if !IsConfigurationError(err) {
		t.Fatalf("expected a ConfigurationError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "markup.baseRate") {
		t.Errorf("expected missing key markup.baseRate to be reported, got %v", err)
	}
}

func TestResolveSpanShares(t *testing.T) {
	tests := []struct {
		name      string
		raw       []string
		expected  []float64
		wantError bool
	}{
		{
			name:     "Auto splits remainder",
			raw:      []string{"0.2", "auto", "auto"},
			expected: []float64{0.2, 0.4, 0.4},
		},
		{
			name:     "All auto",
			raw:      []string{"auto", "AUTO", "auto", "auto"},
			expected: []float64{0.25, 0.25, 0.25, 0.25},
		},
		{
			name:     "Fixed shares are rescaled",
			raw:      []string{"1", "3"},
			expected: []float64{0.25, 0.75},
		},
		{
			name:     "Fixed shares filling the range leave auto empty",
			raw:      []string{"0.5", "0.5", "auto"},
			expected: []float64{0.5, 0.5, 0},
		},
		{
			name:      "Fixed shares exceeding one with auto",
			raw:       []string{"0.8", "0.6", "auto"},
			wantError: true,
		},
		{
			name:      "Negative share",
			raw:       []string{"-0.1", "auto"},
			wantError: true,
		},
		{
			name:      "Unparseable share",
			raw:       []string{"half"},
			wantError: true,
		},
		{
			name:      "All zero",
			raw:       []string{"0", "0"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := ResolveSpanShares(tt.raw)
			if tt.wantError {
				if err == nil {
					t.Errorf("ResolveSpanShares(%v) expected error, got %v", tt.raw, shares)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveSpanShares(%v) error = %v", tt.raw, err)
			}
			total := 0.0
			for i := range tt.expected {
				if math.Abs(shares[i]-tt.expected[i]) > 1e-9 {
					t.Errorf("share %d = %v, expected %v", i, shares[i], tt.expected[i])
				}
				total += shares[i]
			}
			if math.Abs(total-1) > constants.ShareTolerance {
				t.Errorf("shares sum to %v, expected 1", total)
			}
		})
	}
}

func TestResolveZonesRejectsUnknownMode(t *testing.T) {
	res, bias, step := 5, 1.0, 1.0
	g := GenerationConfig{
		ZoneDefaults: ZoneConfig{Resolution: &res, Bias: &bias, Step: &step},
		PriceZones:   []ZoneConfig{{Mode: "spiral", SpanShare: "1"}},
	}
	if _, err := g.ResolvePriceZones(); err == nil {
		t.Fatal("expected unsupported mode error")
	}

	g.PriceZones = []ZoneConfig{{Mode: "power"}}
	if _, err := g.ResolvePriceZones(); err == nil {
		t.Fatal("expected missing span share error")
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	conf := Configuration{Solver: SolverConfig{Horizon: &HorizonConfig{Periods: 2}}}
	conf.Normalize()

	if conf.Generation.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", conf.Generation.Workers)
	}
	if conf.Generation.Guardrails.MinResolution != 2 {
		t.Errorf("expected min resolution 2, got %d", conf.Generation.Guardrails.MinResolution)
	}
	if conf.Solver.TransitStrategy != TransitStrategyRate {
		t.Errorf("expected rate strategy, got %q", conf.Solver.TransitStrategy)
	}
	if conf.Solver.TimeLimit != constants.DefaultTimeLimitSeconds*time.Second {
		t.Errorf("expected default time limit, got %v", conf.Solver.TimeLimit)
	}
	if conf.Solver.Horizon.TrendFactor != constants.DefaultTrendFactor {
		t.Errorf("expected default trend factor, got %v", conf.Solver.Horizon.TrendFactor)
	}
	if conf.Solver.Periods() != 2 {
		t.Errorf("expected 2 periods, got %d", conf.Solver.Periods())
	}
	if conf.Output.Format != constants.OutputFormatPretty {
		t.Errorf("expected pretty output, got %q", conf.Output.Format)
	}
}
