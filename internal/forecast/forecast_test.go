package forecast

import (
	"math"
	"testing"

	"github.com/iwvelando/procurement-planner/internal/config"
	"go.uber.org/zap"
)

func TestSeasonalFactor(t *testing.T) {
	factors := []float64{0.5, 1.0, 2.0}

	tests := []struct {
		name     string
		factors  []float64
		month    int
		expected float64
	}{
		{name: "First month", factors: factors, month: 1, expected: 0.5},
		{name: "Last month", factors: factors, month: 3, expected: 2.0},
		{name: "Cycles", factors: factors, month: 5, expected: 1.0},
		{name: "Empty table", factors: nil, month: 7, expected: 1.0},
		{name: "Invalid month", factors: factors, month: 0, expected: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SeasonalFactor(tt.factors, tt.month)
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestGetForecast(t *testing.T) {
	horizon := &config.HorizonConfig{
		Periods:          3,
		SeasonalFactors:  []float64{1.0, 2.0},
		TrendFactor:      1.1,
		Buffer:           1.5,
		DemandMultiplier: 2,
		DemandScale:      100,
	}

	f, err := GetForecast(zap.NewNop(), horizon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Periods) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(f.Periods))
	}

	tests := []struct {
		month         int
		expectedUnits float64
		expectedBound float64
	}{
		// 0.5·100·1.0·1.1^0 = 50; 50·2·1.5 = 150
		{month: 1, expectedUnits: 50, expectedBound: 150},
		// 0.5·100·2.0·1.1 = 110; 110·3 = 330
		{month: 2, expectedUnits: 110, expectedBound: 330},
		// 0.5·100·1.0·1.21 = 60.5; 60.5·3 = 181.5
		{month: 3, expectedUnits: 60.5, expectedBound: 181},
		{month: 4, expectedUnits: 0, expectedBound: 0},
	}

	for _, tt := range tests {
		units := f.Units(0.5, tt.month)
		if math.Abs(units-tt.expectedUnits) > 1e-9 {
			t.Errorf("month %d: expected units %v, got %v", tt.month, tt.expectedUnits, units)
		}
		bound := f.Bound(0.5, tt.month)
		if bound != tt.expectedBound {
			t.Errorf("month %d: expected bound %v, got %v", tt.month, tt.expectedBound, bound)
		}
	}
}

func TestBoundFloorsAtZero(t *testing.T) {
	f, err := GetForecast(nil, &config.HorizonConfig{Periods: 1, TrendFactor: 1, Buffer: 1, DemandMultiplier: -1, DemandScale: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.Bound(0.9, 1); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestGetForecastWithoutHorizon(t *testing.T) {
	f, err := GetForecast(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != nil {
		t.Errorf("expected nil forecast, got %+v", f)
	}

	if _, err := GetForecast(nil, &config.HorizonConfig{Periods: 0}); err == nil {
		t.Error("expected error for zero periods")
	}
}
