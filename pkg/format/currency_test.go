package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		expected string
	}{
		{"Zero", decimal.Zero, "$0.00"},
		{"Small", decimal.RequireFromString("7.5"), "$7.50"},
		{"Thousands", decimal.RequireFromString("1234.567"), "$1,234.57"},
		{"Millions", decimal.RequireFromString("1234567.891"), "$1,234,567.89"},
		{"Negative", decimal.RequireFromString("-9876.5"), "-$9,876.50"},
		{"Rounds to zero", decimal.RequireFromString("-0.001"), "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Money(tt.amount); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{1250, "$1,250.00"},
		{3750, "$3,750.00"},
		{-12.345, "-$12.35"},
		{999.999, "$1,000.00"},
	}

	for _, tt := range tests {
		if got := Currency(tt.amount); got != tt.expected {
			t.Errorf("Currency(%v): expected %s, got %s", tt.amount, tt.expected, got)
		}
	}
}
