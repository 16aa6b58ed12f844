// Package format renders money amounts for human-readable reports.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money renders amount with a dollar sign, thousands separators and two
// decimals, e.g. "-$1,234.56". Rounding is half away from zero.
func Money(amount decimal.Decimal) string {
	formatted := groupThousands(amount.Abs().StringFixed(2))
	if amount.Round(2).IsNegative() {
		return "-$" + formatted
	}
	return "$" + formatted
}

// Currency renders a float amount the same way as Money.
func Currency(amount float64) string {
	return Money(decimal.NewFromFloat(amount))
}

func groupThousands(fixed string) string {
	intPart, decPart, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return fixed
	}

	var builder strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(digit)
	}
	if decPart != "" {
		builder.WriteByte('.')
		builder.WriteString(decPart)
	}
	return builder.String()
}
