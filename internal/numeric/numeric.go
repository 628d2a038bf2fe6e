// Package numeric provides helpers for decimal conversions used across the gateway.
package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format converts d into a fixed-scale decimal string truncated toward zero.
// Venue order endpoints reject amounts carrying more digits than the
// instrument declares, so excess precision is dropped rather than rounded.
func Format(d decimal.Decimal, scale int) string {
	if scale < 0 {
		scale = 0
	}
	return d.Truncate(int32(scale)).StringFixed(int32(scale))
}

// Parse converts a decimal string into a decimal value.
// On failure, it returns (zero, false).
func Parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ScaleFromStep derives the effective fractional precision from a decimal
// "step" string such as "0.0001".
func ScaleFromStep(step string) int {
	step = strings.TrimSpace(step)
	if step == "" {
		return 0
	}
	dot := strings.IndexByte(step, '.')
	if dot < 0 {
		return 0
	}
	frac := strings.TrimRight(step[dot+1:], "0")
	return len(frac)
}

// StepFromScale renders the smallest representable increment for a precision,
// e.g. scale 4 -> "0.0001". Scale zero renders "1".
func StepFromScale(scale int) string {
	if scale <= 0 {
		return "1"
	}
	return "0." + strings.Repeat("0", scale-1) + "1"
}
