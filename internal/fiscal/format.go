package fiscal

import (
	"fmt"
	"strconv"
)

// The formatters below parse the upstream decimal strings with standard
// float64 conversion. Amounts stay strings everywhere else; float64 is
// used only at this formatting boundary, so rounding stays stable at
// trillion scale.

// ParseAmount parses an upstream decimal string. Returns false for nil
// or non-numeric input.
func ParseAmount(s *string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatTrillions renders a dollar amount as "$X.XX trillion" with the
// given number of decimals. Nil or non-numeric input yields nil.
func FormatTrillions(s *string, decimals int) *string {
	f, ok := ParseAmount(s)
	if !ok {
		return nil
	}
	out := fmt.Sprintf("$%.*f trillion", decimals, f/1e12)
	return &out
}

// FormatBillions renders a dollar amount as "$X.XX billion".
func FormatBillions(v float64) *string {
	out := fmt.Sprintf("$%.2f billion", v/1e9)
	return &out
}

// FormatBillionsPerDay renders a daily average as "$X.XX billion/day".
func FormatBillionsPerDay(v float64) *string {
	out := fmt.Sprintf("$%.2f billion/day", v/1e9)
	return &out
}

// FormatPercent renders an interest rate string as "X%". The upstream
// value is already expressed in percent, so no scaling is applied.
// Nil or non-numeric input yields nil.
func FormatPercent(s *string) *string {
	if _, ok := ParseAmount(s); !ok {
		return nil
	}
	out := *s + "%"
	return &out
}
