package tool

import (
	"fmt"
	"math"
)

// ToCents converts a BRL amount to integer cents, rounding half away from zero.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a BRL amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// FormatBRL renders cents as "R$ 1234,56".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}
