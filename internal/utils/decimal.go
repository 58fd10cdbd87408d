package utils

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundToDecimalPrecision floors quantity to the given number of decimals.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// FloorToStep floors quantity to a multiple of step. A non-positive step returns quantity unchanged.
func FloorToStep(quantity, step float64) float64 {
	if step <= 0 {
		return quantity
	}

	q := decimal.NewFromFloat(quantity)
	s := decimal.NewFromFloat(step)

	return q.Div(s).Floor().Mul(s).InexactFloat64()
}

// RoundPrice rounds price half away from zero to digits decimals.
func RoundPrice(price float64, digits int32) float64 {
	return decimal.NewFromFloat(price).Round(digits).InexactFloat64()
}

// DecimalPlaces counts the significant decimals of a tick or step string such as "0.01000000".
func DecimalPlaces(value string) int32 {
	value = strings.TrimSpace(value)

	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		return 0
	}

	return int32(len(strings.TrimRight(value[dot+1:], "0")))
}
