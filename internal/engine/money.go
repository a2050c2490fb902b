package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	thirty  = decimal.NewFromInt(30)
)

// roundMoney rounds half away from zero, which is half-up for the
// non-negative amounts the engine produces.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func clampDecimal(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// DateOnly drops the clock component so day arithmetic is calendar based.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}
