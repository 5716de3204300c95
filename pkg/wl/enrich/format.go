package enrich

import (
	"math"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NA is shown whenever a market value is zero, negative or unobtainable.
const NA = "N/A"

// Formatter renders market values for one display currency.
type Formatter struct {
	money *money.Formatter
}

// NewFormatter returns a Formatter for an ISO 4217 code, USD if unknown.
// Amounts always show two decimals whatever the currency's minor unit.
func NewFormatter(code string) Formatter {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	return Formatter{money: money.NewFormatter(2, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)}
}

// Price formats a positive price as currency with two decimals.
func (f Formatter) Price(v float64) string {
	if !finite(v) || v <= 0 {
		return NA
	}
	return f.amount(v)
}

// Change formats a non-zero percent change with an explicit sign, e.g. "-3.26%".
func (f Formatter) Change(v float64) string {
	if !finite(v) || v == 0 {
		return NA
	}
	// keeps the sign of values that round to zero, "-0.00%"
	s := strconv.FormatFloat(v, 'f', 2, 64) + "%"
	if v > 0 {
		return "+" + s
	}
	return s
}

// MarketCap formats a capitalization given in millions as billions, e.g. "$2.50B".
func (f Formatter) MarketCap(millions float64) string {
	if !finite(millions) || millions <= 0 {
		return NA
	}
	return f.amount(millions/1000) + "B"
}

// Ratio formats a positive ratio with two decimals.
func (f Formatter) Ratio(v float64) string {
	if !finite(v) || v <= 0 {
		return NA
	}
	return fixed2(v).StringFixed(2)
}

func (f Formatter) amount(v float64) string {
	return f.money.Format(fixed2(v).Shift(2).IntPart())
}

// fixed2 rounds the exact binary value to two decimals, so 1.005 (stored
// as 1.00499...) becomes 1.00.
func fixed2(v float64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', 2, 64))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// orZero keeps raw values JSON-encodable.
func orZero(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}
