// Package format renders amounts and dates for people. Nothing here feeds
// back into stored values.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout is the medium US date style, e.g. Jan 27, 2024
const DateLayout = "Jan 2, 2006"

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats whole dollars with grouping: $1,235, -$5
func Currency(amount decimal.Decimal) string {
	return currency(amount, 0)
}

// CurrencyCents keeps two decimals: $1,234.50
func CurrencyCents(amount decimal.Decimal) string {
	return currency(amount, 2)
}

// Signed is Currency with an explicit plus sign on gains
func Signed(amount decimal.Decimal) string {
	s := Currency(amount)
	if amount.Round(0).IsPositive() {
		return "+" + s
	}
	return s
}

// Percent formats a fraction as a whole percentage
func Percent(fraction float64) string {
	return printer.Sprintf("%.0f%%", fraction*100)
}

// Date formats a calendar date
func Date(t time.Time) string {
	return t.Format(DateLayout)
}

func currency(amount decimal.Decimal, places int32) string {
	rounded := amount.Round(places)
	abs := rounded.Abs()

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	b.WriteString(printer.Sprintf("%d", abs.IntPart()))
	if places > 0 {
		fixed := abs.StringFixed(places)
		b.WriteString(fixed[strings.IndexByte(fixed, '.'):])
	}
	return b.String()
}
