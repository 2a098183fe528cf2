package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a user typed amount. Anything that is not a number,
// including the empty string, becomes zero instead of an error so a half
// typed field never blocks the form.
func ParseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromNet turns a signed net amount into a canonical (buyIn, cashOut) pair.
// A win is recorded as cash out with no buy in and a loss as buy in with no
// cash out. Different real pairs with the same net collapse to the same
// pair; only the difference is ever aggregated.
func FromNet(net decimal.Decimal) (buyIn, cashOut decimal.Decimal) {
	if net.IsNegative() {
		return net.Abs(), decimal.Zero
	}
	return decimal.Zero, net
}

// Field names a single editable amount of a result
type Field string

const (
	FieldBuyIn   Field = "buyIn"
	FieldCashOut Field = "cashOut"
)

// Valid reports whether f is a known field
func (f Field) Valid() bool {
	return f == FieldBuyIn || f == FieldCashOut
}

// WithField returns r with one amount replaced, the other kept as is
func (r Result) WithField(f Field, amount decimal.Decimal) Result {
	switch f {
	case FieldBuyIn:
		r.BuyIn = amount
	case FieldCashOut:
		r.CashOut = amount
	}
	return r
}

// WithNet returns r with both amounts replaced by the canonical pair for net
func (r Result) WithNet(net decimal.Decimal) Result {
	r.BuyIn, r.CashOut = FromNet(net)
	return r
}
