package ledger

import "github.com/shopspring/decimal"

// DefaultStake is the buy in assumed for every player of an imported session
var DefaultStake = decimal.NewFromInt(5)

// NormalizeNet rebuilds (buyIn, cashOut) for a historical record that only
// kept the player's net profit.
//
// The player is assumed to have bought in once for stake and left with
// stake+net. When that would be negative the player must have rebought, and
// the loss is read as a total loss: cash out 0 and buy in equal to the loss.
// The source cannot tell this apart from several rebuys with something left
// over, so the result is an assumption and only meant for one-off imports.
func NormalizeNet(net, stake decimal.Decimal) (buyIn, cashOut decimal.Decimal) {
	cashOut = stake.Add(net)
	if cashOut.IsNegative() {
		return net.Neg(), decimal.Zero
	}
	return stake, cashOut
}
