package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownPlayer is shown for results whose player has been removed
const UnknownPlayer = "Unknown"

// Player is a regular at the game
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a single game night
type Session struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Location  string    `json:"location"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result is one player's money in and out for one session.
// A (SessionID, PlayerID) pair appears at most once.
type Result struct {
	SessionID string          `json:"sessionId"`
	PlayerID  string          `json:"playerId"`
	BuyIn     decimal.Decimal `json:"buyIn"`
	CashOut   decimal.Decimal `json:"cashOut"`
}

// Profit is derived, never stored
func (r Result) Profit() decimal.Decimal {
	return r.CashOut.Sub(r.BuyIn)
}

// Key identifies the result row
func (r Result) Key() ResultKey {
	return ResultKey{SessionID: r.SessionID, PlayerID: r.PlayerID}
}

// ResultKey is the unique (session, player) pair of a result
type ResultKey struct {
	SessionID string
	PlayerID  string
}
