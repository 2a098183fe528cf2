package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/pkg/format"
)

const dateLayout = "2006-01-02"

// amount accepts a JSON number or string and never fails to decode.
// Unparseable input reads as zero.
type amount string

func (a *amount) UnmarshalJSON(data []byte) error {
	*a = amount(strings.Trim(string(data), `"`))
	return nil
}

func (a *amount) Decimal() decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return ledger.ParseAmount(string(*a))
}

type playerRequest struct {
	Name string `json:"name"`
}

type sessionRequest struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

type sessionPatch struct {
	Date     *string `json:"date"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`
}

type rosterRequest struct {
	PlayerID string `json:"playerId"`
	// Name creates a new player and seats them when PlayerID is empty
	Name string `json:"name"`
}

// resultRequest sets a result in one of three modes:
// standard writes both amounts, net writes a signed net amount, and field
// changes one amount keeping the other
type resultRequest struct {
	Mode    string  `json:"mode"`
	BuyIn   *amount `json:"buyIn"`
	CashOut *amount `json:"cashOut"`
	Net     *amount `json:"net"`
	Field   string  `json:"field"`
	Value   *amount `json:"value"`
}

type resultView struct {
	PlayerID string          `json:"playerId"`
	Name     string          `json:"name"`
	BuyIn    decimal.Decimal `json:"buyIn"`
	CashOut  decimal.Decimal `json:"cashOut"`
	Profit   decimal.Decimal `json:"profit"`
	Display  string          `json:"display"`
}

type totalsView struct {
	BuyIn    decimal.Decimal `json:"buyIn"`
	CashOut  decimal.Decimal `json:"cashOut"`
	Net      decimal.Decimal `json:"net"`
	Balanced bool            `json:"balanced"`
}

type sessionView struct {
	ledger.Session
	DisplayDate string          `json:"displayDate"`
	Results     []resultView    `json:"results"`
	Totals      totalsView      `json:"totals"`
	Available   []ledger.Player `json:"available"`
}

type standingView struct {
	ledger.Standing
	Display string `json:"display"`
	WinRate string `json:"winRate"`
}

type dashboardView struct {
	Standings     []standingView   `json:"standings"`
	TotalSessions int              `json:"totalSessions"`
	Volume        decimal.Decimal  `json:"volume"`
	Discrepancy   decimal.Decimal  `json:"discrepancy"`
	Unbalanced    bool             `json:"unbalanced"`
	TopWinner     *standingView    `json:"topWinner,omitempty"`
	BiggestLoser  *standingView    `json:"biggestLoser,omitempty"`
	Recent        []ledger.Session `json:"recent"`
}

func newStandingView(s ledger.Standing) standingView {
	return standingView{Standing: s, Display: format.Signed(s.Profit), WinRate: format.Percent(s.WinRate())}
}

func newDashboardView(d ledger.Dashboard) dashboardView {
	v := dashboardView{
		Standings:     make([]standingView, len(d.Standings)),
		TotalSessions: d.TotalSessions,
		Volume:        d.Volume,
		Discrepancy:   d.Discrepancy,
		Unbalanced:    d.Unbalanced,
		Recent:        d.Recent,
	}
	for i, s := range d.Standings {
		v.Standings[i] = newStandingView(s)
	}
	if d.TopWinner != nil {
		w := newStandingView(*d.TopWinner)
		v.TopWinner = &w
	}
	if d.BiggestLoser != nil {
		l := newStandingView(*d.BiggestLoser)
		v.BiggestLoser = &l
	}
	return v
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, badRequest("date must look like 2024-01-27")
	}
	return t, nil
}

// idParam reads a uuid path parameter. Anything else cannot name a row.
func idParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", false
	}
	return raw, true
}
