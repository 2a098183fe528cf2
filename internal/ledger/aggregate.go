package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultRecentLimit is how many sessions the dashboard lists
const DefaultRecentLimit = 3

// DefaultTolerance is the largest history-wide discrepancy that is not flagged
var DefaultTolerance = decimal.NewFromInt(1)

// Standing is one leaderboard row with the player's lifetime figures
type Standing struct {
	PlayerID     string           `json:"playerId"`
	Name         string           `json:"name"`
	Profit       decimal.Decimal  `json:"profit"`
	Sessions     int              `json:"sessions"`
	TotalBuyIn   decimal.Decimal  `json:"totalBuyIn"`
	TotalCashOut decimal.Decimal  `json:"totalCashOut"`
	BestSession  *decimal.Decimal `json:"bestSession,omitempty"`
	WorstSession *decimal.Decimal `json:"worstSession,omitempty"`
	Wins         int              `json:"wins"`
}

// WinRate is the fraction of sessions finished in profit
func (s Standing) WinRate() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Sessions)
}

func (s *Standing) add(r Result) {
	p := r.Profit()
	s.Profit = s.Profit.Add(p)
	s.Sessions++
	s.TotalBuyIn = s.TotalBuyIn.Add(r.BuyIn)
	s.TotalCashOut = s.TotalCashOut.Add(r.CashOut)
	if p.IsPositive() {
		s.Wins++
	}
	if s.BestSession == nil || p.GreaterThan(*s.BestSession) {
		best := p
		s.BestSession = &best
	}
	if s.WorstSession == nil || p.LessThan(*s.WorstSession) {
		worst := p
		s.WorstSession = &worst
	}
}

// Leaderboard returns one standing per known player, best profit first.
// Players without results are listed with zero profit and zero sessions.
// Results of removed players count towards no standing. Ties keep the
// order of players.
func Leaderboard(players []Player, results []Result) []Standing {
	standings := make([]Standing, len(players))
	index := make(map[string]int, len(players))
	for i, p := range players {
		standings[i] = Standing{PlayerID: p.ID, Name: p.Name}
		index[p.ID] = i
	}

	for _, r := range results {
		if i, ok := index[r.PlayerID]; ok {
			standings[i].add(r)
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Profit.GreaterThan(standings[j].Profit)
	})
	return standings
}

// Volume is the total bought in across all results
func Volume(results []Result) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.BuyIn)
	}
	return total
}

// Discrepancy sums cash out minus buy in over all results. Zero when every
// chip was accounted for.
func Discrepancy(results []Result) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.Profit())
	}
	return total
}

// Unbalanced reports whether the discrepancy magnitude is strictly above tolerance
func Unbalanced(discrepancy, tolerance decimal.Decimal) bool {
	return discrepancy.Abs().GreaterThan(tolerance)
}

// SortSessionsByDate returns a copy ordered newest first
func SortSessionsByDate(sessions []Session) []Session {
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}

// RecentSessions returns at most n sessions, newest first
func RecentSessions(sessions []Session, n int) []Session {
	if n <= 0 {
		return []Session{}
	}
	sorted := SortSessionsByDate(sessions)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Options tunes Summarize
type Options struct {
	RecentLimit int
	Tolerance   decimal.Decimal
}

// DefaultOptions matches the dashboard of the web client
func DefaultOptions() Options {
	return Options{RecentLimit: DefaultRecentLimit, Tolerance: DefaultTolerance}
}

// Dashboard is the derived overview of the whole history
type Dashboard struct {
	Standings     []Standing      `json:"standings"`
	TotalSessions int             `json:"totalSessions"`
	Volume        decimal.Decimal `json:"volume"`
	Discrepancy   decimal.Decimal `json:"discrepancy"`
	Unbalanced    bool            `json:"unbalanced"`
	TopWinner     *Standing       `json:"topWinner,omitempty"`
	BiggestLoser  *Standing       `json:"biggestLoser,omitempty"`
	Recent        []Session       `json:"recent"`
}

// Summarize recomputes the dashboard from scratch. It has no side effects.
func Summarize(players []Player, sessions []Session, results []Result, opts Options) Dashboard {
	standings := Leaderboard(players, results)
	discrepancy := Discrepancy(results)

	d := Dashboard{
		Standings:     standings,
		TotalSessions: len(sessions),
		Volume:        Volume(results),
		Discrepancy:   discrepancy,
		Unbalanced:    Unbalanced(discrepancy, opts.Tolerance),
		Recent:        RecentSessions(sessions, opts.RecentLimit),
	}
	if len(standings) > 0 {
		top := standings[0]
		bottom := standings[len(standings)-1]
		d.TopWinner = &top
		d.BiggestLoser = &bottom
	}
	return d
}

// Totals are the sums shown under a session sheet
type Totals struct {
	BuyIn   decimal.Decimal `json:"buyIn"`
	CashOut decimal.Decimal `json:"cashOut"`
	Net     decimal.Decimal `json:"net"`
}

// Balanced reports whether cash outs exactly match buy ins
func (t Totals) Balanced() bool {
	return t.Net.IsZero()
}

// SessionTotals sums the given results, normally those of a single session
func SessionTotals(results []Result) Totals {
	t := Totals{BuyIn: decimal.Zero, CashOut: decimal.Zero, Net: decimal.Zero}
	for _, r := range results {
		t.BuyIn = t.BuyIn.Add(r.BuyIn)
		t.CashOut = t.CashOut.Add(r.CashOut)
		t.Net = t.Net.Add(r.Profit())
	}
	return t
}

// ResultsForSession filters results down to one session
func ResultsForSession(results []Result, sessionID string) []Result {
	out := []Result{}
	for _, r := range results {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

// AvailablePlayers lists known players not yet on the session roster
func AvailablePlayers(players []Player, results []Result, sessionID string) []Player {
	seated := make(map[string]struct{})
	for _, r := range results {
		if r.SessionID == sessionID {
			seated[r.PlayerID] = struct{}{}
		}
	}
	out := []Player{}
	for _, p := range players {
		if _, ok := seated[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// DisplayName resolves a player id, falling back to UnknownPlayer for orphans
func DisplayName(players []Player, id string) string {
	for _, p := range players {
		if p.ID == id {
			return p.Name
		}
	}
	return UnknownPlayer
}
