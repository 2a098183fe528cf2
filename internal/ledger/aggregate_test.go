package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func result(session, player, buyIn, cashOut string) Result {
	return Result{SessionID: session, PlayerID: player, BuyIn: d(buyIn), CashOut: d(cashOut)}
}

// buildHistory spreads profits (in cents) over numPlayers players and a few sessions
func buildHistory(numPlayers int, cents []int64) ([]Player, []Result) {
	players := make([]Player, numPlayers)
	for i := range players {
		players[i] = Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
	}
	results := make([]Result, len(cents))
	for i, c := range cents {
		amount := decimal.New(c, -2)
		r := Result{
			SessionID: fmt.Sprintf("s%d", i/numPlayers),
			PlayerID:  players[i%numPlayers].ID,
		}
		results[i] = r.WithNet(amount)
	}
	return players, results
}

func TestAggregationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("sum of standings equals history discrepancy", prop.ForAll(
		func(numPlayers int, cents []int64) bool {
			players, results := buildHistory(numPlayers, cents)
			total := decimal.Zero
			for _, s := range Leaderboard(players, results) {
				total = total.Add(s.Profit)
			}
			return total.Equal(Discrepancy(results))
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.Int64Range(-100000, 100000)),
	))

	properties.Property("every player is listed exactly once", prop.ForAll(
		func(numPlayers int, cents []int64) bool {
			players, results := buildHistory(numPlayers, cents)
			standings := Leaderboard(players, results)
			if len(standings) != len(players) {
				return false
			}
			seen := map[string]bool{}
			sessions := 0
			for _, s := range standings {
				if seen[s.PlayerID] {
					return false
				}
				seen[s.PlayerID] = true
				sessions += s.Sessions
			}
			return sessions == len(results)
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.Int64Range(-100000, 100000)),
	))

	properties.Property("standings are ordered by profit", prop.ForAll(
		func(numPlayers int, cents []int64) bool {
			players, results := buildHistory(numPlayers, cents)
			standings := Leaderboard(players, results)
			for i := 1; i < len(standings); i++ {
				if standings[i].Profit.GreaterThan(standings[i-1].Profit) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.SliceOf(gen.Int64Range(-100000, 100000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestLeaderboardIncludesIdlePlayers(t *testing.T) {
	players := []Player{{ID: "a", Name: "Ray"}, {ID: "b", Name: "Tom"}, {ID: "c", Name: "Jack"}}
	results := []Result{
		result("s1", "a", "5", "12"),
		result("s1", "b", "5", "0"),
	}

	standings := Leaderboard(players, results)
	require.Len(t, standings, 3)

	assert.Equal(t, "Ray", standings[0].Name)
	assert.True(t, standings[0].Profit.Equal(d("7")))
	assert.Equal(t, "Jack", standings[1].Name)
	assert.True(t, standings[1].Profit.IsZero())
	assert.Equal(t, 0, standings[1].Sessions)
	assert.Nil(t, standings[1].BestSession)
	assert.Equal(t, 0.0, standings[1].WinRate())
	assert.Equal(t, "Tom", standings[2].Name)
	assert.True(t, standings[2].Profit.Equal(d("-5")))
}

func TestLeaderboardTiesKeepPlayerOrder(t *testing.T) {
	players := []Player{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}
	results := []Result{
		result("s1", "c", "5", "10"),
		result("s1", "a", "5", "10"),
		result("s1", "b", "5", "10"),
	}

	standings := Leaderboard(players, results)
	assert.Equal(t, []string{"A", "B", "C"}, []string{standings[0].Name, standings[1].Name, standings[2].Name})
}

func TestLeaderboardIgnoresOrphanedResults(t *testing.T) {
	players := []Player{{ID: "a", Name: "Ray"}}
	results := []Result{
		result("s1", "a", "5", "3"),
		result("s1", "gone", "5", "7"),
	}

	standings := Leaderboard(players, results)
	require.Len(t, standings, 1)
	assert.True(t, standings[0].Profit.Equal(d("-2")))
	assert.True(t, Discrepancy(results).IsZero(), "orphans still count towards the discrepancy")
	assert.Equal(t, UnknownPlayer, DisplayName(players, "gone"))
	assert.Equal(t, "Ray", DisplayName(players, "a"))
}

func TestLifetimeStats(t *testing.T) {
	players := []Player{{ID: "a", Name: "Shivan"}}
	results := []Result{
		result("s1", "a", "5", "10.9"),
		result("s2", "a", "5", "8.85"),
		result("s3", "a", "5", "2"),
	}

	s := Leaderboard(players, results)[0]
	assert.Equal(t, 3, s.Sessions)
	assert.Equal(t, 2, s.Wins)
	assert.InDelta(t, 2.0/3.0, s.WinRate(), 1e-9)
	assert.True(t, s.TotalBuyIn.Equal(d("15")))
	assert.True(t, s.TotalCashOut.Equal(d("21.75")))
	require.NotNil(t, s.BestSession)
	require.NotNil(t, s.WorstSession)
	assert.True(t, s.BestSession.Equal(d("5.9")))
	assert.True(t, s.WorstSession.Equal(d("-3")))
}

func TestUnbalancedThreshold(t *testing.T) {
	tests := []struct {
		name        string
		discrepancy string
		want        bool
	}{
		{"balanced", "0", false},
		{"exactly one", "1.00", false},
		{"exactly minus one", "-1.00", false},
		{"just above", "1.01", true},
		{"just below minus one", "-1.01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unbalanced(d(tt.discrepancy), DefaultTolerance))
		})
	}
}

func TestSummarizeFlagsDiscrepancy(t *testing.T) {
	players := []Player{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	sessions := []Session{{ID: "s1", Date: day("2024-01-27")}}

	balanced := Summarize(players, sessions, []Result{
		result("s1", "a", "5", "6"),
		result("s1", "b", "5", "5"),
	}, DefaultOptions())
	assert.True(t, balanced.Discrepancy.Equal(d("1")))
	assert.False(t, balanced.Unbalanced)

	off := Summarize(players, sessions, []Result{
		result("s1", "a", "5", "6.01"),
		result("s1", "b", "5", "5"),
	}, DefaultOptions())
	assert.True(t, off.Unbalanced)
	assert.True(t, off.Volume.Equal(d("10")))
	assert.Equal(t, 1, off.TotalSessions)
	require.NotNil(t, off.TopWinner)
	require.NotNil(t, off.BiggestLoser)
	assert.Equal(t, "A", off.TopWinner.Name)
	assert.Equal(t, "B", off.BiggestLoser.Name)
}

func TestSummarizeEmpty(t *testing.T) {
	dash := Summarize(nil, nil, nil, DefaultOptions())
	assert.Empty(t, dash.Standings)
	assert.Nil(t, dash.TopWinner)
	assert.Nil(t, dash.BiggestLoser)
	assert.True(t, dash.Volume.IsZero())
	assert.False(t, dash.Unbalanced)
	assert.Empty(t, dash.Recent)
}

func TestRecentSessions(t *testing.T) {
	sessions := []Session{
		{ID: "s1", Date: day("2024-01-27")},
		{ID: "s3", Date: day("2024-02-09")},
		{ID: "s2", Date: day("2024-02-02")},
		{ID: "s0", Date: day("2023-12-31")},
	}

	recent := RecentSessions(sessions, 3)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"s3", "s2", "s1"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})
	assert.Equal(t, "s1", sessions[0].ID, "input must not be reordered")

	assert.Len(t, RecentSessions(sessions, 10), 4)
	assert.Empty(t, RecentSessions(sessions, 0))
}

func TestSessionTotals(t *testing.T) {
	results := []Result{
		result("s1", "a", "5", "12"),
		result("s1", "b", "10", "3"),
	}
	totals := SessionTotals(results)
	assert.True(t, totals.BuyIn.Equal(d("15")))
	assert.True(t, totals.CashOut.Equal(d("15")))
	assert.True(t, totals.Balanced())

	totals = SessionTotals(append(results, result("s1", "c", "5", "4.5")))
	assert.True(t, totals.Net.Equal(d("-0.5")))
	assert.False(t, totals.Balanced())
}

func TestRosterHelpers(t *testing.T) {
	players := []Player{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}
	results := []Result{
		result("s1", "a", "0", "0"),
		result("s2", "b", "0", "0"),
	}

	assert.Len(t, ResultsForSession(results, "s1"), 1)
	assert.Empty(t, ResultsForSession(results, "missing"))

	available := AvailablePlayers(players, results, "s1")
	require.Len(t, available, 2)
	assert.Equal(t, "b", available[0].ID)
	assert.Equal(t, "c", available[1].ID)
}
