package main

import (
	"strconv"

	"github.com/pterm/pterm"

	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/pkg/format"
)

func playersTable(players []ledger.Player) pterm.TableData {
	data := pterm.TableData{{"ID", "Name", "Joined"}}
	for _, p := range players {
		data = append(data, []string{p.ID, p.Name, format.Date(p.CreatedAt)})
	}
	return data
}

func sessionsTable(sessions []ledger.Session, results []ledger.Result) pterm.TableData {
	data := pterm.TableData{{"ID", "Date", "Location", "Players", "Volume"}}
	for _, s := range sessions {
		rows := ledger.ResultsForSession(results, s.ID)
		data = append(data, []string{
			s.ID,
			format.Date(s.Date),
			s.Location,
			strconv.Itoa(len(rows)),
			format.Currency(ledger.SessionTotals(rows).BuyIn),
		})
	}
	return data
}

func leaderboardTable(standings []ledger.Standing) pterm.TableData {
	data := pterm.TableData{{"#", "Player", "Profit", "Sessions", "Win rate"}}
	for i, s := range standings {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			s.Name,
			format.Signed(s.Profit),
			strconv.Itoa(s.Sessions),
			format.Percent(s.WinRate()),
		})
	}
	return data
}

func sheetTable(players []ledger.Player, results []ledger.Result) pterm.TableData {
	data := pterm.TableData{{"Player", "Buy in", "Cash out", "Profit"}}
	for _, r := range results {
		data = append(data, []string{
			ledger.DisplayName(players, r.PlayerID),
			format.CurrencyCents(r.BuyIn),
			format.CurrencyCents(r.CashOut),
			format.Signed(r.Profit()),
		})
	}
	return data
}

func renderDashboard(d ledger.Dashboard) {
	pterm.DefaultSection.Println("Leaderboard")
	if len(d.Standings) == 0 {
		pterm.Info.Println("No players yet.")
	} else {
		pterm.DefaultTable.WithHasHeader().WithData(leaderboardTable(d.Standings)).Render()
	}

	pterm.DefaultSection.Println("Totals")
	pterm.Printfln("Sessions: %d   Volume: %s", d.TotalSessions, format.Currency(d.Volume))
	if d.TopWinner != nil {
		pterm.Printfln("Top winner: %s (%s)   Biggest loser: %s (%s)",
			d.TopWinner.Name, format.Signed(d.TopWinner.Profit),
			d.BiggestLoser.Name, format.Signed(d.BiggestLoser.Profit))
	}
	if d.Unbalanced {
		pterm.Warning.Printfln("Books are off by %s. Some cash was not accounted for.", format.CurrencyCents(d.Discrepancy))
	}

	if len(d.Recent) > 0 {
		pterm.DefaultSection.Println("Recent sessions")
		for _, s := range d.Recent {
			pterm.Printfln("%s  %s", format.Date(s.Date), s.Location)
		}
	}
}

func renderSession(s ledger.Session, players []ledger.Player, results []ledger.Result, available []ledger.Player) {
	pterm.DefaultSection.Printfln("%s, %s", format.Date(s.Date), s.Location)
	if s.Notes != "" {
		pterm.Println(s.Notes)
	}

	if len(results) == 0 {
		pterm.Info.Println("Nobody seated yet.")
	} else {
		pterm.DefaultTable.WithHasHeader().WithData(sheetTable(players, results)).Render()
	}

	t := ledger.SessionTotals(results)
	pterm.Printfln("In: %s   Out: %s", format.CurrencyCents(t.BuyIn), format.CurrencyCents(t.CashOut))
	if t.Balanced() {
		pterm.Success.Println("Balanced.")
	} else {
		pterm.Warning.Printfln("Off by %s.", format.CurrencyCents(t.Net))
	}

	if len(available) > 0 {
		names := make([]string, len(available))
		for i, p := range available {
			names[i] = p.Name
		}
		pterm.Info.Printfln("Not seated: %v", names)
	}
}

func printImportLine(l importer.Line) {
	switch l.Outcome {
	case importer.Created:
		pterm.Success.Println(l.Message)
	case importer.Failed:
		pterm.Error.Println(l.Message)
	case importer.Skipped:
		pterm.Warning.Println(l.Message)
	default:
		pterm.Info.Println(l.Message)
	}
}
