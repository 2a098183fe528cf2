package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/state"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/format"
)

var errUsage = errors.New("wrong arguments")

func need(args []string, n int, use string) error {
	if len(args) < n {
		return fmt.Errorf("%w, usage: pokerctl %s", errUsage, use)
	}
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	code := ""
	if len(args) > 0 {
		code = args[0]
	} else {
		var err error
		code, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Access code")
		if err != nil {
			return err
		}
	}
	if err := a.gate.Login(ctx, strings.TrimSpace(code)); err != nil {
		return err
	}
	pterm.Success.Println("Logged in.")
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := a.gate.Logout(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Logged out.")
	return nil
}

func runMigrate(ctx context.Context, a *app, args []string) error {
	type migrator interface{ Migrate(context.Context) error }
	m, ok := a.store.(migrator)
	if !ok {
		pterm.Info.Println("Nothing to migrate for this store.")
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return err
	}
	pterm.Success.Println("Schema is up to date.")
	return nil
}

func runSetCode(ctx context.Context, a *app, args []string) error {
	if err := need(args, 1, "set-code <code>"); err != nil {
		return err
	}
	if err := a.store.SetAccessCode(ctx, args[0]); err != nil {
		return err
	}
	pterm.Success.Println("Access code changed.")
	return nil
}

func runPlayers(ctx context.Context, a *app, args []string) error {
	players := a.state.Players()
	if len(players) == 0 {
		pterm.Info.Println("No players yet.")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(playersTable(players)).Render()
}

func runAddPlayer(ctx context.Context, a *app, args []string) error {
	if err := need(args, 1, "add-player <name>"); err != nil {
		return err
	}
	p, err := a.state.AddPlayer(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Added %s (%s).", p.Name, p.ID)
	return nil
}

func runRenamePlayer(ctx context.Context, a *app, args []string) error {
	if err := need(args, 2, "rename-player <id> <name>"); err != nil {
		return err
	}
	if err := a.state.RenamePlayer(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	pterm.Success.Println("Player renamed.")
	return nil
}

func runRemovePlayer(ctx context.Context, a *app, args []string) error {
	if err := need(args, 1, "remove-player <id>"); err != nil {
		return err
	}
	p, ok := a.state.Player(args[0])
	if !ok {
		return state.ErrPlayerNotFound
	}
	if err := a.state.RemovePlayer(ctx, p.ID); err != nil {
		return err
	}
	pterm.Success.Printfln("Removed %s. Their past results stay on the books.", p.Name)
	return nil
}

func runSessions(ctx context.Context, a *app, args []string) error {
	sessions := a.state.Sessions()
	if len(sessions) == 0 {
		pterm.Info.Println("No sessions yet.")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(sessionsTable(sessions, a.state.Results())).Render()
}

func runNewSession(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("new-session", flag.ContinueOnError)
	date := fs.String("date", time.Now().Format(importer.DateLayout), "session date, YYYY-MM-DD")
	location := fs.String("location", "", "where the game was played")
	notes := fs.String("notes", "", "free text notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := time.Parse(importer.DateLayout, *date)
	if err != nil {
		return fmt.Errorf("%w: date must look like 2024-01-27", errUsage)
	}
	s, err := a.state.AddSession(ctx, store.SessionInput{Date: d, Location: *location, Notes: *notes})
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Created session on %s (%s).", format.Date(s.Date), s.ID)
	return nil
}

func runSession(ctx context.Context, a *app, args []string) error {
	if err := need(args, 1, "session <id>"); err != nil {
		return err
	}
	s, ok := a.state.Session(args[0])
	if !ok {
		return state.ErrSessionNotFound
	}
	renderSession(s, a.state.Players(), a.state.SessionResults(s.ID), a.state.AvailablePlayers(s.ID))
	return nil
}

func runDeleteSession(ctx context.Context, a *app, args []string) error {
	if err := need(args, 1, "delete-session <id>"); err != nil {
		return err
	}
	if err := a.state.DeleteSession(ctx, args[0]); err != nil {
		return err
	}
	pterm.Success.Println("Session and its results deleted.")
	return nil
}

func runSeat(ctx context.Context, a *app, args []string) error {
	if err := need(args, 2, "seat <session-id> <player-id>"); err != nil {
		return err
	}
	if _, ok := a.state.Session(args[0]); !ok {
		return state.ErrSessionNotFound
	}
	if err := a.state.AddToRoster(ctx, args[0], args[1]); err != nil {
		return err
	}
	pterm.Success.Println("Player seated.")
	return nil
}

func runSetResult(ctx context.Context, a *app, args []string) error {
	if err := need(args, 4, "set-result <session-id> <player-id> <buy-in> <cash-out>"); err != nil {
		return err
	}
	r := ledger.Result{
		SessionID: args[0],
		PlayerID:  args[1],
		BuyIn:     ledger.ParseAmount(args[2]),
		CashOut:   ledger.ParseAmount(args[3]),
	}
	if err := a.state.SetResult(ctx, r); err != nil {
		return err
	}
	pterm.Success.Printfln("Saved: %s in, %s out (%s).",
		format.CurrencyCents(r.BuyIn), format.CurrencyCents(r.CashOut), format.Signed(r.Profit()))
	return nil
}

func runSetNet(ctx context.Context, a *app, args []string) error {
	if err := need(args, 3, "set-net <session-id> <player-id> <net>"); err != nil {
		return err
	}
	net := ledger.ParseAmount(args[2])
	if err := a.state.SetNetResult(ctx, args[0], args[1], net); err != nil {
		return err
	}
	pterm.Success.Printfln("Saved net %s.", format.Signed(net))
	return nil
}

func runDashboard(ctx context.Context, a *app, args []string) error {
	renderDashboard(a.state.Dashboard(a.dashboard))
	return nil
}

func runImport(ctx context.Context, a *app, args []string) error {
	ds := importer.History()
	if len(args) > 0 {
		var err error
		if ds, err = importer.LoadFile(args[0]); err != nil {
			return err
		}
	}

	spinner, _ := pterm.DefaultSpinner.Start("Importing...")
	report, err := a.importer.Run(ctx, ds)
	if spinner != nil {
		spinner.Stop()
	}
	if report != nil {
		for _, line := range report.Lines {
			printImportLine(line)
		}
	}
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Import complete: %s.", report.Summary())
	return nil
}
