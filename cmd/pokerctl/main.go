package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/from2future/poker-tracker/internal/auth"
	"github.com/from2future/poker-tracker/internal/bootstrap"
	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/state"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/config"
	"github.com/from2future/poker-tracker/pkg/events"
	"github.com/from2future/poker-tracker/pkg/logger"
)

// app is everything a subcommand can reach
type app struct {
	cfg       *config.AppConfig
	logger    *logger.Logger
	store     store.Store
	state     *state.Container
	gate      *auth.Gate
	importer  *importer.Runner
	dashboard ledger.Options
}

type command struct {
	usage string
	// open commands work without logging in first
	open bool
	run  func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":          {usage: "login [code]", open: true, run: runLogin},
	"logout":         {usage: "logout", open: true, run: runLogout},
	"migrate":        {usage: "migrate", open: true, run: runMigrate},
	"set-code":       {usage: "set-code <code>", run: runSetCode},
	"players":        {usage: "players", run: runPlayers},
	"add-player":     {usage: "add-player <name>", run: runAddPlayer},
	"rename-player":  {usage: "rename-player <id> <name>", run: runRenamePlayer},
	"remove-player":  {usage: "remove-player <id>", run: runRemovePlayer},
	"sessions":       {usage: "sessions", run: runSessions},
	"new-session":    {usage: "new-session -date 2024-01-27 [-location L] [-notes N]", run: runNewSession},
	"session":        {usage: "session <id>", run: runSession},
	"delete-session": {usage: "delete-session <id>", run: runDeleteSession},
	"seat":           {usage: "seat <session-id> <player-id>", run: runSeat},
	"set-result":     {usage: "set-result <session-id> <player-id> <buy-in> <cash-out>", run: runSetResult},
	"set-net":        {usage: "set-net <session-id> <player-id> <net>", run: runSetNet},
	"dashboard":      {usage: "dashboard", run: runDashboard},
	"import":         {usage: "import [file]", run: runImport},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: pokerctl [-config file] <command> [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		pterm.Error.Printfln("failed to load config: %v", err)
		os.Exit(1)
	}
	// keep the terminal for output, log only what matters
	if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	l, err := bootstrap.Logger(cfg, "pokerctl")
	if err != nil {
		pterm.Error.Printfln("failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l, cmd, flag.Args()[1:]); err != nil {
		pterm.Error.Println(describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, l *logger.Logger, cmd command, args []string) error {
	st, err := bootstrap.OpenStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer st.Close()

	flags, closeFlags := bootstrap.FlagStore(cfg)
	defer closeFlags()

	publisher := bootstrap.Publisher(cfg)
	defer publisher.Close()

	a := newApp(cfg, l, st, flags, publisher)

	if !cmd.open {
		ok, err := a.gate.IsAuthenticated(ctx)
		if err != nil {
			return fmt.Errorf("failed to read login: %w", err)
		}
		if !ok {
			return errors.New("not logged in, run: pokerctl login")
		}
		if err := a.state.Refresh(ctx); err != nil {
			return err
		}
	}
	return cmd.run(ctx, a, args)
}

func newApp(cfg *config.AppConfig, l *logger.Logger, st store.Store, flags auth.FlagStore, pub events.Publisher) *app {
	c := state.New(st, pub, l)
	return &app{
		cfg:       cfg,
		logger:    l,
		store:     st,
		state:     c,
		gate:      auth.NewGate(st, flags, l),
		importer:  importer.NewRunner(st, c, l, bootstrap.ImportOptions(cfg)),
		dashboard: bootstrap.DashboardOptions(cfg),
	}
}

// describe turns known errors into something a player understands
func describe(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidAccessCode):
		return "Wrong access code."
	case errors.Is(err, auth.ErrAccessCodeMissing):
		return "No access code has been set up yet."
	case errors.Is(err, state.ErrSessionNotFound):
		return "Session not found."
	case errors.Is(err, state.ErrPlayerNotFound):
		return "Player not found."
	case errors.Is(err, state.ErrEmptyName):
		return "Name must not be empty."
	default:
		return err.Error()
	}
}
