package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/state"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/logger"
	"github.com/from2future/poker-tracker/pkg/metrics"
)

// Options tunes the reconstruction
type Options struct {
	// Stake is the assumed single buy-in per night
	Stake decimal.Decimal
	// Notes is put on sessions the import creates when the dataset has none
	Notes string
}

func DefaultOptions() Options {
	return Options{Stake: ledger.DefaultStake, Notes: "Imported History"}
}

// Runner applies a dataset. Lookups go to the store directly so a second
// run finds what the first one created; writes go through the state
// container so the cache and change events follow along.
type Runner struct {
	store  store.Store
	state  *state.Container
	logger *logger.Logger
	opts   Options
}

func NewRunner(st store.Store, c *state.Container, log *logger.Logger, opts Options) *Runner {
	if !opts.Stake.IsPositive() {
		opts.Stake = ledger.DefaultStake
	}
	return &Runner{
		store:  st,
		state:  c,
		logger: log.With(zap.String("component", "importer")),
		opts:   opts,
	}
}

// Run imports sessions first, then players and their results. A failed
// row is reported and the run moves on; only a cancelled context or a
// failed initial refresh stop it early. Nothing is rolled back.
func (r *Runner) Run(ctx context.Context, ds Dataset) (*Report, error) {
	report := &Report{}

	if err := r.state.Refresh(ctx); err != nil {
		return report, fmt.Errorf("failed to load current state: %w", err)
	}

	notes := ds.Notes
	if notes == "" {
		notes = r.opts.Notes
	}

	sessionIDs := make(map[string]string, len(ds.Sessions))
	for _, rec := range ds.Sessions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if id, ok := r.importSession(ctx, report, rec, notes); ok {
			sessionIDs[rec.Date] = id
		}
	}

	for _, rec := range ds.Players {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		playerID, ok := r.importPlayer(ctx, report, rec.Name)
		if !ok {
			continue
		}
		for _, date := range rec.Dates() {
			sessionID, ok := sessionIDs[date]
			if !ok {
				r.step(report, EntityResult, Skipped, "Skipping result for %s on %s (no session)", rec.Name, date)
				continue
			}
			r.importResult(ctx, report, rec.Name, date, sessionID, playerID, rec.Results[date])
		}
	}

	r.logger.Info("import complete",
		zap.Int("created", report.Count(Created)),
		zap.Int("exists", report.Count(Exists)),
		zap.Int("skipped", report.Count(Skipped)),
		zap.Int("failed", report.Count(Failed)))
	return report, nil
}

func (r *Runner) importSession(ctx context.Context, report *Report, rec SessionRecord, notes string) (string, bool) {
	date, err := parseDate(rec.Date)
	if err != nil {
		r.step(report, EntitySession, Failed, "Invalid session date %q", rec.Date)
		return "", false
	}

	existing, err := r.store.FindSessionByDate(ctx, date)
	switch {
	case err == nil:
		r.step(report, EntitySession, Exists, "Session %s already exists: %s", rec.Date, existing.ID)
		return existing.ID, true
	case !errors.Is(err, store.ErrNotFound):
		r.fail(report, EntitySession, err, "Failed to look up session %s", rec.Date)
		return "", false
	}

	s, err := r.state.AddSession(ctx, store.SessionInput{Date: date, Location: rec.Location, Notes: notes})
	if err != nil {
		r.fail(report, EntitySession, err, "Failed to create session %s", rec.Date)
		return "", false
	}
	r.step(report, EntitySession, Created, "Created session %s: %s", rec.Date, s.ID)
	return s.ID, true
}

func (r *Runner) importPlayer(ctx context.Context, report *Report, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.step(report, EntityPlayer, Skipped, "Skipping player with no name")
		return "", false
	}

	existing, err := r.store.FindPlayerByName(ctx, name)
	switch {
	case err == nil:
		r.step(report, EntityPlayer, Exists, "Player %s exists: %s", name, existing.ID)
		return existing.ID, true
	case !errors.Is(err, store.ErrNotFound):
		r.fail(report, EntityPlayer, err, "Failed to look up player %s", name)
		return "", false
	}

	p, err := r.state.AddPlayer(ctx, name)
	if err != nil {
		r.fail(report, EntityPlayer, err, "Failed to create player %s", name)
		return "", false
	}
	r.step(report, EntityPlayer, Created, "Created player %s: %s", name, p.ID)
	return p.ID, true
}

func (r *Runner) importResult(ctx context.Context, report *Report, name, date, sessionID, playerID string, net decimal.Decimal) {
	_, err := r.store.FindResult(ctx, sessionID, playerID)
	switch {
	case err == nil:
		r.step(report, EntityResult, Exists, "Result already exists for %s on %s", name, date)
		return
	case !errors.Is(err, store.ErrNotFound):
		r.fail(report, EntityResult, err, "Failed to look up result for %s on %s", name, date)
		return
	}

	buyIn, cashOut := ledger.NormalizeNet(net, r.opts.Stake)
	res := ledger.Result{SessionID: sessionID, PlayerID: playerID, BuyIn: buyIn, CashOut: cashOut}
	if err := r.state.SetResult(ctx, res); err != nil {
		r.fail(report, EntityResult, err, "Error adding result for %s", name)
		return
	}
	r.step(report, EntityResult, Created, "Added result for %s on %s: %s in, %s out",
		name, date, buyIn.String(), cashOut.String())
}

func (r *Runner) step(report *Report, entity Entity, outcome Outcome, format string, args ...any) {
	l := report.add(entity, outcome, format, args...)
	metrics.ImportStepsTotal.WithLabelValues(string(entity), string(outcome)).Inc()
	r.logger.Debug(l.Message, zap.String("entity", string(entity)), zap.String("outcome", string(outcome)))
}

func (r *Runner) fail(report *Report, entity Entity, err error, format string, args ...any) {
	l := report.add(entity, Failed, format+": %v", append(args, err)...)
	metrics.ImportStepsTotal.WithLabelValues(string(entity), string(Failed)).Inc()
	r.logger.Error("import step failed", err, zap.String("entity", string(entity)), zap.String("step", l.Message))
}
