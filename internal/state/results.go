package state

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/events"
)

// SetResult writes both amounts of a (session, player) pair, creating the
// row when the cache does not know it yet
func (c *Container) SetResult(ctx context.Context, r ledger.Result) error {
	defer c.begin(ctx)()
	return c.setResult(ctx, r)
}

// AddToRoster seats a player in a session with zero amounts. A player
// already seated keeps their amounts.
func (c *Container) AddToRoster(ctx context.Context, sessionID, playerID string) error {
	defer c.begin(ctx)()

	if _, ok := c.Player(playerID); !ok {
		return ErrPlayerNotFound
	}
	if _, ok := c.cachedResult(sessionID, playerID); ok {
		return nil
	}
	return c.setResult(ctx, ledger.Result{SessionID: sessionID, PlayerID: playerID})
}

// SetResultField updates one amount from user input and keeps the other
// from the cache. Input that does not parse counts as zero.
func (c *Container) SetResultField(ctx context.Context, sessionID, playerID string, field ledger.Field, raw string) error {
	defer c.begin(ctx)()

	if !field.Valid() {
		return ErrInvalidField
	}
	current, _ := c.cachedResult(sessionID, playerID)
	current.SessionID, current.PlayerID = sessionID, playerID
	return c.setResult(ctx, current.WithField(field, ledger.ParseAmount(raw)))
}

// SetNetResult records a single signed net amount as its canonical pair
func (c *Container) SetNetResult(ctx context.Context, sessionID, playerID string, net decimal.Decimal) error {
	defer c.begin(ctx)()

	r := ledger.Result{SessionID: sessionID, PlayerID: playerID}.WithNet(net)
	return c.setResult(ctx, r)
}

// CreateAndSeat adds a new player and seats them in the session
func (c *Container) CreateAndSeat(ctx context.Context, sessionID, name string) (ledger.Player, error) {
	if _, ok := c.Session(sessionID); !ok {
		return ledger.Player{}, ErrSessionNotFound
	}
	p, err := c.AddPlayer(ctx, name)
	if err != nil {
		return ledger.Player{}, err
	}
	if err := c.AddToRoster(ctx, sessionID, p.ID); err != nil {
		return p, err
	}
	return p, nil
}

func (c *Container) setResult(ctx context.Context, r ledger.Result) error {
	if _, ok := c.Session(r.SessionID); !ok {
		return ErrSessionNotFound
	}

	// new rows need a known player; rows left by a removed player stay editable
	_, cached := c.cachedResult(r.SessionID, r.PlayerID)
	if _, ok := c.Player(r.PlayerID); !ok && !cached {
		return ErrPlayerNotFound
	}

	fields := []zap.Field{zap.String("session_id", r.SessionID), zap.String("player_id", r.PlayerID)}

	var err error
	if cached {
		err = c.store.UpdateResult(ctx, r)
	} else {
		err = c.store.InsertResult(ctx, r)
		if errors.Is(err, store.ErrDuplicate) {
			err = c.store.UpdateResult(ctx, r)
		}
	}
	if err != nil {
		return c.fail("failed to save result", err, fields...)
	}

	fresh, err := c.store.ListSessionResults(ctx, r.SessionID)
	if err != nil {
		// the write went through; keep the cache close by patching the row in
		c.logger.Warn("failed to reload session results", append(fields, zap.Error(err))...)
		c.mu.Lock()
		c.lastErr = err.Error()
		c.replaceSessionResults(r.SessionID, append(ledger.ResultsForSession(c.results, r.SessionID), r))
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.replaceSessionResults(r.SessionID, fresh)
		c.mu.Unlock()
	}

	e := events.New(events.ResultSet, r.PlayerID)
	e.SessionID, e.PlayerID = r.SessionID, r.PlayerID
	c.publish(e)
	return nil
}

// replaceSessionResults swaps the cached results of one session, deduping
// by player with the last entry winning. Callers hold mu.
func (c *Container) replaceSessionResults(sessionID string, rows []ledger.Result) {
	kept := make([]ledger.Result, 0, len(c.results)+1)
	for _, r := range c.results {
		if r.SessionID != sessionID {
			kept = append(kept, r)
		}
	}

	seen := make(map[string]int, len(rows))
	for _, r := range rows {
		if i, ok := seen[r.PlayerID]; ok {
			kept[i] = r
			continue
		}
		seen[r.PlayerID] = len(kept)
		kept = append(kept, r)
	}
	c.results = kept
}

func (c *Container) cachedResult(sessionID, playerID string) (ledger.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.results {
		if r.SessionID == sessionID && r.PlayerID == playerID {
			return r, true
		}
	}
	return ledger.Result{}, false
}
