// Package state holds the client side cache of players, sessions and
// results and routes every mutation through the store. The container is
// injected into the HTTP and terminal surfaces; there is no package level
// instance.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/events"
	"github.com/from2future/poker-tracker/pkg/logger"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrEmptyName       = errors.New("name must not be empty")
	ErrMissingDate     = errors.New("session date is required")
	ErrInvalidField    = errors.New("unknown result field")
)

// DefaultPublishTimeout bounds how long a finished mutation waits on the
// event publisher
const DefaultPublishTimeout = 2 * time.Second

// Snapshot is a consistent copy of the cached rows
type Snapshot struct {
	Players   []ledger.Player
	Sessions  []ledger.Session
	Results   []ledger.Result
	Loading   bool
	LastError string
}

// Container caches fetched rows. Reads are served from the cache, writes
// go to the store first and only touch the cache once the store accepted
// them, so a failed call leaves the previous state in place.
type Container struct {
	store     store.Store
	publisher events.Publisher
	logger    *logger.Logger

	publishTimeout time.Duration

	// writes serializes mutations; mu guards the cached fields
	writes sync.Mutex
	mu     sync.RWMutex

	// pending holds the events of the running mutation. Guarded by writes.
	pending []events.ChangeEvent

	players  []ledger.Player
	sessions []ledger.Session
	results  []ledger.Result
	loading  bool
	lastErr  string
}

// Option tunes a Container
type Option func(*Container)

// WithPublishTimeout overrides DefaultPublishTimeout
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Container) {
		if d > 0 {
			c.publishTimeout = d
		}
	}
}

func New(st store.Store, pub events.Publisher, log *logger.Logger, opts ...Option) *Container {
	if pub == nil {
		pub = events.Nop{}
	}
	c := &Container{
		store:          st,
		publisher:      pub,
		logger:         log,
		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads every table from the store
func (c *Container) Refresh(ctx context.Context) error {
	c.writes.Lock()
	defer c.writes.Unlock()

	c.mu.Lock()
	c.loading = true
	c.lastErr = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	players, err := c.store.ListPlayers(ctx)
	if err != nil {
		return c.fail("failed to fetch players", err)
	}
	sessions, err := c.store.ListSessions(ctx)
	if err != nil {
		return c.fail("failed to fetch sessions", err)
	}
	results, err := c.store.ListResults(ctx)
	if err != nil {
		return c.fail("failed to fetch results", err)
	}

	c.mu.Lock()
	c.players = players
	c.sessions = ledger.SortSessionsByDate(sessions)
	c.results = results
	c.mu.Unlock()

	c.logger.Debug("state refreshed",
		zap.Int("players", len(players)),
		zap.Int("sessions", len(sessions)),
		zap.Int("results", len(results)))
	return nil
}

func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Players:   append([]ledger.Player(nil), c.players...),
		Sessions:  append([]ledger.Session(nil), c.sessions...),
		Results:   append([]ledger.Result(nil), c.results...),
		Loading:   c.loading,
		LastError: c.lastErr,
	}
}

func (c *Container) Players() []ledger.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ledger.Player(nil), c.players...)
}

func (c *Container) Sessions() []ledger.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ledger.Session(nil), c.sessions...)
}

func (c *Container) Results() []ledger.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ledger.Result(nil), c.results...)
}

// Session looks up a cached session
func (c *Container) Session(id string) (ledger.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.sessionIndex(id)
	if i < 0 {
		return ledger.Session{}, false
	}
	return c.sessions[i], true
}

// Player looks up a cached player
func (c *Container) Player(id string) (ledger.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.playerIndex(id)
	if i < 0 {
		return ledger.Player{}, false
	}
	return c.players[i], true
}

// SessionResults returns the cached results of one session
func (c *Container) SessionResults(sessionID string) []ledger.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ledger.ResultsForSession(c.results, sessionID)
}

// AvailablePlayers lists known players not yet seated in the session
func (c *Container) AvailablePlayers(sessionID string) []ledger.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ledger.AvailablePlayers(c.players, c.results, sessionID)
}

// Dashboard recomputes the summary from the cache
func (c *Container) Dashboard(opts ledger.Options) ledger.Dashboard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ledger.Summarize(c.players, c.sessions, c.results, opts)
}

// LastError is the message of the most recent failed operation, empty
// when the latest operation succeeded
func (c *Container) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Container) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// begin starts a mutation: it takes the write lock and clears the last
// error. The returned func releases the lock and then announces the events
// the mutation queued, so a slow publisher never holds up other writers.
func (c *Container) begin(ctx context.Context) func() {
	c.writes.Lock()
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()

	return func() {
		queued := c.pending
		c.pending = nil
		c.writes.Unlock()

		for _, e := range queued {
			c.announce(ctx, e)
		}
	}
}

// fail wraps err, records it as the latest error and logs it
func (c *Container) fail(msg string, err error, fields ...zap.Field) error {
	err = fmt.Errorf("%s: %w", msg, err)

	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()

	c.logger.Error(msg, err, fields...)
	return err
}

// publish queues an event for the running mutation. Callers hold writes.
func (c *Container) publish(e events.ChangeEvent) {
	c.pending = append(c.pending, e)
}

// announce delivers one event within the publish timeout. The mutation is
// already stored, so delivery failures are only logged and a cancelled
// caller context does not drop the event.
func (c *Container) announce(ctx context.Context, e events.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
	defer cancel()

	if err := c.publisher.Publish(ctx, e); err != nil {
		c.logger.Warn("failed to publish change event",
			zap.String("kind", string(e.Kind)),
			zap.Error(err))
	}
}

func (c *Container) sessionIndex(id string) int {
	for i, s := range c.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (c *Container) playerIndex(id string) int {
	for i, p := range c.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
