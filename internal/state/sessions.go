package state

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/events"
)

// AddSession creates a game night
func (c *Container) AddSession(ctx context.Context, in store.SessionInput) (ledger.Session, error) {
	defer c.begin(ctx)()

	if in.Date.IsZero() {
		return ledger.Session{}, ErrMissingDate
	}
	in.Date = store.DateOnly(in.Date)
	in.Location = strings.TrimSpace(in.Location)

	s, err := c.store.CreateSession(ctx, in)
	if err != nil {
		return ledger.Session{}, c.fail("failed to add session", err,
			zap.Time("date", in.Date), zap.String("location", in.Location))
	}

	c.mu.Lock()
	c.sessions = ledger.SortSessionsByDate(append([]ledger.Session{s}, c.sessions...))
	c.mu.Unlock()

	c.logger.Info("session added", zap.String("session_id", s.ID), zap.Time("date", s.Date))
	c.publish(events.New(events.SessionCreated, s.ID))
	return s, nil
}

// UpdateSession changes the given fields of a session. An empty update
// is a no-op.
func (c *Container) UpdateSession(ctx context.Context, id string, u store.SessionUpdate) error {
	defer c.begin(ctx)()

	if u.Empty() {
		return nil
	}
	if u.Date != nil {
		if u.Date.IsZero() {
			return ErrMissingDate
		}
		d := store.DateOnly(*u.Date)
		u.Date = &d
	}

	if err := c.store.UpdateSession(ctx, id, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return c.fail("failed to update session", err, zap.String("session_id", id))
	}

	c.mu.Lock()
	if i := c.sessionIndex(id); i >= 0 {
		c.sessions[i] = u.Apply(c.sessions[i])
		c.sessions = ledger.SortSessionsByDate(c.sessions)
	}
	c.mu.Unlock()

	c.publish(events.New(events.SessionUpdated, id))
	return nil
}

// DeleteSession removes a session together with its results
func (c *Container) DeleteSession(ctx context.Context, id string) error {
	defer c.begin(ctx)()

	if err := c.store.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return c.fail("failed to delete session", err, zap.String("session_id", id))
	}

	c.mu.Lock()
	if i := c.sessionIndex(id); i >= 0 {
		c.sessions = append(c.sessions[:i:i], c.sessions[i+1:]...)
	}
	kept := c.results[:0:0]
	for _, r := range c.results {
		if r.SessionID != id {
			kept = append(kept, r)
		}
	}
	c.results = kept
	c.mu.Unlock()

	c.logger.Info("session deleted", zap.String("session_id", id))
	c.publish(events.New(events.SessionDeleted, id))
	return nil
}
