package store

import (
	"context"
	"errors"
	"time"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/pkg/metrics"
)

var (
	// ErrNotFound is returned when a looked up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("already exists")
)

// AccessCodeKey is the app_settings key holding the shared passphrase
const AccessCodeKey = "access_code"

// SessionInput carries the fields of a new session
type SessionInput struct {
	Date     time.Time
	Location string
	Notes    string
}

// SessionUpdate carries the fields to change; nil fields are left alone
type SessionUpdate struct {
	Date     *time.Time
	Location *string
	Notes    *string
}

// Empty reports whether the update changes nothing
func (u SessionUpdate) Empty() bool {
	return u.Date == nil && u.Location == nil && u.Notes == nil
}

// Apply returns s with the update applied
func (u SessionUpdate) Apply(s ledger.Session) ledger.Session {
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.Location != nil {
		s.Location = *u.Location
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	return s
}

// Store is the remote relational store the client reads from and writes to.
// It owns durability and id generation. Deleting a session removes its
// results; deleting a player leaves its results in place.
type Store interface {
	ListPlayers(ctx context.Context) ([]ledger.Player, error)
	CreatePlayer(ctx context.Context, name string) (ledger.Player, error)
	RenamePlayer(ctx context.Context, id, name string) error
	DeletePlayer(ctx context.Context, id string) error
	// FindPlayerByName matches names case-insensitively
	FindPlayerByName(ctx context.Context, name string) (ledger.Player, error)

	// ListSessions returns sessions newest first
	ListSessions(ctx context.Context) ([]ledger.Session, error)
	CreateSession(ctx context.Context, in SessionInput) (ledger.Session, error)
	UpdateSession(ctx context.Context, id string, u SessionUpdate) error
	DeleteSession(ctx context.Context, id string) error
	FindSessionByDate(ctx context.Context, date time.Time) (ledger.Session, error)

	ListResults(ctx context.Context) ([]ledger.Result, error)
	ListSessionResults(ctx context.Context, sessionID string) ([]ledger.Result, error)
	FindResult(ctx context.Context, sessionID, playerID string) (ledger.Result, error)
	InsertResult(ctx context.Context, r ledger.Result) error
	UpdateResult(ctx context.Context, r ledger.Result) error

	AccessCode(ctx context.Context) (string, error)
	SetAccessCode(ctx context.Context, code string) error

	Ping(ctx context.Context) error
	Close() error
}

// observe records a store call in the metrics
func observe(op string, start time.Time, err error) {
	metrics.StoreOperationsTotal.WithLabelValues(op).Inc()
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.StoreErrorsTotal.WithLabelValues(op).Inc()
	}
}

// DateOnly truncates t to its calendar day in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
