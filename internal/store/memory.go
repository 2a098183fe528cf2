package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/from2future/poker-tracker/internal/ledger"
)

// Memory implements Store in process memory. It follows the same rules as
// the PostgreSQL schema: session deletes cascade to results, player deletes
// do not, and a (session, player) pair holds at most one result.
type Memory struct {
	mu       sync.Mutex
	players  []ledger.Player
	sessions []ledger.Session
	results  []ledger.Result
	settings map[string]string
	now      func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		settings: map[string]string{},
		now:      time.Now,
	}
}

// Counts returns the number of stored players, sessions and results
func (m *Memory) Counts() (players, sessions, results int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players), len(m.sessions), len(m.results)
}

func (m *Memory) ListPlayers(ctx context.Context) (players []ledger.Player, err error) {
	defer func(start time.Time) { observe("list_players", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Player, len(m.players))
	copy(out, m.players)
	return out, nil
}

func (m *Memory) CreatePlayer(ctx context.Context, name string) (pl ledger.Player, err error) {
	defer func(start time.Time) { observe("create_player", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	pl = ledger.Player{ID: uuid.NewString(), Name: name, CreatedAt: m.now()}
	m.players = append(m.players, pl)
	return pl, nil
}

func (m *Memory) RenamePlayer(ctx context.Context, id, name string) (err error) {
	defer func(start time.Time) { observe("rename_player", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.players {
		if m.players[i].ID == id {
			m.players[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("rename player: %w", ErrNotFound)
}

// DeletePlayer removes the player but keeps their results
func (m *Memory) DeletePlayer(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_player", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.players {
		if m.players[i].ID == id {
			m.players = append(m.players[:i], m.players[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete player: %w", ErrNotFound)
}

func (m *Memory) FindPlayerByName(ctx context.Context, name string) (pl ledger.Player, err error) {
	defer func(start time.Time) { observe("find_player", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.players {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return pl, fmt.Errorf("find player: %w", ErrNotFound)
}

func (m *Memory) ListSessions(ctx context.Context) (sessions []ledger.Session, err error) {
	defer func(start time.Time) { observe("list_sessions", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Session, len(m.sessions))
	copy(out, m.sessions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (m *Memory) CreateSession(ctx context.Context, in SessionInput) (s ledger.Session, err error) {
	defer func(start time.Time) { observe("create_session", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	s = ledger.Session{
		ID:        uuid.NewString(),
		Date:      DateOnly(in.Date),
		Location:  in.Location,
		Notes:     in.Notes,
		CreatedAt: m.now(),
	}
	m.sessions = append(m.sessions, s)
	return s, nil
}

func (m *Memory) UpdateSession(ctx context.Context, id string, u SessionUpdate) (err error) {
	defer func(start time.Time) { observe("update_session", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.sessions {
		if m.sessions[i].ID == id {
			s := u.Apply(m.sessions[i])
			s.Date = DateOnly(s.Date)
			m.sessions[i] = s
			return nil
		}
	}
	return fmt.Errorf("update session: %w", ErrNotFound)
}

// DeleteSession removes the session together with its results
func (m *Memory) DeleteSession(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_session", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			kept := m.results[:0]
			for _, r := range m.results {
				if r.SessionID != id {
					kept = append(kept, r)
				}
			}
			m.results = kept
			return nil
		}
	}
	return fmt.Errorf("delete session: %w", ErrNotFound)
}

func (m *Memory) FindSessionByDate(ctx context.Context, date time.Time) (s ledger.Session, err error) {
	defer func(start time.Time) { observe("find_session", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	day := DateOnly(date)
	for _, s := range m.sessions {
		if s.Date.Equal(day) {
			return s, nil
		}
	}
	return s, fmt.Errorf("find session: %w", ErrNotFound)
}

func (m *Memory) ListResults(ctx context.Context) (results []ledger.Result, err error) {
	defer func(start time.Time) { observe("list_results", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ledger.Result, len(m.results))
	copy(out, m.results)
	return out, nil
}

func (m *Memory) ListSessionResults(ctx context.Context, sessionID string) (results []ledger.Result, err error) {
	defer func(start time.Time) { observe("list_session_results", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	return ledger.ResultsForSession(m.results, sessionID), nil
}

func (m *Memory) FindResult(ctx context.Context, sessionID, playerID string) (r ledger.Result, err error) {
	defer func(start time.Time) { observe("find_result", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.resultIndex(sessionID, playerID); i >= 0 {
		return m.results[i], nil
	}
	return r, fmt.Errorf("find result: %w", ErrNotFound)
}

func (m *Memory) InsertResult(ctx context.Context, r ledger.Result) (err error) {
	defer func(start time.Time) { observe("insert_result", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resultIndex(r.SessionID, r.PlayerID) >= 0 {
		return fmt.Errorf("insert result: %w", ErrDuplicate)
	}
	if !m.hasSession(r.SessionID) {
		return fmt.Errorf("insert result: session %s: %w", r.SessionID, ErrNotFound)
	}
	m.results = append(m.results, r)
	return nil
}

func (m *Memory) UpdateResult(ctx context.Context, r ledger.Result) (err error) {
	defer func(start time.Time) { observe("update_result", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.resultIndex(r.SessionID, r.PlayerID)
	if i < 0 {
		return fmt.Errorf("update result: %w", ErrNotFound)
	}
	m.results[i].BuyIn = r.BuyIn
	m.results[i].CashOut = r.CashOut
	return nil
}

func (m *Memory) AccessCode(ctx context.Context) (code string, err error) {
	defer func(start time.Time) { observe("access_code", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.settings[AccessCodeKey]
	if !ok {
		return "", fmt.Errorf("read access code: %w", ErrNotFound)
	}
	return code, nil
}

func (m *Memory) SetAccessCode(ctx context.Context, code string) (err error) {
	defer func(start time.Time) { observe("set_access_code", start, err) }(time.Now())
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[AccessCodeKey] = code
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) resultIndex(sessionID, playerID string) int {
	for i, r := range m.results {
		if r.SessionID == sessionID && r.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (m *Memory) hasSession(id string) bool {
	for _, s := range m.sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}
