package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/events"
	"github.com/from2future/poker-tracker/pkg/logger"
)

// flakyStore fails the calls a test sets expectations for and delegates
// everything else to the in-memory store
type flakyStore struct {
	*store.Memory
	mock.Mock
	failing map[string]bool
}

func newFlaky() *flakyStore {
	return &flakyStore{Memory: store.NewMemory(), failing: map[string]bool{}}
}

func (f *flakyStore) fail(method string, err error) {
	f.failing[method] = true
	f.On(method).Return(err)
}

func (f *flakyStore) CreatePlayer(ctx context.Context, name string) (ledger.Player, error) {
	if f.failing["CreatePlayer"] {
		return ledger.Player{}, f.Called().Error(0)
	}
	return f.Memory.CreatePlayer(ctx, name)
}

func (f *flakyStore) InsertResult(ctx context.Context, r ledger.Result) error {
	if f.failing["InsertResult"] {
		return f.Called().Error(0)
	}
	return f.Memory.InsertResult(ctx, r)
}

func (f *flakyStore) ListSessionResults(ctx context.Context, sessionID string) ([]ledger.Result, error) {
	if f.failing["ListSessionResults"] {
		return nil, f.Called().Error(0)
	}
	return f.Memory.ListSessionResults(ctx, sessionID)
}

func (f *flakyStore) ListResults(ctx context.Context) ([]ledger.Result, error) {
	if f.failing["ListResults"] {
		return nil, f.Called().Error(0)
	}
	return f.Memory.ListResults(ctx)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newContainer(t *testing.T, st store.Store) (*Container, *events.Recorder, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	rec := &events.Recorder{}
	c := New(st, rec, logger.FromZap(zap.New(core)))
	require.NoError(t, c.Refresh(context.Background()))
	return c, rec, logs
}

func TestAddPlayer(t *testing.T) {
	ctx := context.Background()
	c, rec, _ := newContainer(t, store.NewMemory())

	p, err := c.AddPlayer(ctx, "  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Len(t, c.Players(), 1)
	assert.Equal(t, []events.Kind{events.PlayerCreated}, rec.Kinds())

	_, err = c.AddPlayer(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Len(t, c.Players(), 1)
}

func TestFailedMutationKeepsStateAndRecordsError(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	c, rec, logs := newContainer(t, st)

	_, err := c.AddPlayer(ctx, "Bob")
	require.NoError(t, err)

	boom := errors.New("connection reset by peer")
	st.fail("CreatePlayer", boom)

	_, err = c.AddPlayer(ctx, "Carol")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, c.Players(), 1)
	assert.Contains(t, c.LastError(), "connection reset by peer")
	assert.Len(t, rec.Events, 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to add player").Len())

	// the next successful operation clears the error
	require.NoError(t, c.RenamePlayer(ctx, c.Players()[0].ID, "Robert"))
	assert.Empty(t, c.LastError())
	assert.Equal(t, "Robert", c.Players()[0].Name)
}

func TestRefreshFailure(t *testing.T) {
	st := newFlaky()
	c, _, _ := newContainer(t, st)

	st.fail("ListResults", errors.New("timeout"))
	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, c.Loading())
	assert.Contains(t, c.LastError(), "failed to fetch results")
}

func TestRemovePlayerKeepsResults(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())

	p, err := c.AddPlayer(ctx, "Dave")
	require.NoError(t, err)
	s, err := c.AddSession(ctx, store.SessionInput{Date: day("2024-01-27"), Location: "Garage"})
	require.NoError(t, err)
	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(-20)))

	require.NoError(t, c.RemovePlayer(ctx, p.ID))
	assert.Empty(t, c.Players())
	require.Len(t, c.SessionResults(s.ID), 1)
	assert.Equal(t, ledger.UnknownPlayer, ledger.DisplayName(c.Players(), p.ID))

	assert.ErrorIs(t, c.RemovePlayer(ctx, p.ID), ErrPlayerNotFound)
}

func TestDeleteSessionRemovesOnlyItsResults(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("deleting a session drops exactly its results", prop.ForAll(
		func(perSession []int) bool {
			ctx := context.Background()
			st := store.NewMemory()
			c := New(st, nil, logger.Nop())

			p, err := c.AddPlayer(ctx, "P")
			if err != nil {
				return false
			}
			var sessions []ledger.Session
			for i, n := range perSession {
				s, err := c.AddSession(ctx, store.SessionInput{Date: day("2024-01-01").AddDate(0, 0, i)})
				if err != nil {
					return false
				}
				sessions = append(sessions, s)
				for k := 0; k < n; k++ {
					q, err := c.AddPlayer(ctx, "Q")
					if err != nil || c.AddToRoster(ctx, s.ID, q.ID) != nil {
						return false
					}
				}
				if c.AddToRoster(ctx, s.ID, p.ID) != nil {
					return false
				}
			}

			victim := sessions[0]
			before := len(c.Results())
			own := len(c.SessionResults(victim.ID))
			if c.DeleteSession(ctx, victim.ID) != nil {
				return false
			}

			_, _, storeResults := st.Counts()
			_, stillThere := c.Session(victim.ID)
			return !stillThere &&
				len(c.Results()) == before-own &&
				storeResults == before-own &&
				len(c.SessionResults(victim.ID)) == 0
		},
		gen.SliceOfN(3, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestSetResultUpserts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c, rec, _ := newContainer(t, st)

	p, _ := c.AddPlayer(ctx, "Erin")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-02-10"), Location: "Kitchen"})

	require.NoError(t, c.AddToRoster(ctx, s.ID, p.ID))
	rows := c.SessionResults(s.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].BuyIn.IsZero())
	assert.True(t, rows[0].CashOut.IsZero())

	require.NoError(t, c.SetResultField(ctx, s.ID, p.ID, ledger.FieldBuyIn, "40"))
	require.NoError(t, c.SetResultField(ctx, s.ID, p.ID, ledger.FieldCashOut, "55.5"))
	rows = c.SessionResults(s.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].BuyIn.Equal(decimal.NewFromInt(40)))
	assert.True(t, rows[0].CashOut.Equal(decimal.RequireFromString("55.5")))

	// garbage input becomes zero and leaves the other field alone
	require.NoError(t, c.SetResultField(ctx, s.ID, p.ID, ledger.FieldBuyIn, "forty"))
	rows = c.SessionResults(s.ID)
	assert.True(t, rows[0].BuyIn.IsZero())
	assert.True(t, rows[0].CashOut.Equal(decimal.RequireFromString("55.5")))

	// seating again keeps the amounts
	require.NoError(t, c.AddToRoster(ctx, s.ID, p.ID))
	assert.True(t, c.SessionResults(s.ID)[0].CashOut.Equal(decimal.RequireFromString("55.5")))

	_, _, n := st.Counts()
	assert.Equal(t, 1, n)
	assert.Contains(t, rec.Kinds(), events.ResultSet)

	assert.ErrorIs(t, c.SetResultField(ctx, s.ID, p.ID, ledger.Field("rake"), "1"), ErrInvalidField)
}

func TestSetNetResult(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())

	p, _ := c.AddPlayer(ctx, "Finn")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-03-01")})

	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(-15)))
	r := c.SessionResults(s.ID)[0]
	assert.True(t, r.BuyIn.Equal(decimal.NewFromInt(15)))
	assert.True(t, r.CashOut.IsZero())

	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(30)))
	r = c.SessionResults(s.ID)[0]
	assert.True(t, r.BuyIn.IsZero())
	assert.True(t, r.Profit().Equal(decimal.NewFromInt(30)))
}

func TestSetResultUnknownSession(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())
	p, _ := c.AddPlayer(ctx, "Gus")

	err := c.SetResult(ctx, ledger.Result{SessionID: "missing", PlayerID: p.ID})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, c.AddToRoster(ctx, "missing", "nobody"), ErrPlayerNotFound)
}

func TestSetResultStaleCacheFallsBackToUpdate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c, _, _ := newContainer(t, st)

	p, _ := c.AddPlayer(ctx, "Hana")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-04-01")})

	// another client seats the player behind our back
	require.NoError(t, st.InsertResult(ctx, ledger.Result{SessionID: s.ID, PlayerID: p.ID}))

	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(12)))
	got, err := st.FindResult(ctx, s.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, got.CashOut.Equal(decimal.NewFromInt(12)))
}

func TestSetResultReloadFailurePatchesCache(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	c, _, logs := newContainer(t, st)

	p, _ := c.AddPlayer(ctx, "Ivy")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-05-01")})

	st.fail("ListSessionResults", errors.New("read timeout"))
	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(7)))

	rows := c.SessionResults(s.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].CashOut.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, "read timeout", c.LastError())
	assert.Equal(t, 1, logs.FilterMessage("failed to reload session results").Len())
}

func TestSetResultWriteFailure(t *testing.T) {
	ctx := context.Background()
	st := newFlaky()
	c, _, _ := newContainer(t, st)

	p, _ := c.AddPlayer(ctx, "Jo")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-05-02")})

	st.fail("InsertResult", errors.New("permission denied"))
	err := c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(7))
	require.Error(t, err)
	assert.Empty(t, c.SessionResults(s.ID))
	assert.Contains(t, c.LastError(), "permission denied")
}

func TestSessionsStayNewestFirst(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())

	old, _ := c.AddSession(ctx, store.SessionInput{Date: day("2023-12-01")})
	mid, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-01-01")})
	_, err := c.AddSession(ctx, store.SessionInput{})
	assert.ErrorIs(t, err, ErrMissingDate)

	sessions := c.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, mid.ID, sessions[0].ID)

	newDate := day("2024-06-01")
	loc := "Lake house"
	require.NoError(t, c.UpdateSession(ctx, old.ID, store.SessionUpdate{Date: &newDate, Location: &loc}))
	sessions = c.Sessions()
	assert.Equal(t, old.ID, sessions[0].ID)
	assert.Equal(t, "Lake house", sessions[0].Location)

	assert.NoError(t, c.UpdateSession(ctx, "missing", store.SessionUpdate{}))
	assert.ErrorIs(t, c.UpdateSession(ctx, "missing", store.SessionUpdate{Location: &loc}), ErrSessionNotFound)
	assert.ErrorIs(t, c.DeleteSession(ctx, "missing"), ErrSessionNotFound)
}

func TestCreateAndSeat(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())

	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-07-04")})
	p, err := c.CreateAndSeat(ctx, s.ID, "Kim")
	require.NoError(t, err)
	assert.Len(t, c.SessionResults(s.ID), 1)
	assert.Empty(t, c.AvailablePlayers(s.ID))

	_, err = c.CreateAndSeat(ctx, "missing", "Lee")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Len(t, c.Players(), 1)
	assert.Equal(t, p.ID, c.Players()[0].ID)
}

func TestDashboardFromCache(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())

	a, _ := c.AddPlayer(ctx, "A")
	b, _ := c.AddPlayer(ctx, "B")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-08-01")})
	require.NoError(t, c.SetResult(ctx, ledger.Result{SessionID: s.ID, PlayerID: a.ID, BuyIn: decimal.NewFromInt(20), CashOut: decimal.NewFromInt(50)}))
	require.NoError(t, c.SetResult(ctx, ledger.Result{SessionID: s.ID, PlayerID: b.ID, BuyIn: decimal.NewFromInt(30), CashOut: decimal.Zero}))

	d := c.Dashboard(ledger.DefaultOptions())
	require.NotNil(t, d.TopWinner)
	assert.Equal(t, a.ID, d.TopWinner.PlayerID)
	assert.Equal(t, b.ID, d.BiggestLoser.PlayerID)
	assert.True(t, d.Volume.Equal(decimal.NewFromInt(50)))
	assert.False(t, d.Unbalanced)

	snap := c.Snapshot()
	assert.Len(t, snap.Results, 2)
	assert.False(t, snap.Loading)
}

func TestSetResultUnknownPlayer(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c, rec, _ := newContainer(t, st)

	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-06-01")})
	stranger := "00000000-0000-0000-0000-00000000dead"

	assert.ErrorIs(t, c.SetNetResult(ctx, s.ID, stranger, decimal.NewFromInt(-7)), ErrPlayerNotFound)
	assert.ErrorIs(t, c.SetResult(ctx, ledger.Result{SessionID: s.ID, PlayerID: stranger}), ErrPlayerNotFound)
	assert.ErrorIs(t, c.SetResultField(ctx, s.ID, stranger, ledger.FieldBuyIn, "5"), ErrPlayerNotFound)

	assert.Empty(t, c.Results())
	_, _, n := st.Counts()
	assert.Zero(t, n)
	assert.True(t, c.Dashboard(ledger.DefaultOptions()).Discrepancy.IsZero())
	assert.NotContains(t, rec.Kinds(), events.ResultSet)
}

func TestRemovedPlayerRowStaysEditable(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t, store.NewMemory())

	p, _ := c.AddPlayer(ctx, "Kit")
	s, _ := c.AddSession(ctx, store.SessionInput{Date: day("2024-06-02")})
	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(-10)))
	require.NoError(t, c.RemovePlayer(ctx, p.ID))

	require.NoError(t, c.SetNetResult(ctx, s.ID, p.ID, decimal.NewFromInt(-4)))
	rows := c.SessionResults(s.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].BuyIn.Equal(decimal.NewFromInt(4)))
}

// stallingPublisher blocks its first call until released or until the
// context gives up. Later calls return at once.
type stallingPublisher struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStalling() *stallingPublisher {
	return &stallingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *stallingPublisher) Publish(ctx context.Context, e events.ChangeEvent) error {
	first := false
	p.once.Do(func() { first = true })
	if !first {
		return nil
	}
	close(p.entered)
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stallingPublisher) Close() error { return nil }

func TestPublishIsBoundedByTimeout(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	c := New(store.NewMemory(), newStalling(), logger.FromZap(zap.New(core)), WithPublishTimeout(50*time.Millisecond))

	start := time.Now()
	p, err := c.AddPlayer(ctx, "Ray")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, ok := c.Player(p.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish change event").Len())
	assert.Empty(t, c.LastError())
}

func TestSlowPublishDoesNotBlockWriters(t *testing.T) {
	ctx := context.Background()
	pub := newStalling()
	c := New(store.NewMemory(), pub, logger.Nop(), WithPublishTimeout(time.Minute))

	done := make(chan error, 1)
	go func() {
		_, err := c.AddPlayer(ctx, "Ray")
		done <- err
	}()

	select {
	case <-pub.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first mutation never published")
	}

	start := time.Now()
	_, err := c.AddPlayer(ctx, "Sam")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, c.Players(), 2)

	close(pub.release)
	require.NoError(t, <-done)
}

func TestCancelledCallerStillAnnounces(t *testing.T) {
	c, rec, _ := newContainer(t, store.NewMemory())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finish := c.begin(ctx)
	c.publish(events.New(events.PlayerCreated, "p-1"))
	finish()

	assert.Equal(t, []events.Kind{events.PlayerCreated}, rec.Kinds())
}
