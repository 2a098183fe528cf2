package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/pkg/logger"
	"github.com/from2future/poker-tracker/pkg/retry"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URI             string
	MinConns        int32
	MaxConns        int32
	ConnectAttempts int
}

// Postgres implements Store on top of a pgx pool
type Postgres struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgres connects to PostgreSQL, retrying the first ping with backoff
// because the database often starts alongside the client.
func NewPostgres(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	opts := retry.DefaultOptions()
	if cfg.ConnectAttempts > 0 {
		opts.MaxAttempts = cfg.ConnectAttempts
	}
	attempt := 0
	err = retry.Do(ctx, func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			l.Warn("database not reachable yet", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, opts)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: l}, nil
}

// Migrate creates the tables when they do not exist yet
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	p.logger.Info("schema applied")
	return nil
}

func (p *Postgres) exec(ctx context.Context, q sq.Sqlizer) (pgconn.CommandTag, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return p.pool.Exec(ctx, sql, args...)
}

func (p *Postgres) query(ctx context.Context, q sq.SelectBuilder) (pgx.Rows, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return p.pool.Query(ctx, sql, args...)
}

func (p *Postgres) queryRow(ctx context.Context, q sq.Sqlizer) (pgx.Row, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return p.pool.QueryRow(ctx, sql, args...), nil
}

// wrap maps driver errors to store errors and adds the operation name
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

var (
	playerColumns  = []string{"id", "name", "created_at"}
	sessionColumns = []string{"id", "date", "location", "notes", "created_at"}
	resultColumns  = []string{"session_id", "player_id", "buy_in", "cash_out"}
)

func scanPlayer(row pgx.Row) (ledger.Player, error) {
	var pl ledger.Player
	err := row.Scan(&pl.ID, &pl.Name, &pl.CreatedAt)
	return pl, err
}

func scanSession(row pgx.Row) (ledger.Session, error) {
	var s ledger.Session
	var notes *string
	if err := row.Scan(&s.ID, &s.Date, &s.Location, &notes, &s.CreatedAt); err != nil {
		return s, err
	}
	if notes != nil {
		s.Notes = *notes
	}
	return s, nil
}

func scanResult(row pgx.Row) (ledger.Result, error) {
	var r ledger.Result
	err := row.Scan(&r.SessionID, &r.PlayerID, &r.BuyIn, &r.CashOut)
	return r, err
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *Postgres) ListPlayers(ctx context.Context) (players []ledger.Player, err error) {
	defer func(start time.Time) { observe("list_players", start, err) }(time.Now())

	rows, err := p.query(ctx, psql.Select(playerColumns...).From("players").OrderBy("created_at ASC"))
	if err != nil {
		return nil, wrap("list players", err)
	}
	players, err = collect(rows, scanPlayer)
	return players, wrap("list players", err)
}

func (p *Postgres) CreatePlayer(ctx context.Context, name string) (pl ledger.Player, err error) {
	defer func(start time.Time) { observe("create_player", start, err) }(time.Now())

	row, err := p.queryRow(ctx, psql.Insert("players").Columns("name").Values(name).
		Suffix("RETURNING id, name, created_at"))
	if err != nil {
		return pl, wrap("create player", err)
	}
	pl, err = scanPlayer(row)
	return pl, wrap("create player", err)
}

func (p *Postgres) RenamePlayer(ctx context.Context, id, name string) (err error) {
	defer func(start time.Time) { observe("rename_player", start, err) }(time.Now())

	tag, err := p.exec(ctx, psql.Update("players").Set("name", name).Where(sq.Eq{"id": id}))
	return affected("rename player", tag, err)
}

func (p *Postgres) DeletePlayer(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_player", start, err) }(time.Now())

	tag, err := p.exec(ctx, psql.Delete("players").Where(sq.Eq{"id": id}))
	return affected("delete player", tag, err)
}

func (p *Postgres) FindPlayerByName(ctx context.Context, name string) (pl ledger.Player, err error) {
	defer func(start time.Time) { observe("find_player", start, err) }(time.Now())

	row, err := p.queryRow(ctx, findPlayerByNameQuery(name))
	if err != nil {
		return pl, wrap("find player", err)
	}
	pl, err = scanPlayer(row)
	return pl, wrap("find player", err)
}

func findPlayerByNameQuery(name string) sq.SelectBuilder {
	return psql.Select(playerColumns...).From("players").
		Where(sq.Expr("lower(name) = lower(?)", name)).
		OrderBy("created_at ASC").Limit(1)
}

func (p *Postgres) ListSessions(ctx context.Context) (sessions []ledger.Session, err error) {
	defer func(start time.Time) { observe("list_sessions", start, err) }(time.Now())

	rows, err := p.query(ctx, psql.Select(sessionColumns...).From("sessions").OrderBy("date DESC", "created_at DESC"))
	if err != nil {
		return nil, wrap("list sessions", err)
	}
	sessions, err = collect(rows, scanSession)
	return sessions, wrap("list sessions", err)
}

func (p *Postgres) CreateSession(ctx context.Context, in SessionInput) (s ledger.Session, err error) {
	defer func(start time.Time) { observe("create_session", start, err) }(time.Now())

	row, err := p.queryRow(ctx, psql.Insert("sessions").
		Columns("date", "location", "notes").
		Values(DateOnly(in.Date), in.Location, nullable(in.Notes)).
		Suffix("RETURNING id, date, location, notes, created_at"))
	if err != nil {
		return s, wrap("create session", err)
	}
	s, err = scanSession(row)
	return s, wrap("create session", err)
}

func (p *Postgres) UpdateSession(ctx context.Context, id string, u SessionUpdate) (err error) {
	defer func(start time.Time) { observe("update_session", start, err) }(time.Now())

	if u.Empty() {
		return nil
	}
	tag, err := p.exec(ctx, updateSessionQuery(id, u))
	return affected("update session", tag, err)
}

func updateSessionQuery(id string, u SessionUpdate) sq.UpdateBuilder {
	q := psql.Update("sessions").Where(sq.Eq{"id": id})
	if u.Date != nil {
		q = q.Set("date", DateOnly(*u.Date))
	}
	if u.Location != nil {
		q = q.Set("location", *u.Location)
	}
	if u.Notes != nil {
		q = q.Set("notes", nullable(*u.Notes))
	}
	return q
}

// DeleteSession removes the session; results go with it through the cascade
func (p *Postgres) DeleteSession(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_session", start, err) }(time.Now())

	tag, err := p.exec(ctx, psql.Delete("sessions").Where(sq.Eq{"id": id}))
	return affected("delete session", tag, err)
}

func (p *Postgres) FindSessionByDate(ctx context.Context, date time.Time) (s ledger.Session, err error) {
	defer func(start time.Time) { observe("find_session", start, err) }(time.Now())

	row, err := p.queryRow(ctx, psql.Select(sessionColumns...).From("sessions").
		Where(sq.Eq{"date": DateOnly(date)}).OrderBy("created_at ASC").Limit(1))
	if err != nil {
		return s, wrap("find session", err)
	}
	s, err = scanSession(row)
	return s, wrap("find session", err)
}

func (p *Postgres) ListResults(ctx context.Context) (results []ledger.Result, err error) {
	defer func(start time.Time) { observe("list_results", start, err) }(time.Now())

	rows, err := p.query(ctx, psql.Select(resultColumns...).From("results").OrderBy("created_at ASC"))
	if err != nil {
		return nil, wrap("list results", err)
	}
	results, err = collect(rows, scanResult)
	return results, wrap("list results", err)
}

func (p *Postgres) ListSessionResults(ctx context.Context, sessionID string) (results []ledger.Result, err error) {
	defer func(start time.Time) { observe("list_session_results", start, err) }(time.Now())

	rows, err := p.query(ctx, psql.Select(resultColumns...).From("results").
		Where(sq.Eq{"session_id": sessionID}).OrderBy("created_at ASC"))
	if err != nil {
		return nil, wrap("list session results", err)
	}
	results, err = collect(rows, scanResult)
	return results, wrap("list session results", err)
}

func (p *Postgres) FindResult(ctx context.Context, sessionID, playerID string) (r ledger.Result, err error) {
	defer func(start time.Time) { observe("find_result", start, err) }(time.Now())

	row, err := p.queryRow(ctx, psql.Select(resultColumns...).From("results").
		Where(sq.Eq{"session_id": sessionID, "player_id": playerID}))
	if err != nil {
		return r, wrap("find result", err)
	}
	r, err = scanResult(row)
	return r, wrap("find result", err)
}

func (p *Postgres) InsertResult(ctx context.Context, r ledger.Result) (err error) {
	defer func(start time.Time) { observe("insert_result", start, err) }(time.Now())

	_, err = p.exec(ctx, psql.Insert("results").Columns(resultColumns...).
		Values(r.SessionID, r.PlayerID, r.BuyIn, r.CashOut))
	return wrap("insert result", err)
}

func (p *Postgres) UpdateResult(ctx context.Context, r ledger.Result) (err error) {
	defer func(start time.Time) { observe("update_result", start, err) }(time.Now())

	tag, err := p.exec(ctx, psql.Update("results").
		Set("buy_in", r.BuyIn).
		Set("cash_out", r.CashOut).
		Where(sq.Eq{"session_id": r.SessionID, "player_id": r.PlayerID}))
	return affected("update result", tag, err)
}

func (p *Postgres) AccessCode(ctx context.Context) (code string, err error) {
	defer func(start time.Time) { observe("access_code", start, err) }(time.Now())

	row, err := p.queryRow(ctx, psql.Select("value").From("app_settings").Where(sq.Eq{"key": AccessCodeKey}))
	if err != nil {
		return "", wrap("read access code", err)
	}
	err = row.Scan(&code)
	return code, wrap("read access code", err)
}

func (p *Postgres) SetAccessCode(ctx context.Context, code string) (err error) {
	defer func(start time.Time) { observe("set_access_code", start, err) }(time.Now())

	_, err = p.exec(ctx, psql.Insert("app_settings").Columns("key", "value").
		Values(AccessCodeKey, code).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value"))
	return wrap("set access code", err)
}

// Ping checks the connection
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
