package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPlayerByNameQuery(t *testing.T) {
	sql, args, err := findPlayerByNameQuery("ray").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, created_at FROM players WHERE lower(name) = lower($1) ORDER BY created_at ASC LIMIT 1", sql)
	assert.Equal(t, []interface{}{"ray"}, args)
}

func TestUpdateSessionQuery(t *testing.T) {
	location := "Ray's flat"
	date := time.Date(2024, 2, 9, 21, 30, 0, 0, time.UTC)

	sql, args, err := updateSessionQuery("s-1", SessionUpdate{Date: &date, Location: &location}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sessions SET date = $1, location = $2 WHERE id = $3", sql)
	require.Len(t, args, 3)
	assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), args[0])
	assert.Equal(t, location, args[1])
	assert.Equal(t, "s-1", args[2])

	empty := ""
	sql, args, err = updateSessionQuery("s-1", SessionUpdate{Notes: &empty}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sessions SET notes = $1 WHERE id = $2", sql)
	assert.Nil(t, args[0], "empty notes are stored as NULL")
}

func TestWrapMapsDriverErrors(t *testing.T) {
	assert.NoError(t, wrap("noop", nil))

	err := wrap("find player", pgx.ErrNoRows)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "find player")

	err = wrap("insert result", fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolation}))
	assert.ErrorIs(t, err, ErrDuplicate)

	boom := errors.New("connection reset")
	err = wrap("list players", boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAffected(t *testing.T) {
	assert.ErrorIs(t, affected("delete player", pgconn.NewCommandTag("DELETE 0"), nil), ErrNotFound)
	assert.NoError(t, affected("delete player", pgconn.NewCommandTag("DELETE 1"), nil))
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, 1, 27, 23, 59, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC), DateOnly(in))
}
