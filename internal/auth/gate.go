// Package auth implements the shared access code login. There is one
// passphrase for the whole group, no per-user identity, and no expiry:
// passing the check sets a persisted flag until logout.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/logger"
)

var (
	// ErrAccessCodeMissing means no access code has been configured
	ErrAccessCodeMissing = errors.New("access code is not configured")
	// ErrInvalidAccessCode means the entered code did not match
	ErrInvalidAccessCode = errors.New("invalid access code")
)

// CodeSource reads the configured access code
type CodeSource interface {
	AccessCode(ctx context.Context) (string, error)
}

// Gate checks access codes and remembers a successful login
type Gate struct {
	codes  CodeSource
	flags  FlagStore
	logger *logger.Logger
}

func NewGate(codes CodeSource, flags FlagStore, log *logger.Logger) *Gate {
	return &Gate{
		codes:  codes,
		flags:  flags,
		logger: log,
	}
}

// Check compares the entered code with the configured one without
// touching the flag
func (g *Gate) Check(ctx context.Context, code string) error {
	want, err := g.codes.AccessCode(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccessCodeMissing
		}
		return fmt.Errorf("failed to read access code: %w", err)
	}
	if !codesMatch(code, want) {
		return ErrInvalidAccessCode
	}
	return nil
}

// codesMatch compares in constant time; the code is re-checked on every
// browser request
func codesMatch(entered, want string) bool {
	return subtle.ConstantTimeCompare([]byte(entered), []byte(want)) == 1
}

// Login checks the code and persists the authenticated flag on a match
func (g *Gate) Login(ctx context.Context, code string) error {
	if err := g.Check(ctx, code); err != nil {
		g.logger.Warn("login rejected")
		return err
	}
	if err := g.flags.Save(ctx, true); err != nil {
		g.logger.Error("failed to persist login", err)
		return fmt.Errorf("failed to persist login: %w", err)
	}
	g.logger.Info("logged in")
	return nil
}

// Logout clears the authenticated flag
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.flags.Save(ctx, false); err != nil {
		return fmt.Errorf("failed to clear login: %w", err)
	}
	g.logger.Info("logged out")
	return nil
}

// IsAuthenticated reports the persisted flag
func (g *Gate) IsAuthenticated(ctx context.Context) (bool, error) {
	return g.flags.Load(ctx)
}
