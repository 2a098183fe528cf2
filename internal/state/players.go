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

// AddPlayer creates a player. The name is trimmed and must not be blank.
func (c *Container) AddPlayer(ctx context.Context, name string) (ledger.Player, error) {
	defer c.begin(ctx)()

	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Player{}, ErrEmptyName
	}

	p, err := c.store.CreatePlayer(ctx, name)
	if err != nil {
		return ledger.Player{}, c.fail("failed to add player", err, zap.String("name", name))
	}

	c.mu.Lock()
	c.players = append(c.players, p)
	c.mu.Unlock()

	c.logger.Info("player added", zap.String("player_id", p.ID), zap.String("name", p.Name))
	c.publish(events.New(events.PlayerCreated, p.ID))
	return p, nil
}

// RemovePlayer deletes a player. Their results stay behind and show up
// under the unknown name.
func (c *Container) RemovePlayer(ctx context.Context, id string) error {
	defer c.begin(ctx)()

	if err := c.store.DeletePlayer(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlayerNotFound
		}
		return c.fail("failed to remove player", err, zap.String("player_id", id))
	}

	c.mu.Lock()
	if i := c.playerIndex(id); i >= 0 {
		c.players = append(c.players[:i:i], c.players[i+1:]...)
	}
	c.mu.Unlock()

	c.logger.Info("player removed", zap.String("player_id", id))
	c.publish(events.New(events.PlayerDeleted, id))
	return nil
}

// RenamePlayer changes a player's display name
func (c *Container) RenamePlayer(ctx context.Context, id, name string) error {
	defer c.begin(ctx)()

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	if err := c.store.RenamePlayer(ctx, id, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPlayerNotFound
		}
		return c.fail("failed to rename player", err, zap.String("player_id", id))
	}

	c.mu.Lock()
	if i := c.playerIndex(id); i >= 0 {
		c.players[i].Name = name
	}
	c.mu.Unlock()

	c.publish(events.New(events.PlayerRenamed, id))
	return nil
}
