package auth

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// FlagStore persists whether this client has passed the access code check
type FlagStore interface {
	// Save persists the flag
	Save(ctx context.Context, authenticated bool) error

	// Load returns the last saved flag. A flag never saved reads as false.
	Load(ctx context.Context) (bool, error)
}

// FileFlagStore keeps the flag in a local file
type FileFlagStore struct {
	path string
}

func NewFileFlagStore(path string) *FileFlagStore {
	return &FileFlagStore{path: path}
}

func (s *FileFlagStore) Save(ctx context.Context, authenticated bool) error {
	if !authenticated {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(s.path, []byte(strconv.FormatBool(true)), 0600)
}

func (s *FileFlagStore) Load(ctx context.Context) (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return parseFlag(string(data)), nil
}

// RedisFlagStore keeps the flag under a Redis key
type RedisFlagStore struct {
	client *redis.Client
	key    string
}

func NewRedisFlagStore(client *redis.Client, key string) *RedisFlagStore {
	return &RedisFlagStore{
		client: client,
		key:    key,
	}
}

func (s *RedisFlagStore) Save(ctx context.Context, authenticated bool) error {
	if !authenticated {
		return s.client.Del(ctx, s.key).Err()
	}
	return s.client.Set(ctx, s.key, strconv.FormatBool(true), 0).Err()
}

func (s *RedisFlagStore) Load(ctx context.Context) (bool, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return parseFlag(data), nil
}

// MemoryFlagStore keeps the flag for the lifetime of the process
type MemoryFlagStore struct {
	authenticated bool
}

func (s *MemoryFlagStore) Save(ctx context.Context, authenticated bool) error {
	s.authenticated = authenticated
	return nil
}

func (s *MemoryFlagStore) Load(ctx context.Context) (bool, error) {
	return s.authenticated, nil
}

func parseFlag(raw string) bool {
	ok, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && ok
}
