// Package bootstrap turns configuration into the concrete dependencies the
// binaries share.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/from2future/poker-tracker/internal/auth"
	"github.com/from2future/poker-tracker/internal/importer"
	"github.com/from2future/poker-tracker/internal/ledger"
	"github.com/from2future/poker-tracker/internal/store"
	"github.com/from2future/poker-tracker/pkg/config"
	"github.com/from2future/poker-tracker/pkg/events"
	"github.com/from2future/poker-tracker/pkg/logger"
)

// Logger builds the process logger, tagging it with the binary name
func Logger(cfg *config.AppConfig, binary string) (*logger.Logger, error) {
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("binary", binary)), nil
}

// OpenStore connects the configured backend and seeds the access code
// when one is configured
func OpenStore(ctx context.Context, cfg *config.AppConfig, l *logger.Logger) (store.Store, error) {
	var st store.Store
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		l.Warn("using in-memory store, nothing will be persisted")
		st = store.NewMemory()
	default:
		pg, err := store.NewPostgres(ctx, store.PostgresConfig{
			URI:             cfg.Postgres.URI,
			MinConns:        int32(cfg.Postgres.MinConns),
			MaxConns:        int32(cfg.Postgres.MaxConns),
			ConnectAttempts: cfg.Postgres.ConnectAttempts,
		}, l)
		if err != nil {
			return nil, err
		}
		st = pg
	}

	if cfg.Auth.AccessCode != "" {
		if err := st.SetAccessCode(ctx, cfg.Auth.AccessCode); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to seed access code: %w", err)
		}
	}
	return st, nil
}

// Migrate applies the schema when the backend has one
func Migrate(ctx context.Context, st store.Store) error {
	if m, ok := st.(interface{ Migrate(context.Context) error }); ok {
		return m.Migrate(ctx)
	}
	return nil
}

// Publisher returns a Kafka publisher, or a no-op one without brokers
func Publisher(cfg *config.AppConfig) events.Publisher {
	if !cfg.EventsEnabled() {
		return events.Nop{}
	}
	return events.NewKafkaPublisher(EventsConfig(cfg))
}

func EventsConfig(cfg *config.AppConfig) events.Config {
	return events.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}
}

// FlagStore returns where the terminal client keeps its login. The
// returned func releases any connection it opened.
func FlagStore(cfg *config.AppConfig) (auth.FlagStore, func() error) {
	if cfg.Auth.Backend == config.AuthBackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		return auth.NewRedisFlagStore(client, cfg.Auth.RedisKey), client.Close
	}
	return auth.NewFileFlagStore(cfg.Auth.FlagPath), func() error { return nil }
}

func DashboardOptions(cfg *config.AppConfig) ledger.Options {
	return ledger.Options{
		RecentLimit: cfg.Dashboard.RecentLimit,
		Tolerance:   decimal.NewFromFloat(cfg.Dashboard.DiscrepancyTolerance),
	}
}

func ImportOptions(cfg *config.AppConfig) importer.Options {
	opts := importer.DefaultOptions()
	if cfg.Import.Stake > 0 {
		opts.Stake = decimal.NewFromFloat(cfg.Import.Stake)
	}
	if cfg.Import.Notes != "" {
		opts.Notes = cfg.Import.Notes
	}
	return opts
}
