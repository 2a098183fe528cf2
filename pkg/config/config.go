package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Supported store and auth flag backends
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	AuthBackendFile  = "file"
	AuthBackendRedis = "redis"
)

// AppConfig holds the complete configuration for every binary
type AppConfig struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	ServiceName string          `mapstructure:"service_name"`
	Store       StoreConfig     `mapstructure:"store"`
	Postgres    PostgresConfig  `mapstructure:"postgres"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Server      ServerConfig    `mapstructure:"server"`
	Import      ImportConfig    `mapstructure:"import"`
	Dashboard   DashboardConfig `mapstructure:"dashboard"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type PostgresConfig struct {
	URI             string `mapstructure:"uri"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

type AuthConfig struct {
	Backend  string `mapstructure:"backend"`
	FlagPath string `mapstructure:"flag_path"`
	RedisKey string `mapstructure:"redis_key"`
	// AccessCode, when set, is written to the store at start up
	AccessCode string `mapstructure:"access_code"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// KafkaConfig configures change event publishing. No brokers means no events.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type ImportConfig struct {
	Stake float64 `mapstructure:"stake"`
	Notes string  `mapstructure:"notes"`
}

type DashboardConfig struct {
	RecentLimit          int     `mapstructure:"recent_limit"`
	DiscrepancyTolerance float64 `mapstructure:"discrepancy_tolerance"`
}

// Load loads configuration from an optional file and environment variables
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "poker-tracker")
	v.SetDefault("store.backend", StoreBackendPostgres)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.connect_attempts", 5)
	v.SetDefault("auth.backend", AuthBackendFile)
	v.SetDefault("auth.flag_path", ".poker-auth")
	v.SetDefault("auth.redis_key", "poker-tracker:authenticated")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.topic", "poker-tracker.changes")
	v.SetDefault("kafka.group_id", "poker-tracker-auditor")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":8081")
	v.SetDefault("import.stake", 5.0)
	v.SetDefault("import.notes", "Imported History")
	v.SetDefault("dashboard.recent_limit", 3)
	v.SetDefault("dashboard.discrepancy_tolerance", 1.0)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Nested keys are only picked up by Unmarshal when bound explicitly
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("store.backend", "STORE_BACKEND")
	v.BindEnv("postgres.uri", "POSTGRES_URI")
	v.BindEnv("postgres.max_conns", "POSTGRES_MAX_CONNS")
	v.BindEnv("postgres.min_conns", "POSTGRES_MIN_CONNS")
	v.BindEnv("postgres.connect_attempts", "POSTGRES_CONNECT_ATTEMPTS")
	v.BindEnv("auth.backend", "AUTH_BACKEND")
	v.BindEnv("auth.flag_path", "AUTH_FLAG_PATH")
	v.BindEnv("auth.redis_key", "AUTH_REDIS_KEY")
	v.BindEnv("auth.access_code", "AUTH_ACCESS_CODE")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("server.addr", "SERVER_ADDR")
	v.BindEnv("server.metrics_addr", "SERVER_METRICS_ADDR")
	v.BindEnv("import.stake", "IMPORT_STAKE")
	v.BindEnv("import.notes", "IMPORT_NOTES")
	v.BindEnv("dashboard.recent_limit", "DASHBOARD_RECENT_LIMIT")
	v.BindEnv("dashboard.discrepancy_tolerance", "DASHBOARD_DISCREPANCY_TOLERANCE")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Brokers from the environment arrive as one comma separated string
	if brokers := v.GetString("kafka.brokers"); brokers != "" {
		config.Kafka.Brokers = splitList(brokers)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks if the configuration is usable
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	switch c.Store.Backend {
	case StoreBackendPostgres:
		if c.Postgres.URI == "" {
			return errors.New("postgres.uri is required")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Auth.Backend {
	case AuthBackendFile:
		if c.Auth.FlagPath == "" {
			return errors.New("auth.flag_path is required")
		}
	case AuthBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required")
		}
	default:
		return fmt.Errorf("unknown auth.backend %q", c.Auth.Backend)
	}
	if c.Import.Stake <= 0 {
		return errors.New("import.stake must be positive")
	}
	if c.Dashboard.RecentLimit < 0 {
		return errors.New("dashboard.recent_limit must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}

// EventsEnabled reports whether change events should be published
func (c *AppConfig) EventsEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
