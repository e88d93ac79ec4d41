// Package config loads deployment configuration from the environment.
//
// The isolation strategy is the one setting that shapes the whole data plane:
// it is read exactly once here and validated fatally at startup. There is no
// way to change it without a restart.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "stratum/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// AdminTokenHash is the bcrypt hash of the control-plane operator token.
	AdminTokenHash string
	LogLevel       string
}

// Isolation configures the tenant data-isolation layer.
type Isolation struct {
	// Strategy is the raw deployment-wide strategy value. Validated once by
	// isolation.NewPolicyResolver; any value outside the closed set aborts
	// startup.
	Strategy string

	MaxAdapters    int
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	AcquireTimeout time.Duration
}

// Postgres configures the shared data-plane database and the control plane.
type Postgres struct {
	// DSN is the shared database used by the table_level and schema_level
	// strategies, and by the control plane (tenant directory, audit).
	DSN          string
	MaxOpenConns int
	MaxIdleConns int

	// TenantDSNTemplate builds per-tenant DSNs for the database_level
	// strategy; %s is replaced with the descriptor's database name.
	TenantDSNTemplate string
}

// RedisConfig configures the optional tenant-descriptor cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit event sink. Empty brokers disable it.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Config is the full process configuration.
type Config struct {
	Server    Server
	Isolation Isolation
	Postgres  Postgres
	Redis     RedisConfig
	Kafka     Kafka
}

// Load builds the configuration from environment variables. A .env file is
// honored in development; absence is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Server: Server{
			Addr:           envOr("STRATUM_ADDR", ":8080"),
			JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
			LogLevel:       envOr("LOG_LEVEL", "info"),
		},
		Isolation: Isolation{
			Strategy:       os.Getenv("ISOLATION_STRATEGY"),
			MaxAdapters:    envInt("ISOLATION_MAX_ADAPTERS", 256),
			IdleTTL:        envDuration("ISOLATION_IDLE_TTL", 15*time.Minute),
			SweepInterval:  envDuration("ISOLATION_SWEEP_INTERVAL", time.Minute),
			AcquireTimeout: envDuration("ISOLATION_ACQUIRE_TIMEOUT", 5*time.Second),
		},
		Postgres: Postgres{
			DSN:               os.Getenv("POSTGRES_DSN"),
			MaxOpenConns:      envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:      envInt("POSTGRES_MAX_IDLE_CONNS", 5),
			TenantDSNTemplate: os.Getenv("POSTGRES_TENANT_DSN_TEMPLATE"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "stratum.audit"),
		},
	}
}

// Validate rejects configurations the process cannot start with. The
// isolation strategy value itself is validated by isolation.NewPolicyResolver
// so the closed enumeration has a single owner.
func (c Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if c.Isolation.Strategy == "" {
		return fmt.Errorf("ISOLATION_STRATEGY is required")
	}
	if c.Isolation.AcquireTimeout <= 0 {
		return fmt.Errorf("ISOLATION_ACQUIRE_TIMEOUT must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
