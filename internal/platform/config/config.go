package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pkgstrings "aurum/pkg/platform/strings"
)

// Config is the process-level configuration read from the environment.
// Ledger parameters live in the program file (see Program).
type Config struct {
	Server      Server
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	PriceFeed   PriceFeedConfig
	Keeper      KeeperConfig
	LogLevel    string
	LogFormat   string
	ProgramPath string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// DatabaseConfig selects PostgreSQL persistence. An empty URL runs the ledger
// on in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the compliance cooldown store. An empty URL keeps
// cooldowns in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox relay. It only runs when brokers
// are set and the database is configured.
type KafkaConfig struct {
	Brokers           []string
	TopicPrefix       string
	DisbursementTopic string
	Partitions        int32
	ReplicationFactor int16
	RelayInterval     time.Duration
}

// PriceFeedConfig configures the HTTP price collaborator used for non-stable
// deposit tokens.
type PriceFeedConfig struct {
	URL               string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	MaxQuoteAge       time.Duration
	BreakerCooldown   time.Duration
}

// KeeperConfig configures the background automation loop.
type KeeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

// FromEnv builds the process config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          envOr("AURUM_ADDR", ":8080"),
			JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
			JWTIssuer:     envOr("JWT_ISSUER", "aurum"),
			JWTAudience:   envOr("JWT_AUDIENCE", "aurum-ledger"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:           pkgstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			TopicPrefix:       envOr("KAFKA_TOPIC_PREFIX", "aurum.audit"),
			DisbursementTopic: envOr("KAFKA_DISBURSEMENT_TOPIC", "aurum.disbursements"),
		},
		PriceFeed: PriceFeedConfig{
			URL: os.Getenv("PRICE_FEED_URL"),
		},
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
		ProgramPath: os.Getenv("AURUM_PROGRAM_FILE"),
	}
	if cfg.Server.JWTSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.Server.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	var err error
	if cfg.Database.MaxOpenConns, err = envInt("DATABASE_MAX_OPEN_CONNS", 20); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxIdleConns, err = envInt("DATABASE_MAX_IDLE_CONNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.Database.ConnMaxLifetime, err = envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.Redis.MinIdleConns, err = envInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DialTimeout, err = envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.ReadTimeout, err = envDuration("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.WriteTimeout, err = envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	partitions, err := envInt("KAFKA_PARTITIONS", 3)
	if err != nil {
		return Config{}, err
	}
	cfg.Kafka.Partitions = int32(partitions)
	replication, err := envInt("KAFKA_REPLICATION_FACTOR", 1)
	if err != nil {
		return Config{}, err
	}
	cfg.Kafka.ReplicationFactor = int16(replication)
	if cfg.Kafka.RelayInterval, err = envDuration("KAFKA_RELAY_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PriceFeed.RequestsPerSecond, err = envFloat("PRICE_FEED_RPS", 5); err != nil {
		return Config{}, err
	}
	if cfg.PriceFeed.Burst, err = envInt("PRICE_FEED_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.PriceFeed.Timeout, err = envDuration("PRICE_FEED_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PriceFeed.MaxQuoteAge, err = envDuration("PRICE_FEED_MAX_AGE", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PriceFeed.BreakerCooldown, err = envDuration("PRICE_FEED_BREAKER_COOLDOWN", 30*time.Second); err != nil {
		return Config{}, err
	}
	cfg.Keeper.Enabled = os.Getenv("KEEPER_ENABLED") != "false"
	if cfg.Keeper.Interval, err = envDuration("KEEPER_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
