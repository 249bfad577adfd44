// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by ROOMBOOK_STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures environment driven configuration values for the booking store.
type Config struct {
	StoreDriver string
	SQLitePath  string
	PostgresDSN string

	SeedDefaults    bool
	ConflictPolicy  string
	TrendWindowDays int
	TopUsers        int

	MetricsAddr string

	AMQPURL   string
	AMQPQueue string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	LogLevel string
}

// Load reads an optional .env file from the working directory and then
// parses the process environment. Variables already set win over the file.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return Parse(os.Getenv)
}

// Parse builds a Config from getenv, applying defaults for optional values and
// reporting every missing or invalid key at once.
func Parse(getenv func(string) string) (Config, error) {
	cfg := Config{
		StoreDriver:     DriverMemory,
		SQLitePath:      "roombook.db",
		SeedDefaults:    true,
		ConflictPolicy:  "allow",
		TrendWindowDays: 30,
		TopUsers:        5,
		AMQPQueue:       "roombook.bookings",
		StatsCacheTTL:   time.Minute,
		LogLevel:        "info",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)
	value := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if driver := strings.ToLower(value("ROOMBOOK_STORE_DRIVER")); driver != "" {
		switch driver {
		case DriverMemory, DriverSQLite, DriverPostgres:
			cfg.StoreDriver = driver
		default:
			invalid = append(invalid, "ROOMBOOK_STORE_DRIVER")
		}
	}

	if path := value("ROOMBOOK_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	cfg.PostgresDSN = value("ROOMBOOK_POSTGRES_DSN")
	if cfg.StoreDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "ROOMBOOK_POSTGRES_DSN")
	}

	if seed := value("ROOMBOOK_SEED_DEFAULTS"); seed != "" {
		enabled, err := strconv.ParseBool(seed)
		if err != nil {
			invalid = append(invalid, "ROOMBOOK_SEED_DEFAULTS")
		} else {
			cfg.SeedDefaults = enabled
		}
	}

	if policy := strings.ToLower(value("ROOMBOOK_CONFLICT_POLICY")); policy != "" {
		if policy != "allow" && policy != "reject" {
			invalid = append(invalid, "ROOMBOOK_CONFLICT_POLICY")
		} else {
			cfg.ConflictPolicy = policy
		}
	}

	if window := value("ROOMBOOK_TREND_WINDOW_DAYS"); window != "" {
		days, err := strconv.Atoi(window)
		if err != nil || days <= 0 {
			invalid = append(invalid, "ROOMBOOK_TREND_WINDOW_DAYS")
		} else {
			cfg.TrendWindowDays = days
		}
	}

	if top := value("ROOMBOOK_TOP_USERS"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n <= 0 {
			invalid = append(invalid, "ROOMBOOK_TOP_USERS")
		} else {
			cfg.TopUsers = n
		}
	}

	cfg.MetricsAddr = value("ROOMBOOK_METRICS_ADDR")
	cfg.AMQPURL = value("ROOMBOOK_AMQP_URL")
	if queue := value("ROOMBOOK_AMQP_QUEUE"); queue != "" {
		cfg.AMQPQueue = queue
	}

	cfg.RedisAddr = value("ROOMBOOK_REDIS_ADDR")
	cfg.RedisPassword = getenv("ROOMBOOK_REDIS_PASSWORD")
	if db := value("ROOMBOOK_REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			invalid = append(invalid, "ROOMBOOK_REDIS_DB")
		} else {
			cfg.RedisDB = n
		}
	}
	if ttlValue := value("ROOMBOOK_STATS_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "ROOMBOOK_STATS_CACHE_TTL")
		} else {
			cfg.StatsCacheTTL = ttl
		}
	}

	if level := strings.ToLower(value("ROOMBOOK_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "ROOMBOOK_LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
