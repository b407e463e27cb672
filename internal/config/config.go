package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAppName         = "Nikonekti"
	defaultAppEnv          = "development"
	defaultPort            = "8000"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultLoginAttempts   = 5
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"

	// VisibilityPublic lets anonymous callers browse the property list.
	VisibilityPublic = "public"
	// VisibilityAuthenticated requires a token to browse the property list.
	VisibilityAuthenticated = "authenticated"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName                string
	AppEnv                 string
	Port                   string
	LogLevel               string
	LogFormat              string
	DatabaseURL            string
	RedisURL               string
	ShutdownPeriod         time.Duration
	IdempotencyTTL         time.Duration
	LoginAttemptsPerMinute int
	PropertyListVisibility string
	BcryptCost             int
	AutoMigrate            bool
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory, when present, seeds variables that are not already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:                getEnv("APP_NAME", defaultAppName),
		AppEnv:                 getEnv("APP_ENV", defaultAppEnv),
		Port:                   getEnv("PORT", defaultPort),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:              strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		ShutdownPeriod:         defaultShutdownDelay,
		IdempotencyTTL:         defaultIdempotencyTTL,
		LoginAttemptsPerMinute: defaultLoginAttempts,
		PropertyListVisibility: strings.ToLower(getEnv("PROPERTY_LIST_VISIBILITY", VisibilityAuthenticated)),
		BcryptCost:             bcrypt.DefaultCost,
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv("LOGIN_ATTEMPTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_ATTEMPTS_PER_MINUTE: %w", err)
		}
		cfg.LoginAttemptsPerMinute = n
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		if n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
		cfg.BcryptCost = n
	}

	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
		}
		cfg.AutoMigrate = b
	}

	switch cfg.PropertyListVisibility {
	case VisibilityPublic, VisibilityAuthenticated:
	default:
		return Config{}, fmt.Errorf("PROPERTY_LIST_VISIBILITY must be %q or %q", VisibilityPublic, VisibilityAuthenticated)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// IsDev reports whether the application runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// PublicPropertyList reports whether anonymous callers may list properties.
func (c Config) PublicPropertyList() bool {
	return c.PropertyListVisibility == VisibilityPublic
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
