package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikonekti/nikonekti_backend/internal/config"
)

const (
	connectTimeout  = 5 * time.Second
	poolIdleTimeout = 5 * time.Minute
)

// ErrNoDatabase is returned by OpenDatabase when no DATABASE_URL is configured.
var ErrNoDatabase = errors.New("DATABASE_URL is not configured")

// Stores bundles the backing services the API runs on. DB is nil when the process
// keeps users and listings in memory; Cache is nil when throttling and replays are off.
type Stores struct {
	DB    *pgxpool.Pool
	Cache *redis.Client

	logger *slog.Logger
}

// Open connects whatever cfg names. Missing URLs are allowed here; config.Load already
// refuses them outside development. Migrations run when cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stores, error) {
	s := &Stores{logger: logger}

	if cfg.DatabaseURL != "" {
		db, err := OpenDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.DB = db
		if cfg.AutoMigrate {
			if err := Migrate(ctx, db, logger); err != nil {
				s.Close()
				return nil, err
			}
		}
	} else {
		logger.WarnContext(ctx, "no database configured, using in-memory repositories")
	}

	if cfg.RedisURL != "" {
		cache, err := openCache(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Cache = cache
	} else {
		logger.WarnContext(ctx, "no redis configured, login throttling and idempotent replays are disabled")
	}

	return s, nil
}

// OpenDatabase connects the Postgres pool alone, for commands that need nothing else.
func OpenDatabase(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabase
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database url: %w", err)
	}
	if pcfg.MaxConnIdleTime == 0 {
		pcfg.MaxConnIdleTime = poolIdleTimeout
	}
	if _, ok := pcfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := reachable(ctx, "database", db.Ping); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openCache(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = cfg.AppName
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = connectTimeout
	}

	cache := redis.NewClient(opt)
	if err := reachable(ctx, "redis", func(ctx context.Context) error { return cache.Ping(ctx).Err() }); err != nil {
		_ = cache.Close()
		return nil, err
	}
	return cache, nil
}

func reachable(ctx context.Context, name string, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := ping(ctx); err != nil {
		return fmt.Errorf("%s unreachable: %w", name, err)
	}
	return nil
}

// Close releases every open connection. Safe on a partially opened Stores.
func (s *Stores) Close() {
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			s.logger.Warn("close redis", slog.Any("error", err))
		}
		s.Cache = nil
	}
	if s.DB != nil {
		s.DB.Close()
		s.DB = nil
	}
}
