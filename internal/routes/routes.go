package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikonekti/nikonekti_backend/internal/auth"
	"github.com/nikonekti/nikonekti_backend/internal/config"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/middleware"
	"github.com/nikonekti/nikonekti_backend/internal/notification"
	"github.com/nikonekti/nikonekti_backend/internal/property"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Repos overrides the stores derived from DB. Tests use it to seed data.
	Repos *Repositories
}

// Repositories groups the persistence backends the services run on.
type Repositories struct {
	Users      identity.Repository
	Tokens     auth.TokenRepository
	Properties property.Repository
}

// NewRepositories returns Postgres-backed stores, or in-memory ones when db is nil.
func NewRepositories(db *pgxpool.Pool) Repositories {
	if db == nil {
		return Repositories{
			Users:      identity.NewMemoryRepository(),
			Tokens:     auth.NewMemoryTokenRepository(),
			Properties: property.NewMemoryRepository(),
		}
	}
	return Repositories{
		Users:      identity.NewPostgresRepository(db),
		Tokens:     auth.NewPostgresTokenRepository(db),
		Properties: property.NewPostgresRepository(db),
	}
}

// Setup configures middlewares and all application routes. Without a database the
// in-memory repositories are used, which is only allowed in development.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.LogFormat == "text" {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	repos := d.Repos
	if repos == nil {
		if d.DB == nil {
			d.Logger.Warn("no database configured, using in-memory repositories")
		}
		r := NewRepositories(d.DB)
		repos = &r
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	identitySvc := identity.NewService(repos.Users, notifier, d.Logger, d.Cfg.BcryptCost)
	authSvc := auth.NewService(identitySvc, repos.Users, repos.Tokens)
	propertySvc := property.NewService(repos.Properties)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	requireToken := middleware.TokenAuth(authSvc)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute, d.Logger)
	// replay is per user, so it only runs behind TokenAuth
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)

	RegisterAuthRoutes(api, auth.NewHandler(authSvc), requireToken, rateLimiter)
	RegisterUserRoutes(api, identity.NewHandler(identitySvc), requireToken, idempotent)
	RegisterTenantRoutes(api, propertySvc, requireToken)

	listAuth := requireToken
	if d.Cfg.PublicPropertyList() {
		listAuth = middleware.OptionalAuth(authSvc)
	}
	RegisterPropertyRoutes(api, property.NewHandler(propertySvc), requireToken, listAuth, idempotent)

	return nil
}
