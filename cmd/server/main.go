package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SAP-F-2025/educheck-service/internal/auth"
	"github.com/SAP-F-2025/educheck-service/internal/cache"
	"github.com/SAP-F-2025/educheck-service/internal/config"
	"github.com/SAP-F-2025/educheck-service/internal/events"
	"github.com/SAP-F-2025/educheck-service/internal/handlers"
	"github.com/SAP-F-2025/educheck-service/internal/repositories"
	"github.com/SAP-F-2025/educheck-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/educheck-service/internal/services"
	"github.com/SAP-F-2025/educheck-service/internal/session"
	"github.com/SAP-F-2025/educheck-service/internal/utils"
	"github.com/SAP-F-2025/educheck-service/internal/validator"
	"github.com/SAP-F-2025/educheck-service/pkg"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		// Infrastructure
		fx.Provide(
			config.LoadConfig,
			NewLogger,
			func(l utils.Logger) *slog.Logger { return l.Slog() },
			pkg.InitDatabase,
			pkg.NewRedisClient,
			NewEventPublisher,
			events.NewLiveBroker,
			NewGinEngine,
		),

		// Storage, sessions and identity
		fx.Provide(
			postgres.NewRepository,
			func(client *redis.Client, logger *slog.Logger) cache.CacheService {
				return cache.NewRedisCache(client, logger)
			},
			func(client *redis.Client, cfg *config.Config) session.Store {
				return session.NewRedisStore(client, session.TTLs{
					Session:    cfg.SessionTTL,
					RememberMe: cfg.RememberMeTTL,
				})
			},
			func(cfg *config.Config, logger *slog.Logger) auth.IdentityProvider {
				return auth.NewCasdoorProvider(cfg.Casdoor, logger)
			},
		),

		// Services and handlers
		fx.Provide(
			validator.New,
			NewServiceManager,
			func(sessions session.Store, identity auth.IdentityProvider, repo repositories.Repository, logger utils.Logger) *auth.Middleware {
				return auth.NewMiddleware(sessions, identity, repo.User(), logger)
			},
			handlers.NewHandlerManager,
		),

		fx.Invoke(MigrateDatabase),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	app.Run()
}

func NewLogger(cfg *config.Config) utils.Logger {
	logger := utils.NewLogger(cfg.Environment)
	slog.SetDefault(logger.Slog())
	return logger
}

// NewEventPublisher falls back to the in-memory publisher when the broker is
// unreachable so the API keeps serving.
func NewEventPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) events.EventPublisher {
	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		publisher = events.NewMemoryEventPublisher(logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}

type serviceParams struct {
	fx.In

	Config    *config.Config
	Repo      repositories.Repository
	Cache     cache.CacheService
	Sessions  session.Store
	Identity  auth.IdentityProvider
	Publisher events.EventPublisher
	Broker    *events.LiveBroker
	Validator *validator.Validator
	Logger    *slog.Logger
}

func NewServiceManager(p serviceParams) services.ServiceManager {
	return services.NewServiceManager(services.Dependencies{
		Repo:          p.Repo,
		Cache:         p.Cache,
		Sessions:      p.Sessions,
		Identity:      p.Identity,
		Publisher:     p.Publisher,
		Broker:        p.Broker,
		Validator:     p.Validator,
		Logger:        p.Logger,
		StatsCacheTTL: p.Config.StatsCacheTTL,
	})
}

func NewGinEngine(cfg *config.Config, logger utils.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.RequestID())
	r.Use(utils.LoggerMiddleware(logger))
	r.Use(utils.ContextLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", utils.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func MigrateDatabase(db *gorm.DB, logger *slog.Logger) error {
	logger.Info("Running database migrations")
	if err := pkg.AutoMigrate(db); err != nil {
		logger.Error("Database migration failed", "error", err)
		return err
	}
	return nil
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	router *gin.Engine,
	cfg *config.Config,
	handlerManager *handlers.HandlerManager,
	broker *events.LiveBroker,
	redisClient *redis.Client,
	db *gorm.DB,
	logger *slog.Logger,
) {
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("EduCheck server starting", "port", cfg.Port, "environment", cfg.Environment)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Server ListenAndServe failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Server shutting down")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			// Live streams block until their subscriptions end.
			if err := broker.Close(); err != nil {
				logger.Warn("Failed to close live broker", "error", err)
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			return nil
		},
	})
}
