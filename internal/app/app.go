package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	swaggerfiles "github.com/swaggo/files"
	swagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/NAJJJB/subscription-tracker/docs"
	"github.com/NAJJJB/subscription-tracker/internal/cache"
	"github.com/NAJJJB/subscription-tracker/internal/config"
	handlers "github.com/NAJJJB/subscription-tracker/internal/handlers/http"
	"github.com/NAJJJB/subscription-tracker/internal/metrics"
	"github.com/NAJJJB/subscription-tracker/internal/notifier"
	"github.com/NAJJJB/subscription-tracker/internal/repository/sqlite"
	"github.com/NAJJJB/subscription-tracker/internal/services/broadcast"
	httplog "github.com/NAJJJB/subscription-tracker/internal/services/logger"
	"github.com/NAJJJB/subscription-tracker/internal/services/message"
	"github.com/NAJJJB/subscription-tracker/internal/services/operator"
	"github.com/NAJJJB/subscription-tracker/internal/services/subscriptions"
	"github.com/NAJJJB/subscription-tracker/internal/services/webhook"
	fLogger "github.com/NAJJJB/subscription-tracker/pkg/logger"
)

const (
	timeoutDuration = 5 * time.Second

	metricsNamespace = "subscription_tracker"
	tokenStoreRedis  = "redis"
)

// ServiceContainer holds initialized dependencies for the server and CLI.
type ServiceContainer struct {
	Repo                *sqlite.Repository
	SubscriptionService *subscriptions.Service
	Notificator         *notifier.Notifier
	Broadcaster         *broadcast.Coordinator
	Operator            *operator.Service

	Router *gin.Engine
	Srv    *http.Server
	Db     *sql.DB
	Redis  *redis.Client
	M      *metrics.Metrics

	fileLogger *zap.Logger
}

type App struct {
	cfg config.Config
	l   zerolog.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *App {
	return &App{cfg: cfg, l: logger}
}

// Start serves HTTP and runs the scheduler until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	sc, err := a.Init(ctx)
	if err != nil {
		return err
	}

	if err := sc.Notificator.Start(ctx); err != nil {
		_ = a.Stop(sc)
		return err
	}

	srvErr := make(chan error, 1)
	go func() {
		a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server listening")
		if err := sc.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-ctx.Done():
		a.l.Info().Msg("shutdown signal received")
	case err := <-srvErr:
		if err != nil {
			a.l.Error().Err(err).Msg("HTTP server error")
			_ = a.Stop(sc)
			return err
		}
	}
	return a.Stop(sc)
}

// RunOnce runs the renewal pipeline a single time without serving HTTP.
func (a *App) RunOnce(ctx context.Context) (notifier.RunResult, error) {
	sc, err := a.Init(ctx)
	if err != nil {
		return notifier.RunResult{}, err
	}
	defer func() { _ = a.Stop(sc) }()

	return sc.Notificator.RunDue(ctx)
}

// Migrate applies pending database migrations.
func (a *App) Migrate(ctx context.Context) error {
	db, err := sqlite.Open(ctx, a.cfg.DB.Dialect, a.cfg.DB.Source)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			a.l.Error().Err(err).Msg("database close error")
		}
	}()
	return sqlite.Migrate(db)
}

func (a *App) Stop(sc ServiceContainer) error {
	a.l.Info().Msg("stopping application")

	sc.Notificator.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if err := sc.Srv.Shutdown(ctx); err != nil {
		a.l.Error().Err(err).Msg("HTTP shutdown error")
	}

	if sc.Redis != nil {
		if err := sc.Redis.Close(); err != nil {
			a.l.Error().Err(err).Msg("redis close error")
		}
	}

	if err := sc.fileLogger.Sync(); err != nil {
		a.l.Debug().Err(err).Msg("failed to sync webhook logger")
	}

	if err := sc.Db.Close(); err != nil {
		a.l.Error().Err(err).Msg("database close error")
		return err
	}

	a.l.Info().Msg("application shutdown complete")
	return nil
}

// Init builds every component without starting anything.
func (a *App) Init(ctx context.Context) (ServiceContainer, error) {
	a.l.Info().Msg("initializing application")

	openCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()
	db, err := sqlite.Open(openCtx, a.cfg.DB.Dialect, a.cfg.DB.Source)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		_ = db.Close()
		return ServiceContainer{}, fmt.Errorf("migrate database: %w", err)
	}

	loc, err := a.cfg.Notifier.Location()
	if err != nil {
		_ = db.Close()
		return ServiceContainer{}, err
	}

	m := metrics.NewMetrics(metricsNamespace, db, a.cfg.DB.Source)
	repo := sqlite.NewRepository(db, a.l, m)

	fileLogger, err := fLogger.NewFileLogger(a.cfg.Webhook.LogPath)
	if err != nil {
		a.l.Error().Err(err).Msg("failed to create webhook file logger")
		fileLogger = zap.NewNop()
	}
	httpLogClient := &http.Client{
		Transport: httplog.NewRoundTripper(fileLogger),
		Timeout:   a.cfg.Webhook.Timeout,
	}

	dispatcher := webhook.NewBreakerClient(webhook.BreakerConfig{
		TimeInterval: a.cfg.Webhook.BreakerInterval,
		TimeTimeOut:  a.cfg.Webhook.BreakerTimeout,
		RepeatNumber: a.cfg.Webhook.BreakerFailures,
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("webhook circuit breaker state changed")
		},
	}, webhook.NewClient(httpLogClient, a.cfg.Webhook.Username, a.l))

	formatter := message.NewFormatter(a.cfg.PublicURL)

	n := notifier.New(notifier.NewScanner(repo), formatter, dispatcher, notifier.Config{
		Schedule:   a.cfg.Notifier.Schedule,
		Location:   loc,
		Workers:    a.cfg.Notifier.Workers,
		RunTimeout: a.cfg.Notifier.RunTimeout,
	}, a.l, m)
	if a.cfg.Notifier.Dedupe {
		n.WithLedger(repo)
	}

	coordinator := broadcast.NewCoordinator(repo, formatter, dispatcher, a.cfg.Broadcast.Delay, a.l, m).
		WithSendBudget(a.cfg.Webhook.Timeout)
	if a.cfg.Operator.AlertWebhook != "" {
		coordinator.WithAlert(broadcast.NewStaffAlert(a.cfg.Operator.AlertWebhook, a.cfg.Webhook.Username))
	}

	store, redisClient := a.tokenStore()
	opSvc := operator.NewService(operator.Config{
		UserID:        a.cfg.Operator.UserID,
		Secret:        a.cfg.Operator.Secret,
		TokenTTL:      a.cfg.Operator.TokenTTL,
		LoginInterval: a.cfg.Operator.LoginEvery,
		LoginBurst:    a.cfg.Operator.LoginBurst,
	}, store, a.l, m)

	subSvc := subscriptions.NewService(repo, n, a.cfg.Notifier.NotifyOnCreate, a.l, m)

	router := gin.New()
	router.Use(gin.Recovery(), m.HTTPMiddleware())
	handlers.NewHandler(subSvc, n, coordinator, opSvc, a.l).Register(router)
	router.GET("/swagger/*any", swagger.WrapHandler(swaggerfiles.Handler))
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: a.cfg.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", handlers.HeaderUserID, handlers.HeaderOperatorToken},
	}).Handler(router)

	httpSrv := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     corsHandler,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	return ServiceContainer{
		Repo:                repo,
		SubscriptionService: subSvc,
		Notificator:         n,
		Broadcaster:         coordinator,
		Operator:            opSvc,
		Router:              router,
		Srv:                 httpSrv,
		Db:                  db,
		Redis:               redisClient,
		M:                   m,
		fileLogger:          fileLogger,
	}, nil
}

func (a *App) tokenStore() (operator.TokenStore, *redis.Client) {
	if a.cfg.Operator.TokenStore != tokenStoreRedis {
		return cache.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Address(),
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	return cache.NewRedisStore(client, a.l), client
}
