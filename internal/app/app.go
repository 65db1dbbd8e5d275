package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/GameStoreGo/internal/collection"
	"github.com/utafrali/GameStoreGo/internal/config"
	handler "github.com/utafrali/GameStoreGo/internal/handler/http"
	"github.com/utafrali/GameStoreGo/internal/identity"
	"github.com/utafrali/GameStoreGo/internal/remote"
	"github.com/utafrali/GameStoreGo/internal/repository"
	"github.com/utafrali/GameStoreGo/internal/repository/memory"
	redisrepo "github.com/utafrali/GameStoreGo/internal/repository/redis"
	sqliterepo "github.com/utafrali/GameStoreGo/internal/repository/sqlite"
	"github.com/utafrali/GameStoreGo/internal/service"
	"github.com/utafrali/GameStoreGo/pkg/database"
	"github.com/utafrali/GameStoreGo/pkg/health"
	"github.com/utafrali/GameStoreGo/pkg/httpclient"
	"github.com/utafrali/GameStoreGo/pkg/middleware"
	"github.com/utafrali/GameStoreGo/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "storefront"

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	service    *service.StorefrontService
	session    *identity.Session
	closers    []io.Closer
	tracerStop func(context.Context) error
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Tracing.
	tcfg := tracing.DefaultConfig(ServiceName)
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTELEnabled
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	stop, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerStop = stop

	healthHandler := health.NewHandler()

	// Snapshot store.
	store, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Session.
	session := identity.NewSession(cfg.SessionFile, logger)
	session.Load()
	a.session = session

	// Backend client behind a circuit breaker.
	hcfg := httpclient.DefaultConfig()
	hcfg.Timeout = time.Duration(cfg.BackendTimeout) * time.Second
	hcfg.MaxRetries = cfg.BackendMaxRetries
	baseClient := httpclient.New(hcfg)
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "storefront-backend",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)
	healthHandler.RegisterNonCritical("backend", func(context.Context) error {
		if cbClient.State() == gobreaker.StateOpen {
			return errors.New("circuit breaker open")
		}
		return nil
	})
	backend := remote.New(cfg.BackendURL, cbClient, session, logger)

	// Mirrors.
	metrics := collection.NewMetrics(prometheus.DefaultRegisterer)
	deps := func(r collection.Remote) collection.Deps {
		return collection.Deps{
			Remote:   r,
			Identity: session,
			Store:    store,
			Logger:   logger,
			Metrics:  metrics,
		}
	}
	caches := &collection.Set{
		Cart:         collection.NewCart(deps(backend.Cart()), cfg.Collection()),
		Wishlist:     collection.NewWishlist(deps(backend.Wishlist()), cfg.Collection()),
		Library:      collection.NewLibrary(deps(backend.Library()), cfg.Collection()),
		Achievements: collection.NewAchievements(backend.Achievements(), deps(nil)),
	}

	a.service = service.NewStorefrontService(caches, session, backend.Orders(), logger, service.Options{
		MigrateGuestOnSignIn: cfg.MigrateGuestOnSignIn,
	})
	a.service.Restore(ctx)

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment
	router := handler.NewRouter(a.service, session, healthHandler, logger, handler.RouterConfig{
		ServiceName: ServiceName,
		CORS:        cors,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, h *health.Handler) (repository.SnapshotStore, error) {
	switch a.cfg.SnapshotDriver {
	case config.DriverRedis:
		rcfg := database.DefaultRedisConfig()
		rcfg.Host, rcfg.Port = a.cfg.RedisHost, a.cfg.RedisPort
		rcfg.Password, rcfg.DB = a.cfg.RedisPass, a.cfg.RedisDB
		rdb, err := database.NewRedisClient(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, rdb)
		h.RegisterCritical("redis", database.RedisChecker(rdb))
		a.logger.Info("connected to Redis",
			slog.String("addr", rcfg.Addr()),
			slog.Int("db", rcfg.DB),
		)
		return redisrepo.NewSnapshotStore(rdb, redisrepo.DefaultKeyPrefix, a.cfg.SnapshotTTL()), nil

	case config.DriverSQLite:
		s, err := sqliterepo.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		a.closers = append(a.closers, s)
		h.RegisterCritical("sqlite", database.SQLChecker(s.DB()))
		a.logger.Info("opened snapshot database", slog.String("path", a.cfg.SQLitePath))
		return s, nil

	default:
		a.logger.Warn("snapshots kept in memory only; mirrors will not survive a restart")
		return memory.NewSnapshotStore(), nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled. A
// restored session is resynchronised in the background.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.session.IsAuthenticated() {
		go func() {
			if err := a.service.RefreshAll(ctx); err != nil {
				a.logger.Warn("startup refresh failed", slog.String("error", err.Error()))
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.closeAll()
	if err := a.tracerStop(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeAll() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("close error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
