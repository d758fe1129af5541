package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/api"
	"github.com/clinicbook/clinic-web/internal/api/handler"
	"github.com/clinicbook/clinic-web/internal/api/metrics"
	"github.com/clinicbook/clinic-web/internal/api/middleware"
	"github.com/clinicbook/clinic-web/internal/api/view"
	"github.com/clinicbook/clinic-web/internal/core/ports"
	"github.com/clinicbook/clinic-web/internal/core/service"
	"github.com/clinicbook/clinic-web/internal/infrastructure/backend"
	"github.com/clinicbook/clinic-web/internal/infrastructure/db/memory"
	mongodb "github.com/clinicbook/clinic-web/internal/infrastructure/db/mongo"
	redisdb "github.com/clinicbook/clinic-web/internal/infrastructure/db/redis"
	"github.com/clinicbook/clinic-web/internal/infrastructure/queue"
	"github.com/clinicbook/clinic-web/internal/pkg/config"
	"github.com/clinicbook/clinic-web/pkg/logger"

	_ "github.com/clinicbook/clinic-web/docs" // Swagger docs
)

// @title Clinic Web API
// @version 1.0
// @description Session endpoints of the clinic web front server.
// @BasePath /

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "clinic-web",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatal().Err(err).Msg("failed to generate session secret")
		}
		log.Warn().Msg("SESSION_SECRET not set: using a random secret, browser sessions end on restart")
	}

	checks := make(map[string]handler.Check)

	// --- Credential cache ---
	var creds ports.CredentialStore
	switch cfg.Session.CacheDriver {
	case config.CacheDriverRedis:
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		creds = redisdb.NewCredentialStore(rdb, cfg.Session.CredentialTTL, log)
		checks["redis"] = redisdb.Ping(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("credential cache: redis")
	default:
		creds = memory.NewCredentialStore(log)
		log.Info().Msg("credential cache: memory")
	}

	// --- Session audit trail ---
	var (
		events     ports.EventRecorder = ports.NopRecorder{}
		queueDepth func() int
	)
	if cfg.Audit.Enabled {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mongo")
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		repo := mongodb.NewAuditRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to create audit indexes")
		}
		dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(repo, log), log)
		dispatcher.Start(ctx)

		events = dispatcher
		queueDepth = dispatcher.Depth
		checks["mongodb"] = mongodb.Ping(db)
		log.Info().Str("database", cfg.Mongo.Database).Int("workers", cfg.Audit.Workers).Msg("session audit enabled")
	}

	// --- Backend connection per browser ---
	backendCfg := backend.Config{BaseURL: cfg.Backend.URL, Timeout: cfg.Backend.Timeout}
	if _, err := backend.New(backendCfg, log); err != nil {
		log.Fatal().Err(err).Msg("invalid backend configuration")
	}
	newBackend := func(browserID string) ports.AuthBackend {
		b, err := backend.New(backendCfg, logger.ForBrowser(log, browserID))
		if err != nil {
			// The configuration was checked at startup.
			log.Panic().Err(err).Msg("backend client")
		}
		return b
	}

	registry := service.NewRegistry(ctx, creds, newBackend, metrics.NewRecorder(events), service.RegistryConfig{
		Resolver: service.ResolverConfig{
			TrustCacheWithoutRevalidation: cfg.Session.TrustCache,
			Timeout:                       cfg.Session.ResolveTimeout,
		},
		AuthTimeout: cfg.Backend.Timeout,
		IdleTTL:     cfg.Session.IdleTTL,
	}, log)

	if err := metrics.RegisterGauges(prometheus.DefaultRegisterer, registry.Len, queueDepth); err != nil {
		log.Fatal().Err(err).Msg("failed to register gauges")
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Session.SweepSchedule, func() { registry.Sweep() }); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Session.SweepSchedule).Msg("invalid sweep schedule")
	}
	sweeper.Start()
	defer sweeper.Stop()

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse templates")
	}

	e := api.NewRouter(api.Deps{
		Clients:  registry,
		Renderer: renderer,
		Session:  middleware.SessionConfig{Secret: secret, Secure: cfg.IsProduction()},
		Checks:   checks,
		Log:      log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("backend", cfg.Backend.URL).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdown(e.Shutdown, log)
}

func shutdown(fn func(context.Context) error, log zerolog.Logger) {
	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
		return
	}
	log.Info().Msg("server stopped gracefully")
}
