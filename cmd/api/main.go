package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-erp/internal/audit"
	"github.com/noah-isme/backend-erp/internal/catalog"
	"github.com/noah-isme/backend-erp/internal/commit"
	"github.com/noah-isme/backend-erp/internal/common"
	"github.com/noah-isme/backend-erp/internal/config"
	"github.com/noah-isme/backend-erp/internal/events"
	"github.com/noah-isme/backend-erp/internal/health"
	"github.com/noah-isme/backend-erp/internal/lock"
	"github.com/noah-isme/backend-erp/internal/obs"
	"github.com/noah-isme/backend-erp/internal/repo"
	"github.com/noah-isme/backend-erp/internal/staging"
	"github.com/noah-isme/backend-erp/internal/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "erp")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "erp-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.AutoMigrate {
		m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open migrations")
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "erp-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	terminalRepo := repo.TerminalRepo{Pool: pool}
	itemRepo := repo.ItemRepo{Pool: pool}
	stageRepo := repo.StageRepo{Pool: pool}
	txRepo := repo.TransactionRepo{Pool: pool}
	auditRepo := repo.AuditRepo{Pool: pool}
	eventRepo := repo.EventRepo{Pool: pool}

	bus := &events.Bus{
		Store:     eventRepo,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}

	terminalSvc := &terminal.Service{Store: terminalRepo}
	terminalHandler := &terminal.Handler{Svc: terminalSvc, Events: bus}
	terminalGate := terminal.Middleware{Service: terminalSvc}

	catalogSvc := &catalog.Service{
		Store: itemRepo,
		Cache: catalog.NewCache(redisClient, cfg.ItemCacheTTL),
	}
	catalogHandler := &catalog.Handler{Svc: catalogSvc}

	locker := lock.Locker{R: redisClient, RetryBackoff: cfg.LockRetryBackoff}

	stagingSvc := &staging.Service{
		Store:    stageRepo,
		Resolver: catalogSvc,
		Locker:   locker,
		LockTTL:  cfg.LockTTL,
	}
	stagingHandler := staging.NewHandler(stagingSvc)

	coordinator := &commit.Coordinator{
		Stage:   stageRepo,
		Locker:  locker,
		Store:   txRepo,
		Events:  bus,
		LockTTL: cfg.LockTTL,
	}
	commitHandler := commit.NewHandler(coordinator)

	auditSvc := &audit.Service{
		Store:        auditRepo,
		Enabled:      cfg.AuditEnabled,
		SamplingRate: cfg.AuditSamplingRate,
	}
	auditRecorder := audit.HTTPRecorder{
		Service: auditSvc,
		OnError: func(err error) { logger.Error().Err(err).Msg("record audit entry") },
	}
	auditHandler := audit.Handler{Store: auditRepo, PageSize: cfg.AuditPageSize}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "ratelimit:erp"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	stageLimiter := limiterstdlib.NewMiddleware(limiter.New(limiterStore, limiter.Rate{
		Period: time.Minute,
		Limit:  cfg.RateLimitPerMinute,
	}))

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", terminal.TokenHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{DB: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/terminals", func(t chi.Router) {
			t.Post("/resolve", terminalHandler.Resolve)
			t.Post("/validate", terminalHandler.Validate)
		})

		v.Get("/items/{id}", catalogHandler.GetItem)

		v.Route("/stage/{domain}", func(s chi.Router) {
			s.Use(terminalGate.RequireTerminal)
			s.Get("/", stagingHandler.List)

			s.Group(func(m chi.Router) {
				m.Use(stageLimiter.Handler)
				m.Use(auditRecorder.Middleware(audit.HTTPConfig{ResourceIDParam: "lineID"}))
				m.With(idem.Middleware).Post("/lines", stagingHandler.AddLine)
				m.Put("/lines/{lineID}", stagingHandler.ReplaceLine)
				m.Delete("/lines/{lineID}", stagingHandler.RemoveLine)
				m.Delete("/", stagingHandler.Clear)
				m.With(idem.Middleware).Post("/commit", commitHandler.Commit)
			})
		})

		v.Get("/transactions/{id}", commitHandler.GetTransaction)
		v.Get("/audit", auditHandler.List)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")
	ctxTimeout, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxTimeout); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
