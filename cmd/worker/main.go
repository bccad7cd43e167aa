package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-erp/internal/config"
	"github.com/noah-isme/backend-erp/internal/obs"
	"github.com/noah-isme/backend-erp/internal/repo"
)

// TaskStageSweep purges staged lines older than the stage TTL. Abandoned
// terminal sessions never clear their ledgers themselves.
const TaskStageSweep = "stage:sweep"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "erp"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()
	stageRepo := repo.StageRepo{Pool: pool}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	asynqOpt := asynq.RedisClientOpt{
		Addr:     redisOpts.Addr,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	scheduler := asynq.NewScheduler(asynqOpt, &asynq.SchedulerOpts{})
	schedule := fmt.Sprintf("@every %s", cfg.StageSweepEvery)
	if _, err := scheduler.Register(schedule, asynq.NewTask(TaskStageSweep, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register sweep schedule")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	defer scheduler.Shutdown()

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskStageSweep, func(taskCtx context.Context, _ *asynq.Task) error {
		cutoff := time.Now().Add(-cfg.StageTTL)
		purged, err := stageRepo.DeleteStaleLines(taskCtx, cutoff)
		if err != nil {
			logger.Error().Err(err).Msg("sweep stale stage lines")
			return err
		}
		if purged > 0 && obs.StageSweepPurgedTotal != nil {
			obs.StageSweepPurgedTotal.Add(float64(purged))
		}
		logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("stage sweep complete")
		return nil
	})

	srv := asynq.NewServer(asynqOpt, asynq.Config{Concurrency: 2})
	logger.Info().Str("sweep_every", cfg.StageSweepEvery.String()).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	poolConfig.ConnConfig.RuntimeParams = map[string]string{"application_name": "erp-worker"}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
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
