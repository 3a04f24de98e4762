package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/config"
	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/contest"
	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/jobs"
	"github.com/voxroom/voxroom-api/internal/pkg/database"
	"github.com/voxroom/voxroom-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "worker"})

	log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("Starting worker")

	store, err := database.OpenLedger(cfg.LedgerDriver, cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer store.Close()

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb == nil {
		log.Fatal().Msg("Worker needs Redis for its queue")
	}
	defer database.CloseRedis(rdb)

	// Publish-only: events reach API instances through Redis.
	hub := realtime.NewHub(rdb)
	defer hub.Shutdown()

	agencies := agency.NewService(store, hub)
	agencies.SetMaxDepth(cfg.CommissionMaxDepth)
	contests := contest.NewService(store, hub)

	opt, err := jobs.RedisOpt(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Redis URL")
	}

	srv := jobs.NewServer(opt, cfg.WorkerConcurrency)
	if err := srv.Start(jobs.NewProcessor(agencies, contests).Mux()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job server")
	}

	if cfg.ContestCron != "" {
		scheduler, err := jobs.NewScheduler(opt, cfg.ContestCron)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create scheduler")
		}
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer scheduler.Shutdown()
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan
	log.Info().Msg("Shutdown signal received")

	srv.Shutdown()
	log.Info().Msg("worker stopped")
}
