package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/voxroom/voxroom-api/internal/config"
	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/jobs"
	"github.com/voxroom/voxroom-api/internal/middleware"
	"github.com/voxroom/voxroom-api/internal/pkg/database"
	"github.com/voxroom/voxroom-api/internal/pkg/jwt"
	"github.com/voxroom/voxroom-api/internal/pkg/logger"
	"github.com/voxroom/voxroom-api/internal/pkg/razorpay"
	"github.com/voxroom/voxroom-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "api"})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("ledger", cfg.LedgerDriver).
		Msg("Starting VoxRoom API")

	store, err := database.OpenLedger(cfg.LedgerDriver, cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: cfg.DBMaxOpenConns})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer store.Close()

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	hub := realtime.NewHub(rdb)
	go hub.Run()
	defer hub.Shutdown()

	exports, err := storage.New(context.Background(), storage.Config{
		Driver:    cfg.PayoutStorageDriver,
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
		AccountID: cfg.R2AccountID,
		LocalDir:  cfg.PayoutLocalDir,
		LocalURL:  cfg.PayoutLocalURL,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Payout export storage unavailable, exports disabled")
		exports = nil
	}

	gateway := razorpay.NewClient(razorpay.Config{
		BaseURL:   cfg.RazorpayBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Timeout:   cfg.RazorpayTimeout,
	})
	if !cfg.PaymentsConfigured() {
		log.Warn().Msg("Razorpay credentials missing, recharge disabled")
	}

	d := deps{
		store:     store,
		redis:     rdb,
		publisher: hub,
		hub:       hub,
		gateway:   gateway,
		exports:   exports,
		tokens:    jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL),
		admin:     jwt.NewService(cfg.JWTSecret, cfg.AdminTokenTTL),
	}

	// Commission propagation goes to the worker when a queue is available.
	if cfg.CommissionAsync && rdb != nil {
		client, err := newQueueClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create job queue client")
		}
		defer client.Close()
		d.dispatcher = jobs.NewDispatcher(client)
		log.Info().Msg("Commission propagation queued to worker")
	}

	a := newApp(cfg, d)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router(cfg, d, middleware.Auth(d.tokens)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newQueueClient(redisURL string) (*asynq.Client, error) {
	opt, err := jobs.RedisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return jobs.NewClient(opt), nil
}
