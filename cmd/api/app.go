package main

import (
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/voxroom/voxroom-api/internal/config"
	"github.com/voxroom/voxroom-api/internal/domain/admin"
	"github.com/voxroom/voxroom-api/internal/domain/agency"
	"github.com/voxroom/voxroom-api/internal/domain/contest"
	"github.com/voxroom/voxroom-api/internal/domain/gift"
	"github.com/voxroom/voxroom-api/internal/domain/realtime"
	"github.com/voxroom/voxroom-api/internal/domain/recharge"
	"github.com/voxroom/voxroom-api/internal/domain/room"
	"github.com/voxroom/voxroom-api/internal/domain/treasure"
	"github.com/voxroom/voxroom-api/internal/domain/wallet"
	"github.com/voxroom/voxroom-api/internal/domain/withdrawal"
	"github.com/voxroom/voxroom-api/internal/middleware"
	"github.com/voxroom/voxroom-api/internal/pkg/database"
	"github.com/voxroom/voxroom-api/internal/pkg/jwt"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/ratelimit"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
	"github.com/voxroom/voxroom-api/internal/pkg/storage"
)

// deps are the collaborators built from config in main.
type deps struct {
	store      ledger.Store
	redis      *redis.Client
	publisher  realtime.Publisher
	hub        *realtime.Hub
	gateway    recharge.Gateway
	dispatcher recharge.CommissionDispatcher
	exports    storage.Storage
	tokens     *jwt.Service
	admin      *jwt.Service
}

type app struct {
	wallets     *wallet.Service
	gifts       *gift.Service
	rooms       *room.Service
	treasure    *treasure.Service
	agencies    *agency.Service
	recharges   *recharge.Service
	withdrawals *withdrawal.Service
	contests    *contest.Service
	admin       *admin.Service
}

func newApp(cfg *config.Config, d deps) *app {
	a := &app{
		wallets:     wallet.NewService(d.store, d.publisher),
		gifts:       gift.NewService(d.store, d.publisher),
		rooms:       room.NewService(d.store, d.publisher),
		treasure:    treasure.NewService(d.store, d.publisher, treasure.NewRandomSource()),
		agencies:    agency.NewService(d.store, d.publisher),
		withdrawals: withdrawal.NewService(d.store, d.exports, d.publisher),
		contests:    contest.NewService(d.store, d.publisher),
	}
	a.agencies.SetMaxDepth(cfg.CommissionMaxDepth)

	dispatcher := d.dispatcher
	if dispatcher == nil {
		dispatcher = recharge.InlineDispatcher{Propagator: a.agencies}
	}
	a.recharges = recharge.NewService(d.store, d.gateway, dispatcher, d.publisher)

	a.admin = admin.NewService(d.store, admin.Config{
		Password: cfg.AdminPassword,
		Limiter:  ratelimit.New(d.redis, "admin_verify", cfg.AdminAttemptsPerWindow, cfg.AdminAttemptWindow),
		Tokens:   d.admin,
		TokenTTL: cfg.AdminTokenTTL,
	}, a.wallets, a.agencies)
	return a
}

func (a *app) router(cfg *config.Config, d deps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	walletHandler := wallet.NewHandler(a.wallets)
	giftHandler := gift.NewHandler(a.gifts)
	roomHandler := room.NewHandler(a.rooms)
	treasureHandler := treasure.NewHandler(a.treasure)
	agencyHandler := agency.NewHandler(a.agencies)
	rechargeHandler := recharge.NewHandler(a.recharges)
	withdrawalHandler := withdrawal.NewHandler(a.withdrawals)
	contestHandler := contest.NewHandler(a.contests)
	adminHandler := admin.NewHandler(a.admin)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	if d.hub != nil {
		rtHandler := realtime.NewHandler(d.hub, ratelimit.New(d.redis, "rt_subscribe", 120, time.Minute), cfg.AllowedOrigins)
		r.With(authMiddleware).Get("/ws", rtHandler.WebSocket)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
			"ledger":  cfg.LedgerDriver,
			"redis":   database.RedisStatus(r.Context(), d.redis),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, middleware.RequireAdmin())
		r.Handle("/debug/vars", expvar.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/gifts", giftHandler.Routes(authMiddleware))
		r.Mount("/rooms", roomHandler.Routes(authMiddleware, treasureHandler.Mount, contestHandler.Mount))
		r.Mount("/contest", contestHandler.Routes(authMiddleware))
		r.Mount("/agency", agencyHandler.Routes(authMiddleware))
		r.Mount("/recharge", rechargeHandler.Routes(authMiddleware))
		r.Mount("/withdrawals", withdrawalHandler.Routes(authMiddleware))
		r.Mount("/admin", adminHandler.Routes(authMiddleware, admin.Mounts{
			Withdrawals: withdrawalHandler.AdminRoutes(),
			Contest:     contestHandler.AdminRoutes(),
		}))
	})

	return r
}
