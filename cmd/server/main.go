package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/staffdesk/ops-system/internal/api"
	"github.com/staffdesk/ops-system/internal/core/service"
	"github.com/staffdesk/ops-system/internal/infrastructure/config"
	mongodb "github.com/staffdesk/ops-system/internal/infrastructure/db/mongo"
	redisdb "github.com/staffdesk/ops-system/internal/infrastructure/db/redis"
	"github.com/staffdesk/ops-system/internal/offline"
	"github.com/staffdesk/ops-system/internal/session"
	"github.com/staffdesk/ops-system/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Backing stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	// --- Repositories and adapters ---
	userRepo := mongodb.NewUserRepository(db)
	documentRepo := mongodb.NewDocumentRepository(db)
	saleRepo := mongodb.NewSaleRepository(db)
	shiftRepo := mongodb.NewShiftRepository(db)

	for _, ensure := range []func(context.Context) error{
		userRepo.EnsureIndexes,
		documentRepo.EnsureIndexes,
		saleRepo.EnsureIndexes,
		shiftRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn().Err(err).Msg("index creation failed")
		}
	}

	remote := mongodb.NewRecordSource(db)
	local := redisdb.NewMirrorStore(rdb)

	// --- Offline read path ---
	mirror := offline.NewMirrorWriter(0, local, log)
	mirror.Start(ctx)

	cache := offline.NewResultCache()
	fetcher := offline.NewFetcher(cache, local, remote, log,
		offline.WithRetries(cfg.Fetch.Retries),
		offline.WithRetryDelay(cfg.Fetch.RetryDelay),
		offline.WithFreshness(cfg.Fetch.CacheTTL),
		offline.WithMirror(mirror),
	)

	// --- Session store ---
	authBackend := mongodb.NewAuthBackend(userRepo)
	sessionStore := session.NewStore(authBackend, userRepo, log)
	sessionStore.Start(ctx)
	defer sessionStore.Close()

	// --- Services ---
	deps := api.Deps{
		Auth:      service.NewAuthService(userRepo, cfg.JWTSecret, 24*time.Hour),
		Documents: service.NewDocumentService(documentRepo, fetcher, log),
		Sales:     service.NewSalesService(saleRepo, fetcher, log),
		Schedule:  service.NewScheduleService(shiftRepo, fetcher, log),
		Users:     service.NewUserService(userRepo, log),
		Session:   sessionStore,
		Mongo:     db,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Logger:    log,
	}

	e := api.NewRouter(deps)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
