package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/config"
	"sourzka.org/internal/gst"
	"sourzka.org/internal/httpapi"
	"sourzka.org/internal/marketplace"
	"sourzka.org/internal/obs"
	"sourzka.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg := config.Load()

	logger, err := obs.InitLogger(obs.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "sourzka-api",
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store     marketplace.Store
		readiness httpapi.Pinger
	)
	if cfg.DatabaseURL != "" {
		pgStore, err := pg.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open db", zap.Error(err))
		}
		defer func() { _ = pgStore.Close() }()
		store, readiness = pgStore, pgStore
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = marketplace.NewInMemory()
	}

	var lookup gst.Lookup = gst.NewPortalClient(cfg.GSTPortalURL, cfg.GSTTimeout)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, GSTIN lookups are not cached", zap.Error(err))
		} else {
			lookup = gst.NewCache(lookup, rdb, cfg.GSTCacheTTL)
		}
		cancel()
		defer func() { _ = rdb.Close() }()
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET not set, using an ephemeral secret; sessions end on restart")
	}
	codec, err := auth.NewCodec(secret, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	policy, err := cfg.Policy()
	if err != nil {
		logger.Fatal("product gates", zap.Error(err))
	}

	svc, err := marketplace.NewService(store, codec, auth.NewHasher(cfg.BcryptCost, cfg.HashWorkers),
		marketplace.WithPolicy(policy),
		marketplace.WithLegalNameLookup(lookup),
	)
	if err != nil {
		logger.Fatal("marketplace service", zap.Error(err))
	}

	api := httpapi.New(svc, auth.NewAuthorizer(codec, store), httpapi.Options{
		Version:      version,
		Readiness:    readiness,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigins:  cfg.CORSOrigins,
		LocalOrigins: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting sourzka-api",
			zap.String("version", version),
			zap.String("addr", srv.Addr),
			zap.String("update_gate", string(policy.Update)),
			zap.String("toggle_gate", string(policy.Toggle)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
