// Command seed-admins provisions staff accounts from a JSON file or flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"sourzka.org/internal/apperr"
	"sourzka.org/internal/auth"
	"sourzka.org/internal/config"
	"sourzka.org/internal/marketplace"
	"sourzka.org/internal/obs"
	"sourzka.org/internal/store/pg"
)

func main() {
	cfg := config.Load()
	var (
		dsn      = flag.String("dsn", cfg.DatabaseURL, "PostgreSQL DSN")
		file     = flag.String("file", "", "JSON array of {email,name,password,role}")
		email    = flag.String("email", "", "admin email")
		name     = flag.String("name", "", "admin name")
		password = flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
		role     = flag.String("role", string(auth.RoleStaff), "STAFF, MODERATOR or SUPERADMIN")
	)
	flag.Parse()

	logger, err := obs.InitLogger(obs.LogConfig{Level: cfg.LogLevel, Environment: cfg.Environment, ServiceName: "seed-admins"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		logger.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}

	var admins []marketplace.CreateAdminInput
	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			logger.Fatal("read admins file", zap.Error(err))
		}
		if err := json.Unmarshal(raw, &admins); err != nil {
			logger.Fatal("parse admins file", zap.Error(err))
		}
	}
	if *email != "" {
		admins = append(admins, marketplace.CreateAdminInput{
			Email:    *email,
			Name:     *name,
			Password: *password,
			Role:     auth.Role(*role),
		})
	}
	if len(admins) == 0 {
		logger.Fatal("nothing to seed: pass -file or -email")
	}

	store, err := pg.Open(*dsn)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer store.Close()

	// No sessions are issued here.
	codec, err := auth.NewCodec("seed-admins")
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	svc, err := marketplace.NewService(store, codec, auth.NewHasher(cfg.BcryptCost, cfg.HashWorkers))
	if err != nil {
		logger.Fatal("marketplace service", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, skipped := 0, 0
	for _, in := range admins {
		admin, err := svc.CreateAdmin(ctx, in)
		switch {
		case err == nil:
			created++
			logger.Info("admin created", zap.String("id", admin.ID), zap.String("email", admin.Email), zap.String("role", admin.Role.String()))
		case errors.Is(err, apperr.Conflict("")):
			skipped++
			logger.Info("admin exists, skipped", zap.String("email", in.Email))
		default:
			logger.Fatal("create admin", zap.String("email", in.Email), zap.Error(err))
		}
	}
	logger.Info("seeding finished", zap.Int("created", created), zap.Int("skipped", skipped))
}
