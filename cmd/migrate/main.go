package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"sourzka.org/internal/config"
	"sourzka.org/internal/migrate"
	"sourzka.org/internal/store/pg"
	"sourzka.org/migrations"
)

func main() {
	log.SetFlags(0)
	cfg := config.Load()
	var (
		dsn            = flag.String("dsn", cfg.DatabaseURL, "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "", "Directory of SQL migrations (embedded set when empty)")
		seedsPath      = flag.String("seeds", "", "Directory of SQL seeds (embedded set when empty)")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or DATABASE_URL")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|pending]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), source(*migrationsPath, migrations.SQL()), source(*seedsPath, migrations.Seeds()))

	var names []string
	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		names, err = mgr.Status(ctx)
	case "pending":
		names, err = mgr.Pending(ctx)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func source(dir string, embedded fs.FS) fs.FS {
	if dir == "" {
		return embedded
	}
	return os.DirFS(dir)
}
