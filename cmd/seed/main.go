package main

import (
	"context"
	"log"
	"time"

	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/repository/memory"
	"github.com/dom/account-api/internal/repository/postgres"
	"github.com/dom/account-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabaseDriver == "memory" {
		log.Fatalf("nothing to seed: the memory store is seeded by the server on start")
	}

	db, err := postgres.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Seeding never touches tokens
	repos := postgres.NewRepositories(db, memory.NewTokenBlacklist())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := service.Seed(ctx, repos, cfg); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}
	log.Println("Seed complete")
}
