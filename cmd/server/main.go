package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/account-api/internal/api"
	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/mail"
	"github.com/dom/account-api/internal/repository"
	"github.com/dom/account-api/internal/repository/memory"
	"github.com/dom/account-api/internal/repository/postgres"
	repoRedis "github.com/dom/account-api/internal/repository/redis"
	"github.com/dom/account-api/internal/service"
	"github.com/dom/account-api/internal/websocket"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Redis backs the token blacklist and the rate limiter when reachable
	rdb := repoRedis.NewClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Printf("Redis not configured or unreachable; using in-process token blacklist, rate limiting disabled")
	}

	repos, err := openRepositories(cfg, rdb)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	// Mail goes through RabbitMQ to the mailer process
	var mailer mail.Dispatcher = mail.LogDispatcher{}
	if cfg.RabbitMQURL != "" {
		publisher := mail.NewPublisher(cfg.RabbitMQURL, cfg.MailQueue)
		defer publisher.Close()
		mailer = publisher
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize services
	services := service.NewServices(repos, cfg, mailer, hub)

	// Initialize router
	router := api.NewRouter(services, hub, cfg, rdb)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s (database driver %s)", cfg.Port, cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	hub.Stop()

	log.Println("Server stopped")
}

// openRepositories selects the store for cfg.DatabaseDriver. The memory store
// is seeded on start since nothing else can reach it.
func openRepositories(cfg *config.Config, rdb *goredis.Client) (*repository.Repositories, error) {
	var blacklist repository.TokenBlacklist = memory.NewTokenBlacklist()
	if rdb != nil {
		blacklist = repoRedis.NewTokenBlacklist(rdb)
	}

	if cfg.DatabaseDriver == "memory" {
		repos := memory.NewRepositories()
		repos.Blacklist = blacklist
		if err := service.Seed(context.Background(), repos, cfg); err != nil {
			return nil, err
		}
		return repos, nil
	}

	db, err := postgres.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return postgres.NewRepositories(db, blacklist), nil
}
