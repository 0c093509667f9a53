package redis

import (
	"context"
	"time"

	"github.com/dom/account-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to cfg.RedisAddr and pings it. It returns nil when no
// address is configured or the server is unreachable; callers fall back to
// in-process state and disable rate limiting.
func NewClient(cfg *config.Config) *goredis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil
	}
	return client
}
