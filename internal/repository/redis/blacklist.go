// Package redis stores invalidated token IDs in Redis so every API instance
// sees a logout immediately.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "token:blacklist:"

// TokenBlacklist keeps one key per token ID that expires once the token can no
// longer be refreshed.
type TokenBlacklist struct {
	client *goredis.Client
	now    func() time.Time
}

func NewTokenBlacklist(client *goredis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client, now: time.Now}
}

func (b *TokenBlacklist) Add(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		return false, nil
	}
	return b.client.SetNX(ctx, keyPrefix+tokenID, 1, ttl).Result()
}

func (b *TokenBlacklist) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
