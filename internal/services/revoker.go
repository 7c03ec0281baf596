package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker keeps a Redis denylist of logged-out token IDs. Entries carry
// a TTL equal to the token's remaining lifetime, so the list cleans itself up.
type TokenRevoker struct {
	redis *redis.Client
}

func NewTokenRevoker(redisClient *redis.Client) *TokenRevoker {
	return &TokenRevoker{redis: redisClient}
}

func (t *TokenRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return t.redis.Set(ctx, "revoked:"+jti, "1", ttl).Err()
}

func (t *TokenRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := t.redis.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
