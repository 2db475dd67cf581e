package auth

import (
	"context"
	"errors"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
)

// checkCacheTTLSeconds keeps resolved sessions in the local cache for a short
// while, so the access gate does not hit redis on every request. Logout evicts
// the entry, so destroyed sessions are rejected immediately.
const checkCacheTTLSeconds = 30

// LoginChecker is the read side of the session manager: it resolves tokens
// against redis, with a freecache layer in front.
type LoginChecker struct {
	cache       *freecache.Cache
	redisClient *redis.Client
}

func NewLoginChecker(cache *freecache.Cache, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		cache:       cache,
		redisClient: redisClient,
	}
}

func (c *LoginChecker) SessionUser(ctx context.Context, token string) (string, error) {
	if c.cache != nil {
		if username, err := c.cache.Get([]byte(token)); err == nil {
			return string(username), nil
		}
	}

	sessionKey := sessionKeyPrefix + token
	cmd := c.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSession
		}
		return "", err
	}

	username := cmd.Val()
	if username == "" {
		return "", ErrNoSession
	}

	if c.cache != nil {
		// best effort, redis remains the source of truth
		_ = c.cache.Set([]byte(token), []byte(username), checkCacheTTLSeconds)
	}

	return username, nil
}
