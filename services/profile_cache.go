package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/forms-api/utils"
)

// ProfileCache stores lookup results between submissions. Implementations
// must swallow their own errors; a miss is always an acceptable answer.
type ProfileCache interface {
	Get(ctx context.Context, username string) (*XProfile, bool)
	Set(ctx context.Context, username string, profile *XProfile, ttl time.Duration)
}

const profileKeyPrefix = "xprofile:"

// RedisProfileCache keeps profiles as JSON strings under xprofile:<username>.
type RedisProfileCache struct {
	rdb *redis.Client
}

// NewRedisProfileCache parses a redis:// URL. The connection is lazy, so an
// unreachable server only shows up as cache misses.
func NewRedisProfileCache(rawURL string) (*RedisProfileCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisProfileCache{rdb: redis.NewClient(opt)}, nil
}

func profileKey(username string) string {
	return profileKeyPrefix + strings.ToLower(username)
}

func (c *RedisProfileCache) Get(ctx context.Context, username string) (*XProfile, bool) {
	raw, err := c.rdb.Get(ctx, profileKey(username)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			utils.InfoLogger.WithError(err).Debug("profile cache get failed")
		}
		return nil, false
	}
	var p XProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisProfileCache) Set(ctx context.Context, username string, profile *XProfile, ttl time.Duration) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, profileKey(username), raw, ttl).Err(); err != nil {
		utils.InfoLogger.WithError(err).Debug("profile cache set failed")
	}
}

func (c *RedisProfileCache) Close() error {
	return c.rdb.Close()
}
