package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache is a cache-aside layer between the module and the upstream
// Directory. A miss falls through to the directory and the result is
// written back with a TTL, so repeated joins by the same user do not hammer
// the identity store.
type redisCache struct {
	client *redis.Client
	dir    Directory
	prefix string
	ttl    time.Duration
}

func newRedisCache(client *redis.Client, dir Directory, prefix string, ttl time.Duration) *redisCache {
	if prefix == "" {
		prefix = "profile:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisCache{client: client, dir: dir, prefix: prefix, ttl: ttl}
}

// Lookup implements Directory with the cache-aside pattern. Cache errors
// degrade to a direct directory lookup; they never fail the request.
func (c *redisCache) Lookup(ctx context.Context, username string) (Profile, error) {
	key := c.prefix + username

	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var p Profile
		if jsonErr := json.Unmarshal([]byte(data), &p); jsonErr == nil {
			return p, nil
		}
		// Corrupt entry; fall through and overwrite.
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return Profile{}, fmt.Errorf("profile cache get: %w", err)
	}

	p, err := c.dir.Lookup(ctx, username)
	if err != nil {
		return Profile{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		// Best-effort write-back.
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return p, nil
}
