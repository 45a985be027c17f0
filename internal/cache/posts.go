package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quill/internal/observability"

	"github.com/redis/go-redis/v9"
)

const postKeyPrefix = "post:%s"

// PostTTL bounds staleness of cached single-post reads.
const PostTTL = 5 * time.Minute

// PostKey returns the cache key for a post identifier.
func PostKey(id string) string {
	return fmt.Sprintf(postKeyPrefix, id)
}

// Posts wraps an optional Redis client with JSON helpers for post caching.
// A nil client turns every operation into a no-op.
type Posts struct {
	client *redis.Client
}

// NewPosts creates a post cache backed by the given client (may be nil).
func NewPosts(client *redis.Client) *Posts {
	return &Posts{client: client}
}

// GetJSON attempts to get the key and unmarshal into dest.
// Returns (true, nil) on a hit, (false, nil) on a miss.
func (p *Posts) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if p.client == nil {
		return false, nil
	}
	s, err := p.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with the given TTL.
func (p *Posts) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if p.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, key, b, ttl).Err()
}

// Aside tries the cache first; on a miss it calls fetch (which must populate
// dest) and stores the result best-effort. Cache read failures fall through to
// fetch rather than failing the request.
func (p *Posts) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := p.GetJSON(ctx, key, dest)
	if err == nil && found {
		observability.CacheRequests.WithLabelValues("hit").Inc()
		return nil
	}
	observability.CacheRequests.WithLabelValues("miss").Inc()

	if err := fetch(); err != nil {
		return err
	}

	_ = p.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate drops the cache entry for a post.
func (p *Posts) Invalidate(ctx context.Context, id string) {
	if p.client != nil {
		p.client.Del(ctx, PostKey(id))
	}
}
