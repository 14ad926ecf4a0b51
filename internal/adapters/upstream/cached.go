package upstream

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ghinfo/ghinfo/internal/core/models"
	"github.com/ghinfo/ghinfo/internal/core/services"
)

// Cache key prefixes, one per sub-resource so that they expire independently.
const (
	KeyRepoInfo      = "repo_info"
	KeyReleases      = "releases"
	KeyLatestRelease = "latest_release"
)

// CacheKey returns the composite key of a sub-resource of owner/name.
func CacheKey(kind, owner, name string) string {
	return kind + ":" + owner + ":" + name
}

// CachedClient consults a cache before delegating to another Upstream and
// stores successful results for a fixed TTL. Concurrent misses on the same
// key share a single upstream call. Failures are never cached.
type CachedClient struct {
	next   services.Upstream
	cache  services.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// NewCachedClient wraps next with cache.
func NewCachedClient(next services.Upstream, cache services.Cache, ttl time.Duration, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedClient) RepoInfo(ctx context.Context, owner, name string) (*models.RepoInfo, error) {
	return cached(ctx, c, CacheKey(KeyRepoInfo, owner, name), func(ctx context.Context) (*models.RepoInfo, error) {
		return c.next.RepoInfo(ctx, owner, name)
	})
}

func (c *CachedClient) Releases(ctx context.Context, owner, name string) ([]models.Release, error) {
	return cached(ctx, c, CacheKey(KeyReleases, owner, name), func(ctx context.Context) ([]models.Release, error) {
		return c.next.Releases(ctx, owner, name)
	})
}

func (c *CachedClient) LatestRelease(ctx context.Context, owner, name string) (*models.LatestRelease, error) {
	return cached(ctx, c, CacheKey(KeyLatestRelease, owner, name), func(ctx context.Context) (*models.LatestRelease, error) {
		return c.next.LatestRelease(ctx, owner, name)
	})
}

// cached serves key from the cache or runs fetch once for all concurrent
// callers. The shared fetch does not inherit the cancellation of whichever
// caller started it; a caller whose ctx ends stops waiting without
// affecting the others.
func cached[T any](ctx context.Context, c *CachedClient, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := lookup[T](c.cache, key); ok {
		c.logger.Debug().Str("key", key).Msg("cache hit")
		return v, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another flight may have filled the entry between the lookup and DoChan.
		if v, ok := lookup[T](c.cache, key); ok {
			return v, nil
		}
		c.logger.Debug().Str("key", key).Msg("cache miss")
		v, err := fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v, c.ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug().Str("key", key).Msg("shared in-flight fetch")
		}
		return res.Val.(T), nil
	}
}

func lookup[T any](cache services.Cache, key string) (T, bool) {
	var zero T
	v, ok := cache.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}
