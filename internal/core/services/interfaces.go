package services

import (
	"context"
	"time"

	"github.com/ghinfo/ghinfo/internal/core/models"
)

// Upstream fetches repository data from the hosting API.
// Every method fails with *UpstreamError and never retries.
type Upstream interface {
	// RepoInfo returns the repository's metadata.
	RepoInfo(ctx context.Context, owner, name string) (*models.RepoInfo, error)

	// Releases returns all releases, newest first as upstream orders them.
	// A repository without releases yields an empty, non-nil slice.
	Releases(ctx context.Context, owner, name string) ([]models.Release, error)

	// LatestRelease returns the release upstream marks as latest.
	LatestRelease(ctx context.Context, owner, name string) (*models.LatestRelease, error)
}

// Cache is a concurrency-safe key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. An expired entry is a miss.
	Get(key string) (any, bool)

	// Set stores value under key until ttl has elapsed.
	Set(key string, value any, ttl time.Duration)
}
