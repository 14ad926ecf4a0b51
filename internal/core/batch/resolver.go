package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ghinfo/ghinfo/internal/core/models"
	"github.com/ghinfo/ghinfo/internal/core/services"
)

// Per-kind failure descriptions joined into ItemOutcome.Error.
const (
	msgRepoInfoFailed      = "repository info fetch failed"
	msgReleasesFailed      = "releases fetch failed"
	msgLatestReleaseFailed = "latest release fetch failed"
)

// ErrWorkerPanic reports a panic inside a resolution goroutine. It is the
// only error that escapes a batch; upstream failures stay in the outcome.
var ErrWorkerPanic = errors.New("batch worker panicked")

// Resolver resolves the requested sub-resources of a single repository.
type Resolver struct {
	upstream services.Upstream
	logger   zerolog.Logger
}

// NewResolver creates a Resolver backed by upstream.
func NewResolver(upstream services.Upstream, logger zerolog.Logger) *Resolver {
	return &Resolver{upstream: upstream, logger: logger}
}

// Resolve fetches every field in fields for the repository raw. Upstream
// failures are folded into the returned outcome; the error is non-nil only
// for ErrWorkerPanic.
func (r *Resolver) Resolve(ctx context.Context, raw string, fields FieldSet) (models.ItemOutcome, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return models.ItemOutcome{Repo: raw, Error: services.ErrInvalidFormat.Error()}, nil
	}

	var (
		f fetched
		g errgroup.Group
	)
	if fields.Has(FieldRepoInfo) {
		goSafe(&g, func() error {
			f.repoInfo, f.repoInfoErr = r.upstream.RepoInfo(ctx, ref.Owner, ref.Name)
			return nil
		})
	}
	if fields.Has(FieldReleases) {
		goSafe(&g, func() error {
			f.releases, f.releasesErr = r.upstream.Releases(ctx, ref.Owner, ref.Name)
			return nil
		})
	}
	if fields.Has(FieldLatestRelease) {
		goSafe(&g, func() error {
			f.latest, f.latestErr = r.upstream.LatestRelease(ctx, ref.Owner, ref.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.ItemOutcome{}, fmt.Errorf("resolving %s: %w", raw, err)
	}

	for _, err := range []error{f.repoInfoErr, f.releasesErr, f.latestErr} {
		if err != nil {
			r.logger.Warn().Err(err).Str("repo", raw).Msg("sub-resource fetch failed")
		}
	}
	return combine(raw, fields, f), nil
}

// fetched holds the per-kind results of one resolution.
type fetched struct {
	repoInfo    *models.RepoInfo
	repoInfoErr error
	releases    []models.Release
	releasesErr error
	latest      *models.LatestRelease
	latestErr   error
}

// combine folds per-kind results into an outcome. Data of kinds that
// succeeded is kept even when another kind failed.
func combine(repo string, fields FieldSet, f fetched) models.ItemOutcome {
	out := models.ItemOutcome{Repo: repo}
	var failed []string

	if fields.Has(FieldRepoInfo) {
		if f.repoInfoErr != nil {
			failed = append(failed, msgRepoInfoFailed)
		} else {
			out.RepoInfo = f.repoInfo
		}
	}
	if fields.Has(FieldReleases) {
		if f.releasesErr != nil {
			failed = append(failed, msgReleasesFailed)
		} else {
			out.Releases = f.releases
			if out.Releases == nil {
				out.Releases = []models.Release{}
			}
		}
	}
	if fields.Has(FieldLatestRelease) {
		if f.latestErr != nil {
			failed = append(failed, msgLatestReleaseFailed)
		} else {
			out.LatestRelease = f.latest
		}
	}

	out.Success = len(failed) == 0
	out.Error = strings.Join(failed, "; ")
	return out
}

// goSafe runs fn on g and turns a panic into ErrWorkerPanic.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%w: %v", ErrWorkerPanic, p)
			}
		}()
		return fn()
	})
}
