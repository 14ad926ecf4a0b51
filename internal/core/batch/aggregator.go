package batch

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ghinfo/ghinfo/internal/core/models"
)

// Aggregator resolves a list of repositories concurrently.
type Aggregator struct {
	resolver *Resolver
	limit    int
	logger   zerolog.Logger
}

// NewAggregator creates an Aggregator. limit caps the number of items
// resolved at once; zero or less runs every item in its own goroutine.
func NewAggregator(resolver *Resolver, limit int, logger zerolog.Logger) *Aggregator {
	return &Aggregator{resolver: resolver, limit: limit, logger: logger}
}

// Resolve returns one outcome per entry of repos, in input order, with
// duplicates kept. fieldNames is normalized once with ParseFields and shared
// by all items. Per-item failures are reported in the outcomes; the error is
// non-nil only when a worker panicked.
func (a *Aggregator) Resolve(ctx context.Context, repos []string, fieldNames []string) ([]models.ItemOutcome, error) {
	fields := ParseFields(fieldNames)
	outcomes := make([]models.ItemOutcome, len(repos))

	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for i, raw := range repos {
		goSafe(&g, func() error {
			outcome, err := a.resolver.Resolve(ctx, raw, fields)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Error().Err(err).Int("repos", len(repos)).Msg("batch aborted")
		return nil, err
	}

	a.logger.Debug().Int("repos", len(repos)).Msg("batch resolved")
	return outcomes, nil
}

// ResolveMap is Resolve keyed by repository. See IndexOutcomes.
func (a *Aggregator) ResolveMap(ctx context.Context, repos []string, fieldNames []string) (map[string]models.ItemOutcome, error) {
	outcomes, err := a.Resolve(ctx, repos, fieldNames)
	if err != nil {
		return nil, err
	}
	return IndexOutcomes(outcomes), nil
}

// IndexOutcomes keys outcomes by their Repo field; a later duplicate
// replaces an earlier one. A parsed identifier's Repo equals its
// "owner/name" form and an unparsable one keeps the caller's raw string.
func IndexOutcomes(outcomes []models.ItemOutcome) map[string]models.ItemOutcome {
	m := make(map[string]models.ItemOutcome, len(outcomes))
	for _, o := range outcomes {
		m[o.Repo] = o
	}
	return m
}
