package idmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gameshelf/internal/cache"
	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/metrics"
	"gameshelf/internal/overrides"
	"gameshelf/internal/services"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultThreshold      = 0.7
	DefaultCandidateLimit = 10
	DefaultConcurrency    = 4
	DefaultTTL            = 24 * time.Hour
)

var errNoMatch = errors.New("no candidate cleared the confidence threshold")

// Options configures a Resolver.
type Options struct {
	Catalogs       catalog.Set
	Overrides      *overrides.Catalog
	Cache          *cache.Cache[games.IDMapping]
	Scorer         Scorer
	Threshold      float64
	CandidateLimit int
	Concurrency    int
	Now            func() time.Time
	Logger         *slog.Logger
}

// Resolver translates native IDs between the two catalogs.
type Resolver struct {
	catalogs       catalog.Set
	overrides      *overrides.Catalog
	cache          *cache.Cache[games.IDMapping]
	scorer         Scorer
	threshold      float64
	candidateLimit int
	concurrency    int
	now            func() time.Time
	logger         *slog.Logger
}

// New builds a Resolver, filling unset options with defaults.
func New(opts Options) *Resolver {
	r := &Resolver{
		catalogs:       opts.Catalogs,
		overrides:      opts.Overrides,
		cache:          opts.Cache,
		scorer:         opts.Scorer,
		threshold:      opts.Threshold,
		candidateLimit: opts.CandidateLimit,
		concurrency:    opts.Concurrency,
		now:            opts.Now,
		logger:         logging.NewComponentLogger(opts.Logger, "idmap"),
	}
	if r.overrides == nil {
		r.overrides = overrides.NewCatalog("", opts.Logger)
	}
	if r.cache == nil {
		r.cache = cache.New[games.IDMapping](cache.Options{Name: "mapping", TTL: DefaultTTL, Now: opts.Now})
	}
	if r.scorer == nil {
		r.scorer = DefaultScorer()
	}
	if r.threshold <= 0 {
		r.threshold = DefaultThreshold
	}
	if r.candidateLimit <= 0 {
		r.candidateLimit = DefaultCandidateLimit
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Resolve maps id onto the other catalog. It reports false when no override
// exists and no candidate scores above the threshold; it never guesses and
// never returns an error.
func (r *Resolver) Resolve(ctx context.Context, id games.ID) (games.IDMapping, bool) {
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldGameID, id.String()))
	if !id.Source.Valid() || !id.InRange() {
		logger.Debug("mapping skipped for invalid id")
		metrics.MappingResolutions.WithLabelValues("unmatched").Inc()
		return games.IDMapping{}, false
	}
	target := id.Source.Other()

	override, ok, err := r.overrides.Lookup(id, target)
	if err != nil {
		logging.WarnWithContext(logger, "override file unreadable", "overrides_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the JSON in resolution.overrides_path"),
			logging.String(logging.FieldImpact, "only built-in overrides are applied"),
		)
	}
	if ok {
		metrics.MappingResolutions.WithLabelValues("override").Inc()
		logger.Debug("mapping decision", logging.Args(logging.DecisionAttrs("id_mapping", "override", override.To.String())...)...)
		return games.IDMapping{
			From:        id,
			To:          override.To,
			GameName:    override.Name,
			Confidence:  1,
			LastUpdated: r.now(),
			Override:    true,
		}, true
	}

	key := id.String() + ">" + string(target)
	mapping, hit, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (games.IDMapping, error) {
		return r.match(ctx, logger, id, target)
	})
	switch {
	case err == nil && hit:
		metrics.MappingResolutions.WithLabelValues("cache").Inc()
		return mapping, true
	case err == nil:
		metrics.MappingResolutions.WithLabelValues("fuzzy").Inc()
		return mapping, true
	case errors.Is(err, errNoMatch), errors.Is(err, services.ErrNotFound):
		metrics.MappingResolutions.WithLabelValues("unmatched").Inc()
		logger.Debug("mapping decision", logging.Args(logging.DecisionAttrs("id_mapping", "unmatched", err.Error())...)...)
		return games.IDMapping{}, false
	default:
		metrics.MappingResolutions.WithLabelValues("error").Inc()
		logging.WarnWithContext(logger, "mapping lookup failed", "mapping_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "upstream catalog error; the mapping is retried on the next request"),
			logging.String(logging.FieldImpact, "no cross-catalog mapping returned"),
		)
		return games.IDMapping{}, false
	}
}

func (r *Resolver) match(ctx context.Context, logger *slog.Logger, id games.ID, target games.Source) (games.IDMapping, error) {
	origin, ok := r.catalogs[id.Source]
	if !ok {
		return games.IDMapping{}, services.Wrap(services.ErrConfiguration, "idmap", "resolve", fmt.Sprintf("no catalog for %s", id.Source), nil)
	}
	dest, ok := r.catalogs[target]
	if !ok {
		return games.IDMapping{}, services.Wrap(services.ErrConfiguration, "idmap", "resolve", fmt.Sprintf("no catalog for %s", target), nil)
	}

	source, err := origin.Get(ctx, id.Native)
	if err != nil {
		return games.IDMapping{}, err
	}
	if source.Name == "" {
		return games.IDMapping{}, errNoMatch
	}
	page, err := dest.Search(ctx, source.Name, 1, r.candidateLimit)
	if err != nil {
		return games.IDMapping{}, err
	}

	var (
		best      games.Record
		bestScore = -1.0
	)
	for _, candidate := range page.Records {
		if candidate.IsPlaceholder() || candidate.ID.Native == 0 {
			continue
		}
		score := r.scorer.Score(source, candidate)
		logger.Debug("candidate scored",
			logging.String("candidate", candidate.ID.String()),
			logging.String("candidate_name", candidate.Name),
			logging.Float64("score", score),
		)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if bestScore <= r.threshold {
		logger.Info("mapping rejected",
			logging.Args(append(logging.DecisionAttrs("id_mapping", "rejected", "best score at or below threshold"),
				logging.Float64("best_score", max(bestScore, 0)),
				logging.Float64("threshold", r.threshold),
				logging.Int("candidates", len(page.Records)),
			)...)...,
		)
		return games.IDMapping{}, errNoMatch
	}

	logger.Info("mapping accepted",
		logging.Args(append(logging.DecisionAttrs("id_mapping", "accepted", "best score above threshold"),
			logging.String("to", best.ID.String()),
			logging.Float64("confidence", bestScore),
		)...)...,
	)
	return games.IDMapping{
		From:        id,
		To:          games.NewID(target, best.ID.Native),
		GameName:    source.Name,
		Confidence:  bestScore,
		LastUpdated: r.now(),
	}, nil
}

// ResolveMany resolves ids with bounded concurrency. IDs that fail or find no
// confident match are logged and omitted from the result.
func (r *Resolver) ResolveMany(ctx context.Context, ids []games.ID) map[games.ID]games.IDMapping {
	out := make(map[games.ID]games.IDMapping, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	seen := make(map[games.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			mapping, ok := r.Resolve(gctx, id)
			if !ok {
				r.logger.Debug("batch mapping skipped", logging.String(logging.FieldGameID, id.String()))
				return nil
			}
			mu.Lock()
			out[id] = mapping
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ClearCache drops every cached mapping and returns how many were removed.
func (r *Resolver) ClearCache() int {
	return r.cache.Clear()
}

// CacheStats reports the mapping cache counters.
func (r *Resolver) CacheStats() cache.Stats {
	return r.cache.Stats()
}

// Sweep removes expired mappings.
func (r *Resolver) Sweep() int {
	return r.cache.Sweep()
}
