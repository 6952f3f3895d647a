package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gameshelf/internal/cache"
	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/metrics"
	"gameshelf/internal/preferences"
	"gameshelf/internal/services"
	"gameshelf/internal/textutil"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTTL                = 5 * time.Minute
	DefaultMaxEntries         = 100
	DefaultDuplicateThreshold = 0.85
	DefaultPageSize           = 20
	MaxPageSize               = 50
)

// PreferenceLoader supplies per-user preferences. *preferences.Store
// satisfies it.
type PreferenceLoader interface {
	Load(ctx context.Context, userID string) (preferences.Preferences, string)
}

// Options configures an Orchestrator.
type Options struct {
	Catalogs           catalog.Set
	Preferences        PreferenceLoader
	Cache              *cache.Cache[Result]
	DuplicateThreshold float64
	Similarity         textutil.SimilarityFunc
	Logger             *slog.Logger
}

// Request carries per-call overrides. Zero values defer to the user's
// preferences and then to the defaults.
type Request struct {
	Strategy string
	UserID   string
}

// Result is one page of unified search output.
type Result struct {
	Games           []games.Record `json:"games"`
	Total           int            `json:"total"`
	Page            int            `json:"page"`
	PageSize        int            `json:"pageSize"`
	HasNextPage     bool           `json:"hasNextPage"`
	HasPreviousPage bool           `json:"hasPreviousPage"`
	Sources         []string       `json:"sources"`
	Strategy        string         `json:"strategy"`
}

// Orchestrator runs free-text searches across both catalogs.
type Orchestrator struct {
	catalogs   catalog.Set
	prefs      PreferenceLoader
	cache      *cache.Cache[Result]
	threshold  float64
	similarity textutil.SimilarityFunc
	logger     *slog.Logger
}

// New builds an Orchestrator, filling unset options with defaults.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		catalogs:   opts.Catalogs,
		prefs:      opts.Preferences,
		cache:      opts.Cache,
		threshold:  opts.DuplicateThreshold,
		similarity: opts.Similarity,
		logger:     logging.NewComponentLogger(opts.Logger, "search"),
	}
	if o.cache == nil {
		o.cache = cache.New[Result](cache.Options{Name: "search", TTL: DefaultTTL, MaxEntries: DefaultMaxEntries})
	}
	if o.threshold <= 0 {
		o.threshold = DefaultDuplicateThreshold
	}
	if o.similarity == nil {
		o.similarity = textutil.Similarity
	}
	return o
}

// sourceResult is one catalog's settled answer.
type sourceResult struct {
	source games.Source
	page   catalog.Page
	err    error
}

// Search runs query with the strategy chosen by req, the user's preferences,
// or combined. Only ErrAllSourcesUnavailable and ErrValidation are returned.
func (o *Orchestrator) Search(ctx context.Context, query string, page, pageSize int, req Request) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, services.Wrap(services.ErrValidation, "search", "search", "query is empty", nil)
	}
	if req.Strategy != "" && !preferences.ValidStrategy(req.Strategy) {
		return Result{}, services.Wrap(services.ErrValidation, "search", "search", fmt.Sprintf("unknown strategy %q", req.Strategy), nil)
	}
	page, pageSize = clampPage(page, pageSize)

	prefs := preferences.Defaults()
	if o.prefs != nil {
		prefs, _ = o.prefs.Load(ctx, req.UserID)
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = prefs.SearchStrategy
	}
	if !preferences.ValidStrategy(strategy) {
		strategy = preferences.StrategyCombined
	}

	preferred := prefs.PreferredSource
	if !preferred.Valid() {
		preferred = games.SourceA
	}

	logger := logging.WithContext(ctx, o.logger)
	key := cacheKey(query, page, pageSize, strategy, preferred)
	if prefs.CacheEnabled {
		if cached, ok := o.cache.Get(key); ok {
			metrics.SearchRequests.WithLabelValues(strategy, "cache_hit").Inc()
			return cached, nil
		}
	}

	var (
		result   Result
		degraded bool
		err      error
	)
	switch strategy {
	case preferences.StrategySourceAFirst:
		result, degraded, err = o.sourceFirst(ctx, games.SourceA, query, page, pageSize, prefs.FallbackEnabled)
	case preferences.StrategySourceBFirst:
		result, degraded, err = o.sourceFirst(ctx, games.SourceB, query, page, pageSize, prefs.FallbackEnabled)
	default:
		result, degraded, err = o.combined(ctx, preferred, query, page, pageSize)
	}
	if err != nil {
		metrics.SearchRequests.WithLabelValues(strategy, "error").Inc()
		logger.Error("search failed on every source",
			logging.Args(
				logging.String(logging.FieldEventType, "search_all_sources_failed"),
				logging.String("query", query),
				logging.String("strategy", strategy),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check catalog connectivity and breaker state in /api/stats"),
			)...,
		)
		return Result{}, err
	}

	result.Page = page
	result.PageSize = pageSize
	result.Strategy = strategy
	result.HasPreviousPage = page > 1
	result.HasNextPage = page*pageSize < result.Total
	if result.Games == nil {
		result.Games = []games.Record{}
	}

	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	metrics.SearchRequests.WithLabelValues(strategy, outcome).Inc()
	logger.Debug("search completed",
		logging.Args(
			logging.String("query", query),
			logging.String("strategy", strategy),
			logging.Strings("sources", result.Sources),
			logging.Int("results", len(result.Games)),
			logging.Int("total", result.Total),
		)...,
	)
	// A degraded page is not cached so the missing source is retried next time.
	if prefs.CacheEnabled && !degraded {
		o.cache.Set(key, result)
	}
	return result, nil
}

func (o *Orchestrator) sourceFirst(ctx context.Context, first games.Source, query string, page, pageSize int, fallback bool) (Result, bool, error) {
	primary := o.query(ctx, first, query, page, pageSize)
	if primary.err == nil {
		return Result{Games: primary.page.Records, Total: primary.page.Total, Sources: []string{first.Short()}}, false, nil
	}
	o.warnSource(ctx, primary, "falling back to the other catalog")
	if !fallback {
		return Result{}, false, services.Wrap(services.ErrAllSourcesUnavailable, "search", string(first), "fallback disabled", primary.err)
	}

	second := o.query(ctx, first.Other(), query, page, pageSize)
	if second.err != nil {
		o.warnSource(ctx, second, "no catalog answered")
		return Result{}, false, services.Wrap(services.ErrAllSourcesUnavailable, "search", "fallback", "", errors.Join(primary.err, second.err))
	}
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("search fallback decision",
		logging.Args(append(logging.DecisionAttrs("search_fallback", string(second.source), "primary catalog failed"),
			logging.String("query", query))...)...,
	)
	return Result{Games: second.page.Records, Total: second.page.Total, Sources: []string{second.source.Short()}}, true, nil
}

func (o *Orchestrator) combined(ctx context.Context, preferred games.Source, query string, page, pageSize int) (Result, bool, error) {
	if !preferred.Valid() {
		preferred = games.SourceA
	}
	half := pageSize / 2
	if half < 1 {
		half = 1
	}

	order := []games.Source{preferred, preferred.Other()}
	settled := make([]sourceResult, len(order))
	var g errgroup.Group
	for i, source := range order {
		g.Go(func() error {
			settled[i] = o.query(ctx, source, query, page, half)
			return nil
		})
	}
	_ = g.Wait()

	var (
		result  Result
		lists   [2][]games.Record
		failed  []error
		answers int
	)
	for i, sr := range settled {
		if sr.err != nil {
			o.warnSource(ctx, sr, "results served from the other catalog only")
			failed = append(failed, sr.err)
			continue
		}
		answers++
		lists[i] = sr.page.Records
		result.Total = max(result.Total, sr.page.Total)
		result.Sources = append(result.Sources, sr.source.Short())
	}
	if answers == 0 {
		return Result{}, false, services.Wrap(services.ErrAllSourcesUnavailable, "search", "combined", "", errors.Join(failed...))
	}
	result.Games = MergeResults(lists[0], lists[1], o.threshold, o.similarity)
	return result, len(failed) > 0, nil
}

func (o *Orchestrator) query(ctx context.Context, source games.Source, query string, page, pageSize int) sourceResult {
	c, ok := o.catalogs[source]
	if !ok {
		return sourceResult{source: source, err: services.Wrap(services.ErrConfiguration, "search", string(source), "catalog not configured", nil)}
	}
	p, err := c.Search(ctx, query, page, pageSize)
	return sourceResult{source: source, page: p, err: err}
}

func (o *Orchestrator) warnSource(ctx context.Context, sr sourceResult, impact string) {
	if errors.Is(sr.err, context.Canceled) {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), "catalog search failed", "search_source_failed",
		logging.String(logging.FieldSource, string(sr.source)),
		logging.Error(sr.err),
		logging.String(logging.FieldErrorHint, "check the catalog endpoint and credentials"),
		logging.String(logging.FieldImpact, impact),
	)
}

// CacheStats reports the result cache counters.
func (o *Orchestrator) CacheStats() cache.Stats { return o.cache.Stats() }

// ClearCache drops every cached page.
func (o *Orchestrator) ClearCache() int { return o.cache.Clear() }

// RunSweeper evicts expired pages every interval until ctx is done.
func (o *Orchestrator) RunSweeper(ctx context.Context, interval time.Duration) {
	o.cache.RunSweeper(ctx, interval)
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// cacheKey includes the preferred source for merged strategies, whose result
// order depends on it.
func cacheKey(query string, page, pageSize int, strategy string, preferred games.Source) string {
	key := fmt.Sprintf("%s|%d|%d|%s", strings.ToLower(query), page, pageSize, strategy)
	if strategy == preferences.StrategyCombined || strategy == preferences.StrategyParallel {
		key += "|" + string(preferred)
	}
	return key
}
