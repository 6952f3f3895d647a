package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"gameshelf/internal/bulk"
	"gameshelf/internal/cache"
	"gameshelf/internal/catalog"
	"gameshelf/internal/catalog/igdb"
	"gameshelf/internal/catalog/rawg"
	"gameshelf/internal/config"
	"gameshelf/internal/games"
	"gameshelf/internal/idmap"
	"gameshelf/internal/logging"
	"gameshelf/internal/overrides"
	"gameshelf/internal/preferences"
	"gameshelf/internal/search"
	"gameshelf/internal/services"
	"gameshelf/internal/validation"
)

// Option customizes Service construction.
type Option func(*builder)

type builder struct {
	catalogs []catalog.Catalog
	now      func() time.Time
}

// WithCatalogs replaces the HTTP catalog clients, typically with fakes.
// The supplied catalogs are still wrapped in guards.
func WithCatalogs(catalogs ...catalog.Catalog) Option {
	return func(b *builder) { b.catalogs = catalogs }
}

// WithClock overrides the clock used by the caches and components.
func WithClock(now func() time.Time) Option {
	return func(b *builder) { b.now = now }
}

// Service bundles the resolution components built from one configuration.
type Service struct {
	Resolver    *idmap.Resolver
	Bulk        *bulk.Fetcher
	Validation  *validation.Pipeline
	Search      *search.Orchestrator
	Preferences *preferences.Store

	cfg      *config.Config
	guards   map[games.Source]*catalog.Guard
	mappings *cache.Cache[games.IDMapping]
	profile  *preferences.ProfileBackend
	logger   *slog.Logger

	closeOnce sync.Once
}

// New builds every component from cfg. A profile database that cannot be
// opened disables that preference tier instead of failing.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	b := &builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	logger = logging.NewComponentLogger(logger, "resolution")

	upstream := b.catalogs
	if len(upstream) == 0 {
		clients, err := httpCatalogs(cfg)
		if err != nil {
			return nil, err
		}
		upstream = clients
	}

	svc := &Service{
		cfg:    cfg,
		guards: make(map[games.Source]*catalog.Guard, len(upstream)),
		logger: logger,
	}
	guarded := make([]catalog.Catalog, 0, len(upstream))
	for _, c := range upstream {
		g := catalog.NewGuard(c, guardOptions(cfg, c.Source(), logger))
		svc.guards[c.Source()] = g
		guarded = append(guarded, g)
	}
	catalogs := catalog.NewSet(guarded...)

	svc.mappings = cache.New[games.IDMapping](cache.Options{Name: "mapping", TTL: cfg.Cache.MappingTTL(), Now: b.now})
	svc.Resolver = idmap.New(idmap.Options{
		Catalogs:       catalogs,
		Overrides:      overrides.NewCatalog(cfg.Resolution.OverridesPath, logger),
		Cache:          svc.mappings,
		Threshold:      cfg.Resolution.MappingThreshold,
		CandidateLimit: cfg.Resolution.CandidateLimit,
		Concurrency:    cfg.Resolution.Concurrency,
		Now:            b.now,
		Logger:         logger,
	})

	svc.Bulk = bulk.New(bulk.Options{
		Catalogs:         catalogs,
		Cache:            cache.New[bulk.Batch](cache.Options{Name: "bulk", TTL: cfg.Cache.BulkTTL(), Now: b.now}),
		Concurrency:      cfg.Resolution.Concurrency,
		PreloadBatchSize: cfg.Resolution.PreloadBatchSize,
		PreloadDelay:     delay(cfg.Resolution.PreloadDelay()),
		Logger:           logger,
	})

	svc.Validation = validation.New(validation.Options{
		Catalogs:   catalogs,
		Bulk:       svc.Bulk,
		Cache:      cache.New[games.ValidationOutcome](cache.Options{Name: "validation", TTL: cfg.Cache.ValidationTTL(), Now: b.now}),
		MaxRetries: cfg.Resolution.MaxRetries,
		RetryBase:  delay(cfg.Resolution.RetryBase()),
		ChunkSize:  cfg.Resolution.ValidationChunkSize,
		ChunkDelay: delay(cfg.Resolution.ChunkDelay()),
		Now:        b.now,
		Logger:     logger,
	})

	svc.Preferences = svc.buildPreferences()

	svc.Search = search.New(search.Options{
		Catalogs:    catalogs,
		Preferences: svc.Preferences,
		Cache: cache.New[search.Result](cache.Options{
			Name:       "search",
			TTL:        cfg.Cache.SearchTTL(),
			MaxEntries: cfg.Cache.SearchMaxEntries,
			Now:        b.now,
		}),
		DuplicateThreshold: cfg.Resolution.DuplicateThreshold,
		Logger:             logger,
	})
	return svc, nil
}

func httpCatalogs(cfg *config.Config) ([]catalog.Catalog, error) {
	a, err := igdb.New(cfg.CatalogA.ProxyURL, cfg.CatalogA.Endpoint,
		igdb.WithHTTPClient(&http.Client{Timeout: cfg.CatalogA.Timeout()}),
		igdb.WithImageBaseURL(cfg.CatalogA.ImageBaseURL),
		igdb.WithMaxBatch(cfg.CatalogA.MaxBatch),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolution", "catalog A", "", err)
	}
	b, err := rawg.New(cfg.CatalogB.APIKey, cfg.CatalogB.BaseURL,
		rawg.WithHTTPClient(&http.Client{Timeout: cfg.CatalogB.Timeout()}),
		rawg.WithMaxBatch(cfg.CatalogB.MaxBatch),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolution", "catalog B", "", err)
	}
	return []catalog.Catalog{a, b}, nil
}

func guardOptions(cfg *config.Config, source games.Source, logger *slog.Logger) catalog.GuardOptions {
	opts := catalog.GuardOptions{
		FailureRatio:     cfg.Breaker.FailureRatio,
		MinRequests:      uint32(max(cfg.Breaker.MinRequests, 0)),
		Interval:         time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
		OpenTimeout:      time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		HalfOpenRequests: uint32(max(cfg.Breaker.HalfOpenRequests, 0)),
		Logger:           logger,
	}
	switch source {
	case games.SourceA:
		opts.Timeout = cfg.CatalogA.Timeout()
		opts.RequestsPerSecond = cfg.CatalogA.RequestsPerSecond
		opts.Burst = cfg.CatalogA.Burst
	case games.SourceB:
		opts.Timeout = cfg.CatalogB.Timeout()
		opts.RequestsPerSecond = cfg.CatalogB.RequestsPerSecond
		opts.Burst = cfg.CatalogB.Burst
	}
	return opts
}

func (s *Service) buildPreferences() *preferences.Store {
	pc := s.cfg.Preferences
	defaults := preferences.Defaults()
	if source, err := games.ParseSource(pc.DefaultSource); err == nil {
		defaults.PreferredSource = source
	}
	if preferences.ValidStrategy(pc.DefaultStrategy) {
		defaults.SearchStrategy = pc.DefaultStrategy
	}

	backends := make([]preferences.Backend, 0, 3)
	if pc.ProfileDBPath != "" {
		profile, err := preferences.OpenProfileBackend(pc.ProfileDBPath)
		if err != nil {
			logging.WarnWithContext(s.logger, "profile preference tier disabled", "preferences_profile_unavailable",
				logging.String("path", pc.ProfileDBPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check preferences.profile_db_path permissions"),
				logging.String(logging.FieldImpact, "preferences use the cookie and local tiers only"),
			)
		} else {
			s.profile = profile
			backends = append(backends, profile)
		}
	}
	if pc.CookieName != "" {
		backends = append(backends, preferences.NewCookieBackend(pc.CookieName, pc.ConsentCookie))
	}
	if pc.LocalPath != "" {
		backends = append(backends, preferences.NewLocalBackend(pc.LocalPath))
	}
	return preferences.NewStore(defaults, s.logger, backends...)
}

// delay maps a configured duration onto component options, where zero means
// the component default and a negative value disables the wait.
func delay(d time.Duration) time.Duration {
	if d <= 0 {
		return -1
	}
	return d
}

// Run sweeps every cache on the configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	interval := s.cfg.Cache.SweepInterval()
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	var wg sync.WaitGroup
	wg.Go(func() { s.Bulk.RunSweeper(ctx, interval) })
	wg.Go(func() { s.Search.RunSweeper(ctx, interval) })
	wg.Go(func() { s.mappings.RunSweeper(ctx, interval) })
	wg.Go(func() { s.Validation.RunMaintenance(ctx, interval) })
	wg.Wait()
}

// Close stops pending validation retries and closes the profile database.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Validation.Close()
		s.Validation.Drain()
		if s.profile != nil {
			err = s.profile.Close()
		}
	})
	return err
}

// Stats is a point-in-time report of cache, validation, and breaker state.
type Stats struct {
	Caches     []cache.Stats     `json:"caches"`
	Validation validation.Stats  `json:"validation"`
	Breakers   map[string]string `json:"breakers"`
}

// Stats reports the current counters.
func (s *Service) Stats() Stats {
	breakers := make(map[string]string, len(s.guards))
	for source, g := range s.guards {
		breakers[string(source)] = g.State()
	}
	return Stats{
		Caches: []cache.Stats{
			s.Resolver.CacheStats(),
			s.Bulk.CacheStats(),
			s.Validation.CacheStats(),
			s.Search.CacheStats(),
		},
		Validation: s.Validation.Stats(),
		Breakers:   breakers,
	}
}

// ClearCaches drops every cached entry and returns how many were removed.
func (s *Service) ClearCaches() int {
	return s.Resolver.ClearCache() + s.Bulk.ClearCache() + s.Search.ClearCache() + s.Validation.ClearCache()
}
