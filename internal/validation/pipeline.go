package validation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gameshelf/internal/bulk"
	"gameshelf/internal/cache"
	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/metrics"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxRetries = 3
	DefaultRetryBase  = time.Second
	DefaultChunkSize  = 10
	DefaultChunkDelay = 200 * time.Millisecond
)

// Options configures a Pipeline.
type Options struct {
	Catalogs   catalog.Set
	Bulk       *bulk.Fetcher
	Cache      *cache.Cache[games.ValidationOutcome]
	MaxRetries int
	// RetryBase is the linear backoff unit. Negative means retry immediately.
	RetryBase time.Duration
	ChunkSize int
	// ChunkDelay separates ValidateMany chunks. Negative disables it.
	ChunkDelay time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

// Pipeline validates IDs against their catalog and caches the outcomes.
type Pipeline struct {
	catalogs   catalog.Set
	bulk       *bulk.Fetcher
	cache      *cache.Cache[games.ValidationOutcome]
	maxRetries int
	retryBase  time.Duration
	chunkSize  int
	chunkDelay time.Duration
	now        func() time.Time
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[games.ID]*time.Timer
	closed  bool
	wg      sync.WaitGroup

	valid     atomic.Int64
	notFound  atomic.Int64
	invalidID atomic.Int64
	apiErrors atomic.Int64
}

// New builds a Pipeline, filling unset options with defaults.
func New(opts Options) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		catalogs:   opts.Catalogs,
		bulk:       opts.Bulk,
		cache:      opts.Cache,
		maxRetries: opts.MaxRetries,
		retryBase:  opts.RetryBase,
		chunkSize:  opts.ChunkSize,
		chunkDelay: opts.ChunkDelay,
		now:        opts.Now,
		logger:     logging.NewComponentLogger(opts.Logger, "validation"),
		ctx:        ctx,
		cancel:     cancel,
		pending:    make(map[games.ID]*time.Timer),
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.cache == nil {
		p.cache = cache.New[games.ValidationOutcome](cache.Options{Name: "validation", TTL: DefaultTTL, Now: p.now})
	}
	if p.maxRetries <= 0 {
		p.maxRetries = DefaultMaxRetries
	}
	if p.retryBase == 0 {
		p.retryBase = DefaultRetryBase
	}
	if p.chunkSize <= 0 {
		p.chunkSize = DefaultChunkSize
	}
	if p.chunkDelay == 0 {
		p.chunkDelay = DefaultChunkDelay
	}
	if p.bulk == nil {
		p.bulk = bulk.New(bulk.Options{Catalogs: opts.Catalogs, Logger: opts.Logger})
	}
	return p
}

// Validate returns the outcome for id. Cached outcomes, including provisional
// ApiError outcomes awaiting a retry, are served without network calls.
func (p *Pipeline) Validate(ctx context.Context, id games.ID) games.ValidationOutcome {
	if !id.Source.Valid() || !id.InRange() {
		if cached, ok := p.cache.Get(id.String()); ok {
			return cached
		}
		outcome := games.ValidationOutcome{
			GameID:        id,
			Reason:        games.ReasonInvalidID,
			LastValidated: p.now(),
		}
		p.cache.Set(id.String(), outcome)
		p.record(outcome)
		return outcome
	}

	outcome, hit, err := p.cache.GetOrLoad(ctx, id.String(), func(ctx context.Context) (games.ValidationOutcome, error) {
		return p.check(ctx, id, 0), nil
	})
	if err != nil {
		return games.ValidationOutcome{GameID: id, Reason: games.ReasonAPIError, LastValidated: p.now()}
	}
	if !hit && outcome.Reason == games.ReasonAPIError {
		p.scheduleRetry(id, outcome.RetryCount)
	}
	return outcome
}

// check performs one upstream existence check. previous is the number of
// ApiError attempts already made for id.
func (p *Pipeline) check(ctx context.Context, id games.ID, previous int) games.ValidationOutcome {
	outcome := games.ValidationOutcome{GameID: id, LastValidated: p.now(), RetryCount: previous}
	c, ok := p.catalogs[id.Source]
	if !ok {
		outcome.Reason = games.ReasonAPIError
		outcome.RetryCount = p.maxRetries
		p.record(outcome)
		return outcome
	}
	rec, err := c.Get(ctx, id.Native)
	outcome.LastValidated = p.now()
	switch reason := games.ReasonFor(err); reason {
	case games.ReasonNone:
		outcome.IsValid = true
		outcome.AlternativeData = &rec
	case games.ReasonAPIError:
		outcome.Reason = reason
		outcome.RetryCount = previous + 1
		p.logger.Debug("validation attempt failed",
			logging.String(logging.FieldGameID, id.String()),
			logging.Int("retry_count", outcome.RetryCount),
			logging.Error(err),
		)
	default:
		outcome.Reason = reason
	}
	p.record(outcome)
	return outcome
}

func (p *Pipeline) record(outcome games.ValidationOutcome) {
	switch {
	case outcome.IsValid:
		p.valid.Add(1)
		metrics.ValidationOutcomes.WithLabelValues("valid").Inc()
	case outcome.Reason == games.ReasonNotFound:
		p.notFound.Add(1)
		metrics.ValidationOutcomes.WithLabelValues("not_found").Inc()
	case outcome.Reason == games.ReasonInvalidID:
		p.invalidID.Add(1)
		metrics.ValidationOutcomes.WithLabelValues("invalid_id").Inc()
	default:
		p.apiErrors.Add(1)
		metrics.ValidationOutcomes.WithLabelValues("api_error").Inc()
	}
}

// scheduleRetry arms a background re-check after retryBase*retryCount unless
// the bound is reached or one is already pending.
func (p *Pipeline) scheduleRetry(id games.ID, retryCount int) {
	if retryCount >= p.maxRetries {
		logging.WarnWithContext(p.logger, "validation retries exhausted", "validation_terminal",
			logging.String(logging.FieldGameID, id.String()),
			logging.Int("retry_count", retryCount),
			logging.String(logging.FieldErrorHint, "upstream kept failing; the outcome is held until its cache entry expires"),
			logging.String(logging.FieldImpact, "game reported as unverified"),
		)
		return
	}
	delay := time.Duration(retryCount) * p.retryBase
	if delay < 0 {
		delay = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if _, ok := p.pending[id]; ok {
		return
	}
	p.wg.Add(1)
	p.pending[id] = time.AfterFunc(delay, func() {
		defer p.wg.Done()
		p.retry(id, retryCount)
	})
}

func (p *Pipeline) retry(id games.ID, previous int) {
	outcome := p.check(p.ctx, id, previous)
	if p.ctx.Err() != nil {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return
	}
	p.cache.Set(id.String(), outcome)

	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()

	if outcome.Reason == games.ReasonAPIError {
		p.scheduleRetry(id, outcome.RetryCount)
	}
}

// Pending returns the number of scheduled retries.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Drain blocks until every scheduled retry has run.
func (p *Pipeline) Drain() {
	p.wg.Wait()
}

// Close cancels pending retries. Validate keeps working from cache and the
// network but no new retries are scheduled.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	for id, timer := range p.pending {
		if timer.Stop() {
			p.wg.Done()
		}
		delete(p.pending, id)
	}
	p.mu.Unlock()
	p.cancel()
}

// ValidateMany validates ids in fixed-size chunks with a pause between
// chunks. Within a chunk every ID is checked concurrently and individual
// failures never affect the others.
func (p *Pipeline) ValidateMany(ctx context.Context, ids []games.ID) map[games.ID]games.ValidationOutcome {
	unique := make([]games.ID, 0, len(ids))
	seen := make(map[games.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := make(map[games.ID]games.ValidationOutcome, len(unique))
	var mu sync.Mutex
	for start := 0; start < len(unique); start += p.chunkSize {
		if start > 0 && p.chunkDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.chunkDelay):
			}
		}
		end := min(start+p.chunkSize, len(unique))
		var g errgroup.Group
		for _, id := range unique[start:end] {
			g.Go(func() error {
				outcome := p.Validate(ctx, id)
				mu.Lock()
				out[id] = outcome
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

// Enhance fetches ids in bulk and replaces every low-confidence record with
// the data of a successful validation. Records that fail validation keep
// their placeholder.
func (p *Pipeline) Enhance(ctx context.Context, ids []games.ID) map[games.ID]games.Record {
	records := p.bulk.FetchMany(ctx, ids)

	var low []games.ID
	for id, rec := range records {
		if rec.LowConfidence() && id.Source.Valid() && id.InRange() {
			low = append(low, id)
		}
	}
	if len(low) == 0 {
		return records
	}

	replaced := 0
	for id, outcome := range p.ValidateMany(ctx, low) {
		if outcome.IsValid && outcome.AlternativeData != nil {
			records[id] = *outcome.AlternativeData
			replaced++
		}
	}
	logging.WithContext(ctx, p.logger).Info("enhanced bulk records",
		logging.Int("requested", len(records)),
		logging.Int("low_confidence", len(low)),
		logging.Int("replaced", replaced),
	)
	return records
}

// Stats summarizes outcomes produced since start and the cache state.
type Stats struct {
	Valid          int64   `json:"valid"`
	Invalid        int64   `json:"invalid"`
	NotFound       int64   `json:"notFound"`
	InvalidID      int64   `json:"invalidId"`
	APIErrors      int64   `json:"apiErrors"`
	Entries        int     `json:"entries"`
	HitRate        float64 `json:"hitRate"`
	PendingRetries int     `json:"pendingRetries"`
}

// Stats reports aggregate validation counters.
func (p *Pipeline) Stats() Stats {
	cs := p.cache.Stats()
	notFound, invalidID := p.notFound.Load(), p.invalidID.Load()
	return Stats{
		Valid:          p.valid.Load(),
		Invalid:        notFound + invalidID,
		NotFound:       notFound,
		InvalidID:      invalidID,
		APIErrors:      p.apiErrors.Load(),
		Entries:        cs.Entries,
		HitRate:        cs.HitRate(),
		PendingRetries: p.Pending(),
	}
}

// CacheStats reports the validation cache counters.
func (p *Pipeline) CacheStats() cache.Stats {
	return p.cache.Stats()
}

// ClearCache drops every cached outcome.
func (p *Pipeline) ClearCache() int {
	return p.cache.Clear()
}

// RunMaintenance sweeps expired outcomes and logs stats every interval until
// ctx is done.
func (p *Pipeline) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Maintain()
		}
	}
}

// Maintain runs one sweep and logs the resulting stats.
func (p *Pipeline) Maintain() Stats {
	removed := p.cache.Sweep()
	stats := p.Stats()
	p.logger.Info("validation maintenance",
		logging.Int("swept", removed),
		logging.Int64("valid", stats.Valid),
		logging.Int64("invalid", stats.Invalid),
		logging.Int64("api_errors", stats.APIErrors),
		logging.Int("entries", stats.Entries),
		logging.Float64("hit_rate", stats.HitRate),
	)
	return stats
}
