package bulk

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gameshelf/internal/cache"
	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/metrics"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTTL              = 15 * time.Minute
	DefaultConcurrency      = 4
	DefaultMaxBatch         = 40
	DefaultPreloadBatchSize = 5
	DefaultPreloadDelay     = 100 * time.Millisecond
)

// Batch maps native IDs of one chunk to their records or placeholders.
type Batch map[int64]games.Record

// Options configures a Fetcher.
type Options struct {
	Catalogs         catalog.Set
	Cache            *cache.Cache[Batch]
	Concurrency      int
	PreloadBatchSize int
	// PreloadDelay staggers preload batches. Negative disables the stagger.
	PreloadDelay time.Duration
	Logger       *slog.Logger
}

// Fetcher resolves many canonical IDs with batched upstream calls.
type Fetcher struct {
	catalogs         catalog.Set
	cache            *cache.Cache[Batch]
	sem              *semaphore.Weighted
	preloadBatchSize int
	preloadDelay     time.Duration
	logger           *slog.Logger
}

// New builds a Fetcher, filling unset options with defaults.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		catalogs:         opts.Catalogs,
		cache:            opts.Cache,
		preloadBatchSize: opts.PreloadBatchSize,
		preloadDelay:     opts.PreloadDelay,
		logger:           logging.NewComponentLogger(opts.Logger, "bulk"),
	}
	if f.cache == nil {
		f.cache = cache.New[Batch](cache.Options{Name: "bulk", TTL: DefaultTTL})
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	f.sem = semaphore.NewWeighted(int64(concurrency))
	if f.preloadBatchSize <= 0 {
		f.preloadBatchSize = DefaultPreloadBatchSize
	}
	if f.preloadDelay == 0 {
		f.preloadDelay = DefaultPreloadDelay
	}
	return f
}

type chunk struct {
	source games.Source
	ids    []int64
}

// key is order-independent because ids are sorted before chunking.
func (c chunk) key() string {
	parts := make([]string, len(c.ids))
	for i, id := range c.ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return string(c.source) + ":" + strings.Join(parts, ",")
}

// FetchMany returns exactly one record per distinct requested ID. IDs the
// catalog does not know get a not_found placeholder; IDs whose batch failed
// get an unavailable placeholder. It never returns an error.
func (f *Fetcher) FetchMany(ctx context.Context, ids []games.ID) map[games.ID]games.Record {
	out := make(map[games.ID]games.Record, len(ids))
	var mu sync.Mutex
	put := func(rec games.Record) {
		mu.Lock()
		out[rec.ID] = rec
		mu.Unlock()
	}

	grouped := make(map[games.Source][]int64)
	for _, id := range ids {
		if _, dup := out[id]; dup {
			continue
		}
		switch {
		case !id.Source.Valid():
			out[id] = games.UnavailableRecord(id)
		case !id.InRange():
			out[id] = games.NotFoundRecord(id)
		default:
			out[id] = games.Record{}
			grouped[id.Source] = append(grouped[id.Source], id.Native)
		}
	}

	chunks := f.plan(grouped)
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range chunks {
		g.Go(func() error {
			for _, rec := range f.fetchChunk(gctx, ch) {
				put(rec)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *Fetcher) plan(grouped map[games.Source][]int64) []chunk {
	sources := make([]games.Source, 0, len(grouped))
	for source := range grouped {
		sources = append(sources, source)
	}
	slices.Sort(sources)

	var chunks []chunk
	for _, source := range sources {
		ids := grouped[source]
		slices.Sort(ids)
		limit := DefaultMaxBatch
		if c, ok := f.catalogs[source]; ok {
			limit = catalog.MaxBatch(c, DefaultMaxBatch)
		}
		for len(ids) > 0 {
			n := min(limit, len(ids))
			chunks = append(chunks, chunk{source: source, ids: ids[:n:n]})
			ids = ids[n:]
		}
	}
	return chunks
}

func (f *Fetcher) fetchChunk(ctx context.Context, ch chunk) []games.Record {
	logger := logging.WithContext(ctx, f.logger).With(logging.String(logging.FieldSource, string(ch.source)))
	c, ok := f.catalogs[ch.source]
	if !ok {
		return f.unavailable(ch)
	}

	batch, _, err := f.cache.GetOrLoad(ctx, ch.key(), func(ctx context.Context) (Batch, error) {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer f.sem.Release(1)

		records, err := c.Lookup(ctx, ch.ids)
		if err != nil {
			return nil, err
		}
		batch := make(Batch, len(ch.ids))
		for _, rec := range records {
			batch[rec.ID.Native] = rec
		}
		missing := 0
		for _, id := range ch.ids {
			if _, ok := batch[id]; !ok {
				batch[id] = games.NotFoundRecord(games.NewID(ch.source, id))
				missing++
			}
		}
		if missing > 0 {
			metrics.FallbackRecords.WithLabelValues(string(games.FallbackNotFound)).Add(float64(missing))
			logger.Info("batch omitted ids",
				logging.String(logging.FieldEventType, "fallback_record"),
				logging.Int("requested", len(ch.ids)),
				logging.Int("missing", missing),
			)
		}
		return batch, nil
	})
	if err != nil {
		logging.WarnWithContext(logger, "batch fetch failed", "batch_unavailable",
			logging.Error(err),
			logging.Int("ids", len(ch.ids)),
			logging.String(logging.FieldErrorHint, "upstream catalog unreachable; the batch is retried on the next request"),
			logging.String(logging.FieldImpact, "requested games shown as unavailable placeholders"),
		)
		return f.unavailable(ch)
	}

	out := make([]games.Record, 0, len(ch.ids))
	for _, id := range ch.ids {
		out = append(out, batch[id])
	}
	return out
}

func (f *Fetcher) unavailable(ch chunk) []games.Record {
	out := make([]games.Record, 0, len(ch.ids))
	for _, id := range ch.ids {
		out = append(out, games.UnavailableRecord(games.NewID(ch.source, id)))
	}
	metrics.FallbackRecords.WithLabelValues(string(games.FallbackUnavailable)).Add(float64(len(ch.ids)))
	return out
}

// Preload warms the cache in the background, fetching ids in small batches
// with a stagger between them. The returned channel closes when done.
func (f *Fetcher) Preload(ctx context.Context, ids []games.ID) <-chan struct{} {
	done := make(chan struct{})
	pending := slices.Clone(ids)
	go func() {
		defer close(done)
		for start := 0; start < len(pending); start += f.preloadBatchSize {
			if start > 0 && f.preloadDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.preloadDelay):
				}
			}
			if ctx.Err() != nil {
				return
			}
			end := min(start+f.preloadBatchSize, len(pending))
			f.FetchMany(ctx, pending[start:end])
		}
		f.logger.Debug("preload complete", logging.Int("ids", len(pending)))
	}()
	return done
}

// RunSweeper removes expired batches every interval until ctx is done.
func (f *Fetcher) RunSweeper(ctx context.Context, interval time.Duration) {
	f.cache.RunSweeper(ctx, interval)
}

// CacheStats reports the bulk cache counters.
func (f *Fetcher) CacheStats() cache.Stats {
	return f.cache.Stats()
}

// ClearCache drops every cached batch.
func (f *Fetcher) ClearCache() int {
	return f.cache.Clear()
}

// CacheKey exposes the order-independent key used for a single-chunk request.
func CacheKey(source games.Source, ids []int64) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return chunk{source: source, ids: sorted}.key()
}
