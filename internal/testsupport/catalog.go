package testsupport

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/services"
	"gameshelf/internal/textutil"
)

// Game builds a normalized record for fixtures. year 0 leaves the release unset.
func Game(source games.Source, native int64, name string, year int, platforms ...string) games.Record {
	rec := games.Record{
		ID:        games.NewID(source, native),
		Name:      name,
		Genres:    []string{},
		Platforms: append([]string{}, platforms...),
		Source:    source,
		SourceID:  native,
	}
	if year > 0 {
		rec.Released = time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	return rec
}

// FakeCatalog is an in-memory catalog.Catalog that records calls and can be
// programmed to fail.
type FakeCatalog struct {
	source   games.Source
	maxBatch int

	mu      sync.Mutex
	records map[int64]games.Record
	errs    map[string]error
	queued  map[string][]error
	calls   map[string]int
	lookups [][]int64
	queries []string
}

// NewFakeCatalog returns a catalog for source seeded with records.
func NewFakeCatalog(source games.Source, records ...games.Record) *FakeCatalog {
	f := &FakeCatalog{
		source:  source,
		records: make(map[int64]games.Record),
		errs:    make(map[string]error),
		queued:  make(map[string][]error),
		calls:   make(map[string]int),
	}
	for _, rec := range records {
		f.Add(rec)
	}
	return f
}

// Add stores rec under its native ID, stamping the catalog's source.
func (f *FakeCatalog) Add(rec games.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.Source = f.source
	rec.ID = games.NewID(f.source, rec.ID.Native)
	rec.SourceID = rec.ID.Native
	f.records[rec.ID.Native] = rec
}

// SetMaxBatch declares a Lookup batch cap.
func (f *FakeCatalog) SetMaxBatch(n int) { f.maxBatch = n }

// MaxBatch implements catalog.BatchLimiter.
func (f *FakeCatalog) MaxBatch() int { return f.maxBatch }

// SetError makes every call to method ("search", "lookup", "get") fail with err.
// A nil err clears the failure.
func (f *FakeCatalog) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// FailNext queues errs to be returned by the next calls to method, in order.
func (f *FakeCatalog) FailNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[method] = append(f.queued[method], errs...)
}

// Calls returns how many times method was invoked.
func (f *FakeCatalog) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across every method.
func (f *FakeCatalog) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Lookups returns the ID batches passed to Lookup.
func (f *FakeCatalog) Lookups() [][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]int64, len(f.lookups))
	for i, batch := range f.lookups {
		out[i] = slices.Clone(batch)
	}
	return out
}

// Queries returns the search queries received.
func (f *FakeCatalog) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

// Source implements catalog.Catalog.
func (f *FakeCatalog) Source() games.Source { return f.source }

// Search matches records whose normalized name contains the normalized query.
func (f *FakeCatalog) Search(ctx context.Context, query string, page, pageSize int) (catalog.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err := f.begin(ctx, "search"); err != nil {
		return catalog.Page{}, err
	}
	needle := textutil.NormalizeName(query)
	matches := make([]games.Record, 0)
	for _, rec := range f.records {
		if strings.Contains(textutil.NormalizeName(rec.Name), needle) {
			matches = append(matches, rec)
		}
	}
	slices.SortFunc(matches, func(a, b games.Record) int {
		switch {
		case a.ID.Native < b.ID.Native:
			return -1
		case a.ID.Native > b.ID.Native:
			return 1
		}
		return 0
	})
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := min((page-1)*pageSize, len(matches))
	end := min(start+pageSize, len(matches))
	return catalog.Page{Records: slices.Clone(matches[start:end]), Total: len(matches)}, nil
}

// Lookup returns stored records for ids, omitting unknown ones.
func (f *FakeCatalog) Lookup(ctx context.Context, ids []int64) ([]games.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, slices.Clone(ids))
	if err := f.begin(ctx, "lookup"); err != nil {
		return nil, err
	}
	if f.maxBatch > 0 && len(ids) > f.maxBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds %d", services.ErrTransient, len(ids), f.maxBatch)
	}
	out := make([]games.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Get returns one record or services.ErrNotFound.
func (f *FakeCatalog) Get(ctx context.Context, id int64) (games.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "get"); err != nil {
		return games.Record{}, err
	}
	rec, ok := f.records[id]
	if !ok {
		return games.Record{}, services.Wrap(services.ErrNotFound, "fake", "get", fmt.Sprintf("id %d", id), nil)
	}
	return rec, nil
}

func (f *FakeCatalog) begin(ctx context.Context, method string) error {
	f.calls[method]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if queue := f.queued[method]; len(queue) > 0 {
		err := queue[0]
		f.queued[method] = queue[1:]
		if err != nil {
			return err
		}
	}
	return f.errs[method]
}
