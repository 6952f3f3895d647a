package search_test

import (
	"context"
	"errors"
	"testing"

	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/preferences"
	"gameshelf/internal/search"
	"gameshelf/internal/services"
	"gameshelf/internal/testsupport"
)

type staticPrefs struct {
	prefs preferences.Preferences
}

func (s staticPrefs) Load(context.Context, string) (preferences.Preferences, string) {
	return s.prefs, "test"
}

func rated(rec games.Record, rating float64) games.Record {
	rec.Rating = rating
	return rec
}

type fixture struct {
	a, b *testsupport.FakeCatalog
	orch *search.Orchestrator
}

func newFixture(t *testing.T, prefs preferences.Preferences) *fixture {
	t.Helper()
	f := &fixture{
		a: testsupport.NewFakeCatalog(games.SourceA,
			rated(testsupport.Game(games.SourceA, 1, "The Legend of Zelda: Breath of the Wild", 2017), 97),
			rated(testsupport.Game(games.SourceA, 2, "Zelda II: The Adventure of Link", 1987), 70),
		),
		b: testsupport.NewFakeCatalog(games.SourceB,
			rated(testsupport.Game(games.SourceB, 10, "The Legend of Zelda: Breath of the Wild", 2017), 95),
			rated(testsupport.Game(games.SourceB, 11, "Hyrule Warriors: Age of Calamity (Zelda)", 2020), 80),
		),
	}
	f.orch = search.New(search.Options{
		Catalogs:    catalog.NewSet(f.a, f.b),
		Preferences: staticPrefs{prefs: prefs},
	})
	return f
}

func TestSearchCombinedMergesAndDeduplicates(t *testing.T) {
	f := newFixture(t, preferences.Defaults())

	result, err := f.orch.Search(context.Background(), "zelda", 1, 20, search.Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Strategy != preferences.StrategyCombined {
		t.Fatalf("strategy = %q", result.Strategy)
	}
	if len(result.Sources) != 2 || result.Sources[0] != "A" || result.Sources[1] != "B" {
		t.Fatalf("sources = %v", result.Sources)
	}
	want := []games.ID{
		games.NewID(games.SourceA, 1),
		games.NewID(games.SourceA, 2),
		games.NewID(games.SourceB, 11),
	}
	if len(result.Games) != len(want) {
		t.Fatalf("got %d games, want %d: %+v", len(result.Games), len(want), result.Games)
	}
	for i, id := range want {
		if result.Games[i].ID != id {
			t.Fatalf("games[%d] = %v, want %v", i, result.Games[i].ID, id)
		}
	}
	if result.Total != 2 {
		t.Fatalf("total = %d, want max of source totals", result.Total)
	}
	if result.HasNextPage || result.HasPreviousPage {
		t.Fatalf("unexpected pagination flags: %+v", result)
	}
}

func TestSearchCombinedToleratesOneFailure(t *testing.T) {
	f := newFixture(t, preferences.Defaults())
	f.b.SetError("search", services.ErrTransient)

	result, err := f.orch.Search(context.Background(), "zelda", 1, 20, search.Request{Strategy: preferences.StrategyCombined})
	if err != nil {
		t.Fatalf("Search should degrade, got %v", err)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "A" {
		t.Fatalf("sources = %v, want [A]", result.Sources)
	}
	if len(result.Games) != 2 {
		t.Fatalf("expected catalog A matches only, got %+v", result.Games)
	}
	for _, rec := range result.Games {
		if rec.Source != games.SourceA {
			t.Fatalf("unexpected record from %s", rec.Source)
		}
	}
}

func TestSearchFailsWhenEverySourceFails(t *testing.T) {
	f := newFixture(t, preferences.Defaults())
	f.a.SetError("search", services.ErrTransient)
	f.b.SetError("search", services.ErrTransient)

	_, err := f.orch.Search(context.Background(), "zelda", 1, 20, search.Request{Strategy: preferences.StrategyParallel})
	if !errors.Is(err, services.ErrAllSourcesUnavailable) {
		t.Fatalf("err = %v, want ErrAllSourcesUnavailable", err)
	}
}

func TestSearchSourceFirstFallsBackWholesale(t *testing.T) {
	f := newFixture(t, preferences.Defaults())
	f.a.SetError("search", services.ErrTransient)

	result, err := f.orch.Search(context.Background(), "zelda", 1, 20, search.Request{Strategy: preferences.StrategySourceAFirst})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "B" {
		t.Fatalf("sources = %v, want [B]", result.Sources)
	}
	if len(result.Games) != 2 || result.Total != 2 {
		t.Fatalf("expected unmerged catalog B page, got %+v", result)
	}
}

func TestSearchSourceFirstWithoutFallback(t *testing.T) {
	prefs := preferences.Defaults()
	prefs.FallbackEnabled = false
	f := newFixture(t, prefs)
	f.b.SetError("search", services.ErrTransient)

	_, err := f.orch.Search(context.Background(), "zelda", 1, 20, search.Request{Strategy: preferences.StrategySourceBFirst})
	if !errors.Is(err, services.ErrAllSourcesUnavailable) {
		t.Fatalf("err = %v, want ErrAllSourcesUnavailable", err)
	}
	if f.a.Calls("search") != 0 {
		t.Fatal("fallback catalog should not be queried")
	}
}

func TestSearchUsesPreferenceStrategyAndCache(t *testing.T) {
	prefs := preferences.Defaults()
	prefs.SearchStrategy = preferences.StrategySourceBFirst
	f := newFixture(t, prefs)
	ctx := context.Background()

	first, err := f.orch.Search(ctx, "zelda", 1, 20, search.Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if first.Strategy != preferences.StrategySourceBFirst {
		t.Fatalf("strategy = %q", first.Strategy)
	}
	if _, err := f.orch.Search(ctx, "  Zelda ", 1, 20, search.Request{}); err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if f.b.Calls("search") != 1 {
		t.Fatalf("catalog B called %d times, want 1", f.b.Calls("search"))
	}
	if f.a.Calls("search") != 0 {
		t.Fatal("catalog A should not be queried")
	}
}

func TestSearchCacheDisabled(t *testing.T) {
	prefs := preferences.Defaults()
	prefs.CacheEnabled = false
	f := newFixture(t, prefs)
	ctx := context.Background()

	for range 2 {
		if _, err := f.orch.Search(ctx, "zelda", 1, 20, search.Request{}); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if f.a.Calls("search") != 2 {
		t.Fatalf("catalog A called %d times, want 2", f.a.Calls("search"))
	}
}

func TestSearchDegradedPageIsNotCached(t *testing.T) {
	f := newFixture(t, preferences.Defaults())
	f.b.FailNext("search", services.ErrTransient)
	ctx := context.Background()

	if _, err := f.orch.Search(ctx, "zelda", 1, 20, search.Request{}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	result, err := f.orch.Search(ctx, "zelda", 1, 20, search.Request{})
	if err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("sources = %v, want both after recovery", result.Sources)
	}
}

func TestSearchValidatesInput(t *testing.T) {
	f := newFixture(t, preferences.Defaults())
	ctx := context.Background()

	if _, err := f.orch.Search(ctx, "   ", 1, 20, search.Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty query err = %v", err)
	}
	if _, err := f.orch.Search(ctx, "zelda", 1, 20, search.Request{Strategy: "bogus"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown strategy err = %v", err)
	}
	if f.a.TotalCalls()+f.b.TotalCalls() != 0 {
		t.Fatal("invalid input should not reach catalogs")
	}
}

func TestSearchClampsPagination(t *testing.T) {
	tests := []struct {
		name               string
		page, pageSize     int
		wantPage, wantSize int
	}{
		{name: "defaults", page: 0, pageSize: 0, wantPage: 1, wantSize: 20},
		{name: "negative", page: -3, pageSize: -1, wantPage: 1, wantSize: 20},
		{name: "too large", page: 2, pageSize: 500, wantPage: 2, wantSize: 50},
		{name: "unchanged", page: 3, pageSize: 7, wantPage: 3, wantSize: 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, preferences.Defaults())
			result, err := f.orch.Search(context.Background(), "zelda", tc.page, tc.pageSize, search.Request{})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if result.Page != tc.wantPage || result.PageSize != tc.wantSize {
				t.Fatalf("page=%d size=%d, want %d/%d", result.Page, result.PageSize, tc.wantPage, tc.wantSize)
			}
			if result.HasPreviousPage != (tc.wantPage > 1) {
				t.Fatalf("hasPreviousPage = %v", result.HasPreviousPage)
			}
		})
	}
}

func TestSearchPreferredSourceLeadsMerge(t *testing.T) {
	prefs := preferences.Defaults()
	prefs.PreferredSource = games.SourceB
	f := newFixture(t, prefs)

	result, err := f.orch.Search(context.Background(), "zelda", 1, 20, search.Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Sources[0] != "B" {
		t.Fatalf("sources = %v, want B first", result.Sources)
	}
	if result.Games[0].ID != games.NewID(games.SourceB, 11) && result.Games[0].ID != games.NewID(games.SourceB, 10) {
		t.Fatalf("first game = %v, want a catalog B record", result.Games[0].ID)
	}
	if result.Games[0].Source != games.SourceB || result.Games[1].Source != games.SourceB {
		t.Fatalf("catalog B group should lead: %+v", result.Games)
	}
	if len(result.Games) != 3 {
		t.Fatalf("expected the duplicate A record dropped, got %d games", len(result.Games))
	}
}

type userPrefs map[string]preferences.Preferences

func (u userPrefs) Load(_ context.Context, userID string) (preferences.Preferences, string) {
	if prefs, ok := u[userID]; ok {
		return prefs, "test"
	}
	return preferences.Defaults(), "defaults"
}

func TestSearchCacheSeparatesPreferredSources(t *testing.T) {
	alice := preferences.Defaults()
	alice.PreferredSource = games.SourceA
	bob := preferences.Defaults()
	bob.PreferredSource = games.SourceB

	a := testsupport.NewFakeCatalog(games.SourceA,
		rated(testsupport.Game(games.SourceA, 1, "The Legend of Zelda: Breath of the Wild", 2017), 97),
	)
	b := testsupport.NewFakeCatalog(games.SourceB,
		rated(testsupport.Game(games.SourceB, 10, "The Legend of Zelda: Breath of the Wild", 2017), 95),
	)
	orch := search.New(search.Options{
		Catalogs:    catalog.NewSet(a, b),
		Preferences: userPrefs{"alice": alice, "bob": bob},
	})
	ctx := context.Background()

	tests := []struct {
		user        string
		wantSources string
		wantFirst   games.ID
	}{
		{user: "alice", wantSources: "A", wantFirst: games.NewID(games.SourceA, 1)},
		{user: "bob", wantSources: "B", wantFirst: games.NewID(games.SourceB, 10)},
		{user: "alice", wantSources: "A", wantFirst: games.NewID(games.SourceA, 1)},
		{user: "bob", wantSources: "B", wantFirst: games.NewID(games.SourceB, 10)},
	}
	for i, tt := range tests {
		result, err := orch.Search(ctx, "zelda", 1, 20, search.Request{UserID: tt.user})
		if err != nil {
			t.Fatalf("search %d (%s): %v", i, tt.user, err)
		}
		if len(result.Sources) == 0 || result.Sources[0] != tt.wantSources {
			t.Fatalf("search %d (%s): sources = %v, want %s first", i, tt.user, result.Sources, tt.wantSources)
		}
		if len(result.Games) == 0 || result.Games[0].ID != tt.wantFirst {
			t.Fatalf("search %d (%s): games = %+v, want %v first", i, tt.user, result.Games, tt.wantFirst)
		}
	}
	if a.Calls("search") != 2 || b.Calls("search") != 2 {
		t.Fatalf("calls A=%d B=%d, want one per preferred source", a.Calls("search"), b.Calls("search"))
	}
}
