package preferences

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"gameshelf/internal/games"
)

type failingBackend struct {
	name string
	err  error
}

func (f failingBackend) Name() string { return f.name }

func (f failingBackend) Load(context.Context, string) (Preferences, bool, error) {
	return Preferences{}, false, f.err
}

func (f failingBackend) Save(context.Context, string, Preferences) error { return f.err }

func custom() Preferences {
	return Preferences{
		PreferredSource: games.SourceB,
		SearchStrategy:  StrategySourceBFirst,
		CacheEnabled:    false,
		FallbackEnabled: true,
	}
}

func TestStoreLoadFallsBackToDefaults(t *testing.T) {
	local := NewLocalBackend(filepath.Join(t.TempDir(), "prefs.json"))
	store := NewStore(Defaults(), nil, local)

	prefs, tier := store.Load(context.Background(), "u1")
	if tier != "defaults" {
		t.Fatalf("tier = %q, want defaults", tier)
	}
	if prefs != Defaults() {
		t.Fatalf("prefs = %+v, want defaults", prefs)
	}
}

func TestStoreSaveContinuesPastFailingTier(t *testing.T) {
	local := NewLocalBackend(filepath.Join(t.TempDir(), "prefs.json"))
	store := NewStore(Defaults(), nil,
		failingBackend{name: "profile", err: errors.New("db offline")},
		failingBackend{name: "cookie", err: ErrUnavailable},
		local,
	)

	results := store.Save(context.Background(), "u1", custom())
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].OK || results[0].Error == "" {
		t.Fatalf("profile result = %+v, want error", results[0])
	}
	if !results[1].Skipped {
		t.Fatalf("cookie result = %+v, want skipped", results[1])
	}
	if !results[2].OK {
		t.Fatalf("local result = %+v, want ok", results[2])
	}

	prefs, tier := store.Load(context.Background(), "u1")
	if tier != "local" {
		t.Fatalf("tier = %q, want local", tier)
	}
	if prefs != custom() {
		t.Fatalf("prefs = %+v, want %+v", prefs, custom())
	}
}

func TestStoreLoadPrefersEarlierTier(t *testing.T) {
	dir := t.TempDir()
	profile, err := OpenProfileBackend(filepath.Join(dir, "profiles.db"))
	if err != nil {
		t.Fatalf("open profile: %v", err)
	}
	t.Cleanup(func() { _ = profile.Close() })
	local := NewLocalBackend(filepath.Join(dir, "prefs.json"))

	ctx := context.Background()
	if err := local.Save(ctx, "u1", Defaults()); err != nil {
		t.Fatalf("local save: %v", err)
	}
	if err := profile.Save(ctx, "u1", custom()); err != nil {
		t.Fatalf("profile save: %v", err)
	}

	store := NewStore(Defaults(), nil, profile, local)
	prefs, tier := store.Load(ctx, "u1")
	if tier != "profile" || prefs != custom() {
		t.Fatalf("Load = %+v from %q, want custom from profile", prefs, tier)
	}
}

func TestProfileBackendRequiresUser(t *testing.T) {
	profile, err := OpenProfileBackend(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("open profile: %v", err)
	}
	t.Cleanup(func() { _ = profile.Close() })

	if err := profile.Save(context.Background(), "  ", custom()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Save without user = %v, want ErrUnavailable", err)
	}
	if _, _, err := profile.Load(context.Background(), ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Load without user = %v, want ErrUnavailable", err)
	}
}

func TestProfileBackendUpsert(t *testing.T) {
	profile, err := OpenProfileBackend(filepath.Join(t.TempDir(), "nested", "profiles.db"))
	if err != nil {
		t.Fatalf("open profile: %v", err)
	}
	t.Cleanup(func() { _ = profile.Close() })
	ctx := context.Background()

	if _, ok, err := profile.Load(ctx, "u1"); err != nil || ok {
		t.Fatalf("empty Load = ok:%v err:%v", ok, err)
	}
	if err := profile.Save(ctx, "u1", Defaults()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := profile.Save(ctx, "u1", custom()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	prefs, ok, err := profile.Load(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("Load = ok:%v err:%v", ok, err)
	}
	if prefs != custom() {
		t.Fatalf("prefs = %+v, want %+v", prefs, custom())
	}
}

func TestCookieBackendRequiresConsent(t *testing.T) {
	backend := NewCookieBackend("prefs", "consent")

	if err := backend.Save(context.Background(), "", custom()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Save outside request = %v, want ErrUnavailable", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/preferences", nil)
	rec := httptest.NewRecorder()
	if err := backend.Save(WithHTTP(context.Background(), req, rec), "", custom()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Save without consent = %v, want ErrUnavailable", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookie without consent")
	}
}

func TestCookieBackendRoundTrip(t *testing.T) {
	backend := NewCookieBackend("prefs", "consent")

	req := httptest.NewRequest(http.MethodPut, "/api/preferences", nil)
	req.AddCookie(&http.Cookie{Name: "consent", Value: "true"})
	rec := httptest.NewRecorder()
	if err := backend.Save(WithHTTP(context.Background(), req, rec), "", custom()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "prefs" {
		t.Fatalf("cookies = %+v", cookies)
	}

	next := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	next.AddCookie(&http.Cookie{Name: "consent", Value: "true"})
	next.AddCookie(cookies[0])
	prefs, ok, err := backend.Load(WithHTTP(context.Background(), next, nil), "")
	if err != nil || !ok {
		t.Fatalf("Load = ok:%v err:%v", ok, err)
	}
	if prefs != custom() {
		t.Fatalf("prefs = %+v, want %+v", prefs, custom())
	}
}

func TestLocalBackendKeysByUser(t *testing.T) {
	local := NewLocalBackend(filepath.Join(t.TempDir(), "prefs.json"))
	ctx := context.Background()

	if err := local.Save(ctx, "u1", custom()); err != nil {
		t.Fatalf("save u1: %v", err)
	}
	if err := local.Save(ctx, "", Defaults()); err != nil {
		t.Fatalf("save anonymous: %v", err)
	}
	if _, ok, _ := local.Load(ctx, "u2"); ok {
		t.Fatal("expected no value for u2")
	}
	prefs, ok, err := local.Load(ctx, "u1")
	if err != nil || !ok || prefs != custom() {
		t.Fatalf("Load u1 = %+v ok:%v err:%v", prefs, ok, err)
	}
}

func TestDecodeNormalizesUnknownValues(t *testing.T) {
	prefs, ok, err := decode([]byte(`{"gameshelf:search-preferences":{"preferredSource":"B","searchStrategy":"bogus"}}`))
	if err != nil || !ok {
		t.Fatalf("decode = ok:%v err:%v", ok, err)
	}
	if prefs.PreferredSource != games.SourceB {
		t.Fatalf("source = %q, want catalogB", prefs.PreferredSource)
	}
	if prefs.SearchStrategy != StrategyCombined {
		t.Fatalf("strategy = %q, want combined", prefs.SearchStrategy)
	}
	if !prefs.CacheEnabled || !prefs.FallbackEnabled {
		t.Fatalf("missing booleans should keep defaults: %+v", prefs)
	}

	if _, ok, err := decode([]byte(`{"other":1}`)); err != nil || ok {
		t.Fatalf("foreign blob = ok:%v err:%v", ok, err)
	}
}
