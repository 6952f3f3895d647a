package igdb_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gameshelf/internal/catalog/igdb"
	"gameshelf/internal/games"
	"gameshelf/internal/services"
)

type capturedRequest struct {
	Endpoint string `json:"endpoint"`
	Query    string `json:"query"`
}

func newProxy(t *testing.T, handler func(req capturedRequest) (int, string)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode proxy body: %v", err)
		}
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func TestNewRequiresProxyURL(t *testing.T) {
	if _, err := igdb.New("", "games"); err == nil {
		t.Fatal("expected error when proxy url missing")
	}
}

func TestQueryString(t *testing.T) {
	got := igdb.NewQuery("id", "name").Search(`say "hi"`).WhereIDs([]int64{1, 2}).Sort("total_rating desc").Limit(5).Offset(10).String()
	want := `fields id,name; search "say \"hi\""; where id = (1,2); sort total_rating desc; limit 5; offset 10;`
	if got != want {
		t.Fatalf("query = %q\nwant    %q", got, want)
	}
}

func TestSearchNormalizesRecords(t *testing.T) {
	server, seen := newProxy(t, func(req capturedRequest) (int, string) {
		if req.Endpoint == "games/count" {
			return http.StatusOK, `{"count":42}`
		}
		return http.StatusOK, `[{"id":1020,"name":"Grand Theft Auto V","cover":{"image_id":"co2lbd"},
			"genres":[{"name":"Shooter"}],"platforms":[{"name":"PC (Microsoft Windows)"}],
			"total_rating":91.5,"first_release_date":1379376000}]`
	})

	client, err := igdb.New(server.URL, "games", igdb.WithImageBaseURL("https://img.example/t_cover"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	page, err := client.Search(context.Background(), "gta", 2, 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if page.Total != 42 || len(page.Records) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	rec := page.Records[0]
	if rec.ID != games.NewID(games.SourceA, 1020) || rec.Source != games.SourceA || rec.SourceID != 1020 {
		t.Fatalf("unexpected identity %+v", rec)
	}
	if rec.Cover != "https://img.example/t_cover/co2lbd.jpg" {
		t.Fatalf("unexpected cover %q", rec.Cover)
	}
	if rec.ReleaseYear() != 2013 || rec.Rating != 91.5 {
		t.Fatalf("unexpected release/rating %v %v", rec.Released, rec.Rating)
	}
	if len(*seen) != 2 {
		t.Fatalf("expected search and count requests, got %d", len(*seen))
	}
	if q := (*seen)[0].Query; !strings.Contains(q, `search "gta";`) || !strings.Contains(q, "offset 10;") {
		t.Fatalf("unexpected search query %q", q)
	}
}

func TestLookupBatchesIDs(t *testing.T) {
	server, seen := newProxy(t, func(req capturedRequest) (int, string) {
		return http.StatusOK, `[{"id":1,"name":"One"},{"id":3,"name":"Three"}]`
	})
	client, err := igdb.New(server.URL, "games")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	recs, err := client.Lookup(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if len(*seen) != 1 || !strings.Contains((*seen)[0].Query, "where id = (1,2,3);") {
		t.Fatalf("expected one batched request, got %+v", *seen)
	}
}

func TestGetEmptyIsNotFound(t *testing.T) {
	server, _ := newProxy(t, func(capturedRequest) (int, string) { return http.StatusOK, `[]` })
	client, _ := igdb.New(server.URL, "games")
	if _, err := client.Get(context.Background(), 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPErrorsAreTransient(t *testing.T) {
	server, _ := newProxy(t, func(capturedRequest) (int, string) {
		return http.StatusTooManyRequests, `{"message":"slow down"}`
	})
	client, _ := igdb.New(server.URL, "games")
	_, err := client.Lookup(context.Background(), []int64{1})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}
