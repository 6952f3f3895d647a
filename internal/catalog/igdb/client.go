package igdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/services"
)

// DefaultMaxBatch is the largest number of IDs fetched by one Lookup.
const DefaultMaxBatch = 500

var gameFields = []string{
	"id",
	"name",
	"cover.image_id",
	"genres.name",
	"platforms.name",
	"total_rating",
	"first_release_date",
}

type namedRef struct {
	Name string `json:"name"`
}

type coverRef struct {
	ImageID string `json:"image_id"`
}

// Game is the catalog-native record shape.
type Game struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Cover            *coverRef  `json:"cover,omitempty"`
	Genres           []namedRef `json:"genres,omitempty"`
	Platforms        []namedRef `json:"platforms,omitempty"`
	TotalRating      float64    `json:"total_rating"`
	FirstReleaseDate int64      `json:"first_release_date"`
}

type countResponse struct {
	Count int `json:"count"`
}

type proxyRequest struct {
	Endpoint string `json:"endpoint"`
	Query    string `json:"query"`
}

// Client talks to catalog A through the same-origin proxy endpoint.
type Client struct {
	proxyURL     string
	endpoint     string
	imageBaseURL string
	maxBatch     int
	httpClient   *http.Client
}

var _ catalog.Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithImageBaseURL sets the prefix used to build absolute cover URLs.
func WithImageBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimSpace(base); base != "" {
			c.imageBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithMaxBatch overrides the Lookup batch cap.
func WithMaxBatch(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// New creates a catalog A client. endpoint is the resource name sent in the
// proxy body, normally "games".
func New(proxyURL, endpoint string, opts ...Option) (*Client, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return nil, errors.New("catalog A proxy url required")
	}
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = "games"
	}
	client := &Client{
		proxyURL:     strings.TrimRight(proxyURL, "/"),
		endpoint:     endpoint,
		imageBaseURL: "https://images.igdb.com/igdb/image/upload/t_cover_big",
		maxBatch:     DefaultMaxBatch,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Source implements catalog.Catalog.
func (c *Client) Source() games.Source { return games.SourceA }

// MaxBatch implements catalog.BatchLimiter.
func (c *Client) MaxBatch() int { return c.maxBatch }

// Search runs a full-text search and a count query for the total.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) (catalog.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return catalog.Page{}, services.Wrap(services.ErrValidation, "igdb", "search", "query must not be empty", nil)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	q := NewQuery(gameFields...).Search(query).Limit(pageSize).Offset((page - 1) * pageSize)

	var payload []Game
	if err := c.post(ctx, "search", c.endpoint, q.String(), &payload); err != nil {
		return catalog.Page{}, err
	}
	var count countResponse
	if err := c.post(ctx, "count", c.endpoint+"/count", NewQuery().Search(query).String(), &count); err != nil {
		return catalog.Page{}, err
	}
	total := count.Count
	if seen := (page-1)*pageSize + len(payload); total < seen {
		total = seen
	}
	return catalog.Page{Records: c.normalizeAll(payload), Total: total}, nil
}

// Lookup fetches ids with a single "where id = (...)" query.
func (c *Client) Lookup(ctx context.Context, ids []int64) ([]games.Record, error) {
	if len(ids) == 0 {
		return []games.Record{}, nil
	}
	if len(ids) > c.maxBatch {
		return nil, services.Wrap(services.ErrValidation, "igdb", "lookup", fmt.Sprintf("batch of %d exceeds %d", len(ids), c.maxBatch), nil)
	}
	q := NewQuery(gameFields...).WhereIDs(ids).Limit(len(ids))
	var payload []Game
	if err := c.post(ctx, "lookup", c.endpoint, q.String(), &payload); err != nil {
		return nil, err
	}
	return c.normalizeAll(payload), nil
}

// Get fetches one id. An empty response is a confirmed absence.
func (c *Client) Get(ctx context.Context, id int64) (games.Record, error) {
	q := NewQuery(gameFields...).WhereIDs([]int64{id}).Limit(1)
	var payload []Game
	if err := c.post(ctx, "get", c.endpoint, q.String(), &payload); err != nil {
		return games.Record{}, err
	}
	if len(payload) == 0 {
		return games.Record{}, services.Wrap(services.ErrNotFound, "igdb", "get", fmt.Sprintf("id %d", id), nil)
	}
	return c.normalize(payload[0]), nil
}

func (c *Client) post(ctx context.Context, operation, endpoint, query string, out any) error {
	body, err := json.Marshal(proxyRequest{Endpoint: endpoint, Query: query})
	if err != nil {
		return fmt.Errorf("encode igdb request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return catalog.TransportError("igdb", operation, fmt.Errorf("execute request (latency=%v): %w", latency, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return catalog.StatusError("igdb", operation, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return catalog.TransportError("igdb", operation, fmt.Errorf("decode igdb response: %w", err))
	}
	return nil
}

func (c *Client) normalizeAll(payload []Game) []games.Record {
	out := make([]games.Record, 0, len(payload))
	for _, g := range payload {
		out = append(out, c.normalize(g))
	}
	return out
}

func (c *Client) normalize(g Game) games.Record {
	rec := games.Record{
		ID:        games.NewID(games.SourceA, g.ID),
		Name:      strings.TrimSpace(g.Name),
		Genres:    names(g.Genres),
		Platforms: names(g.Platforms),
		Rating:    g.TotalRating,
		Source:    games.SourceA,
		SourceID:  g.ID,
	}
	if g.Cover != nil && g.Cover.ImageID != "" {
		rec.Cover = c.imageBaseURL + "/" + g.Cover.ImageID + ".jpg"
	}
	if g.FirstReleaseDate > 0 {
		rec.Released = time.Unix(g.FirstReleaseDate, 0).UTC()
	}
	return rec
}

func names(refs []namedRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if name := strings.TrimSpace(ref.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
