package rawg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"gameshelf/internal/catalog"
	"gameshelf/internal/games"
	"gameshelf/internal/services"
)

// DefaultMaxBatch is the largest page the catalog serves, and therefore the
// largest Lookup batch.
const DefaultMaxBatch = 40

type namedRef struct {
	Name string `json:"name"`
}

type platformRef struct {
	Platform namedRef `json:"platform"`
}

// Game is the catalog-native record shape.
type Game struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	BackgroundImage string        `json:"background_image"`
	Rating          float64       `json:"rating"`
	Released        string        `json:"released"`
	Genres          []namedRef    `json:"genres"`
	Platforms       []platformRef `json:"platforms"`
}

// Response models the paginated list response.
type Response struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []Game `json:"results"`
}

// Client provides access to the catalog B REST API.
type Client struct {
	apiKey     string
	baseURL    string
	maxBatch   int
	httpClient *http.Client
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

// WithMaxBatch overrides the Lookup batch cap.
func WithMaxBatch(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// New creates a catalog B client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("catalog B api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog B base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxBatch:   DefaultMaxBatch,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Source implements catalog.Catalog.
func (c *Client) Source() games.Source { return games.SourceB }

// MaxBatch implements catalog.BatchLimiter.
func (c *Client) MaxBatch() int { return c.maxBatch }

// Search runs a paginated name search.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) (catalog.Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return catalog.Page{}, services.Wrap(services.ErrValidation, "rawg", "search", "query must not be empty", nil)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	pageSize = min(pageSize, c.maxBatch)
	params := url.Values{}
	params.Set("search", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	var payload Response
	if err := c.get(ctx, "search", "/games", params, &payload); err != nil {
		return catalog.Page{}, err
	}
	return catalog.Page{Records: normalizeAll(payload.Results), Total: payload.Count}, nil
}

// Lookup fetches ids in one list call filtered by ids.
func (c *Client) Lookup(ctx context.Context, ids []int64) ([]games.Record, error) {
	if len(ids) == 0 {
		return []games.Record{}, nil
	}
	if len(ids) > c.maxBatch {
		return nil, services.Wrap(services.ErrValidation, "rawg", "lookup", fmt.Sprintf("batch of %d exceeds %d", len(ids), c.maxBatch), nil)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(parts, ","))
	params.Set("page_size", strconv.Itoa(len(ids)))

	var payload Response
	if err := c.get(ctx, "lookup", "/games", params, &payload); err != nil {
		return nil, err
	}
	return normalizeAll(payload.Results), nil
}

// Get fetches the detail record for id.
func (c *Client) Get(ctx context.Context, id int64) (games.Record, error) {
	var payload Game
	if err := c.get(ctx, "get", "/games/"+strconv.FormatInt(id, 10), url.Values{}, &payload); err != nil {
		return games.Record{}, err
	}
	if payload.ID == 0 {
		return games.Record{}, services.Wrap(services.ErrNotFound, "rawg", "get", fmt.Sprintf("id %d", id), nil)
	}
	return normalize(payload), nil
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse rawg url: %w", err)
	}
	params.Set("key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return catalog.TransportError("rawg", operation, fmt.Errorf("execute request (latency=%v): %w", latency, redact(err, c.apiKey)))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return catalog.StatusError("rawg", operation, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return catalog.TransportError("rawg", operation, fmt.Errorf("decode rawg response: %w", err))
	}
	return nil
}

// redactedError hides the API key in the message of a transport error, which
// embeds the URL, while keeping the wrapped chain intact.
type redactedError struct {
	err error
	key string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.key, "REDACTED")
}

func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{err: err, key: key}
}

func normalizeAll(payload []Game) []games.Record {
	out := make([]games.Record, 0, len(payload))
	for _, g := range payload {
		out = append(out, normalize(g))
	}
	return out
}

func normalize(g Game) games.Record {
	rec := games.Record{
		ID:        games.NewID(games.SourceB, g.ID),
		Name:      strings.TrimSpace(g.Name),
		Cover:     strings.TrimSpace(g.BackgroundImage),
		Genres:    make([]string, 0, len(g.Genres)),
		Platforms: make([]string, 0, len(g.Platforms)),
		Rating:    g.Rating * 20,
		Source:    games.SourceB,
		SourceID:  g.ID,
	}
	for _, genre := range g.Genres {
		if name := strings.TrimSpace(genre.Name); name != "" {
			rec.Genres = append(rec.Genres, name)
		}
	}
	for _, p := range g.Platforms {
		if name := strings.TrimSpace(p.Platform.Name); name != "" {
			rec.Platforms = append(rec.Platforms, name)
		}
	}
	if released, err := time.Parse(time.DateOnly, strings.TrimSpace(g.Released)); err == nil {
		rec.Released = released.UTC()
	}
	return rec
}
