package overrides

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"gameshelf/internal/games"
	"gameshelf/internal/logging"
)

// Override pins a native ID in one catalog to its counterpart in the other.
type Override struct {
	From games.ID `json:"from"`
	To   games.ID `json:"to"`
	Name string   `json:"name"`
}

// Builtin lists the entries compiled into every Catalog.
var Builtin = []Override{
	{From: games.NewID(games.SourceA, 1020), To: games.NewID(games.SourceB, 3498), Name: "Grand Theft Auto V"},
	{From: games.NewID(games.SourceA, 1942), To: games.NewID(games.SourceB, 3328), Name: "The Witcher 3: Wild Hunt"},
	{From: games.NewID(games.SourceA, 2454), To: games.NewID(games.SourceB, 4062), Name: "The Elder Scrolls V: Skyrim"},
}

// Catalog holds the manual override table: the built-in entries plus an
// optional user-authored JSON file reloaded when its mtime changes.
// File entries take precedence over built-in ones.
type Catalog struct {
	path    string
	logger  *slog.Logger
	builtin []Override

	mu      sync.RWMutex
	loaded  time.Time
	entries []Override
}

// NewCatalog constructs a catalog backed by the provided JSON file. An empty
// path serves only the built-in entries.
func NewCatalog(path string, logger *slog.Logger) *Catalog {
	return &Catalog{
		path:    strings.TrimSpace(path),
		logger:  logging.NewComponentLogger(logger, "overrides"),
		builtin: Builtin,
	}
}

// WithEntries replaces the built-in entries, for tests and embedding.
func (c *Catalog) WithEntries(entries ...Override) *Catalog {
	c.builtin = entries
	return c
}

// Lookup returns the override linking id to the target catalog. Entries match
// in either direction; the returned Override is oriented From=id.
func (c *Catalog) Lookup(id games.ID, target games.Source) (Override, bool, error) {
	if c == nil {
		return Override{}, false, nil
	}
	loadErr := c.ensureLoaded()

	c.mu.RLock()
	fileEntries := c.entries
	c.mu.RUnlock()

	for _, set := range [][]Override{fileEntries, c.builtin} {
		for _, entry := range set {
			if oriented, ok := entry.orient(id, target); ok {
				return oriented, true, loadErr
			}
		}
	}
	return Override{}, false, loadErr
}

// Entries returns every active override, file entries first.
func (c *Catalog) Entries() ([]Override, error) {
	err := c.ensureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Override, 0, len(c.entries)+len(c.builtin))
	out = append(out, c.entries...)
	out = append(out, c.builtin...)
	return out, err
}

func (o Override) orient(id games.ID, target games.Source) (Override, bool) {
	switch {
	case o.From == id && o.To.Source == target:
		return o, true
	case o.To == id && o.From.Source == target:
		return Override{From: o.To, To: o.From, Name: o.Name}, true
	}
	return Override{}, false
}

func (c *Catalog) ensureLoaded() error {
	if c.path == "" {
		return nil
	}
	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	c.mu.RLock()
	alreadyLoaded := !c.loaded.IsZero() && c.loaded.Equal(info.ModTime())
	c.mu.RUnlock()
	if alreadyLoaded {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	entries, err := parseOverrides(data)
	if err != nil {
		return fmt.Errorf("parse overrides %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.entries = entries
	c.loaded = info.ModTime()
	c.mu.Unlock()
	c.logger.Info("loaded id overrides", logging.String("path", c.path), logging.Int("count", len(entries)))
	return nil
}

func parseOverrides(data []byte) ([]Override, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF")))
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Override
	// Accept either array or object with overrides field.
	if data[0] == '{' {
		var wrapper struct {
			Overrides []Override `json:"overrides"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		entries = wrapper.Overrides
	} else {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
	}
	valid := make([]Override, 0, len(entries))
	for _, entry := range entries {
		entry.Name = strings.TrimSpace(entry.Name)
		if !entry.From.Source.Valid() || !entry.To.Source.Valid() || entry.From.Source == entry.To.Source {
			continue
		}
		valid = append(valid, entry)
	}
	return valid, nil
}
