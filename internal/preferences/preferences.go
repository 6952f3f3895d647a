package preferences

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"gameshelf/internal/games"
)

// Key namespaces the preference blob in every tier.
const Key = "gameshelf:search-preferences"

// Strategy names accepted in SearchStrategy.
const (
	StrategySourceAFirst = "sourceAFirst"
	StrategySourceBFirst = "sourceBFirst"
	StrategyCombined     = "combined"
	StrategyParallel     = "parallel"
)

// ErrUnavailable marks a tier that cannot serve the current request, such as
// the cookie tier outside an HTTP request or the profile tier without a user.
var ErrUnavailable = errors.New("preference tier unavailable")

// Preferences steer the unified search for one user.
type Preferences struct {
	PreferredSource games.Source `json:"preferredSource"`
	SearchStrategy  string       `json:"searchStrategy"`
	CacheEnabled    bool         `json:"cacheEnabled"`
	FallbackEnabled bool         `json:"fallbackEnabled"`
}

// Defaults returns the hardcoded last-resort preferences.
func Defaults() Preferences {
	return Preferences{
		PreferredSource: games.SourceA,
		SearchStrategy:  StrategyCombined,
		CacheEnabled:    true,
		FallbackEnabled: true,
	}
}

// ValidStrategy reports whether s names a known search strategy.
func ValidStrategy(s string) bool {
	switch s {
	case StrategySourceAFirst, StrategySourceBFirst, StrategyCombined, StrategyParallel:
		return true
	}
	return false
}

// Normalize replaces unknown source or strategy values with the defaults.
func (p Preferences) Normalize() Preferences {
	d := Defaults()
	if !p.PreferredSource.Valid() {
		if source, err := games.ParseSource(string(p.PreferredSource)); err == nil {
			p.PreferredSource = source
		} else {
			p.PreferredSource = d.PreferredSource
		}
	}
	if !ValidStrategy(p.SearchStrategy) {
		p.SearchStrategy = d.SearchStrategy
	}
	return p
}

// Validate rejects unknown source or strategy values.
func (p Preferences) Validate() error {
	if !p.PreferredSource.Valid() {
		return fmt.Errorf("preferredSource: unsupported value %q", p.PreferredSource)
	}
	if !ValidStrategy(p.SearchStrategy) {
		return fmt.Errorf("searchStrategy: unsupported value %q", p.SearchStrategy)
	}
	return nil
}

type blob map[string]json.RawMessage

// encode wraps prefs under Key.
func encode(prefs Preferences) ([]byte, error) {
	inner, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(blob{Key: inner})
}

// decode extracts prefs from a blob. Fields absent from the stored JSON keep
// their default values.
func decode(data []byte) (Preferences, bool, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Preferences{}, false, err
	}
	inner, ok := b[Key]
	if !ok {
		return Preferences{}, false, nil
	}
	prefs := Defaults()
	if err := json.Unmarshal(inner, &prefs); err != nil {
		return Preferences{}, false, err
	}
	return prefs.Normalize(), true, nil
}
