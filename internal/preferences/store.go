package preferences

import (
	"context"
	"errors"
	"log/slog"

	"gameshelf/internal/logging"
	"gameshelf/internal/metrics"
)

// Backend is one optional storage tier.
type Backend interface {
	// Name labels the tier in results and logs.
	Name() string
	// Load reports ok=false when the tier has nothing stored for userID and
	// ErrUnavailable when the tier cannot serve this request.
	Load(ctx context.Context, userID string) (Preferences, bool, error)
	Save(ctx context.Context, userID string, prefs Preferences) error
}

// WriteResult reports the outcome of writing one tier.
type WriteResult struct {
	Tier    string `json:"tier"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Store reads tiers in order and writes all of them independently.
type Store struct {
	backends []Backend
	defaults Preferences
	logger   *slog.Logger
}

// NewStore builds a Store over backends in read-priority order.
func NewStore(defaults Preferences, logger *slog.Logger, backends ...Backend) *Store {
	active := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			active = append(active, b)
		}
	}
	return &Store{
		backends: active,
		defaults: defaults.Normalize(),
		logger:   logging.NewComponentLogger(logger, "preferences"),
	}
}

// Defaults returns the store's fallback preferences.
func (s *Store) Defaults() Preferences { return s.defaults }

// Load returns the first tier's stored preferences and that tier's name, or
// the defaults with tier "defaults".
func (s *Store) Load(ctx context.Context, userID string) (Preferences, string) {
	logger := logging.WithContext(ctx, s.logger)
	for _, b := range s.backends {
		prefs, ok, err := b.Load(ctx, userID)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) {
				logging.WarnWithContext(logger, "preference tier read failed", "preferences_read_failed",
					logging.String("tier", b.Name()),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the tier's storage; the next tier is tried"),
					logging.String(logging.FieldImpact, "preferences may come from a lower tier"),
				)
			}
			continue
		}
		if ok {
			return prefs, b.Name()
		}
	}
	return s.defaults, "defaults"
}

// Save writes prefs to every tier. A failing tier never prevents the others
// from being written.
func (s *Store) Save(ctx context.Context, userID string, prefs Preferences) []WriteResult {
	logger := logging.WithContext(ctx, s.logger)
	prefs = prefs.Normalize()
	results := make([]WriteResult, 0, len(s.backends))
	for _, b := range s.backends {
		result := WriteResult{Tier: b.Name()}
		err := b.Save(ctx, userID, prefs)
		switch {
		case err == nil:
			result.OK = true
			metrics.PreferenceWrites.WithLabelValues(b.Name(), "ok").Inc()
		case errors.Is(err, ErrUnavailable):
			result.Skipped = true
			metrics.PreferenceWrites.WithLabelValues(b.Name(), "skipped").Inc()
		default:
			result.Error = err.Error()
			metrics.PreferenceWrites.WithLabelValues(b.Name(), "error").Inc()
			logging.WarnWithContext(logger, "preference tier write failed", "preferences_write_failed",
				logging.String("tier", b.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remaining tiers were still written"),
				logging.String(logging.FieldImpact, "this tier may serve stale preferences"),
			)
		}
		results = append(results, result)
	}
	return results
}
