package games

import (
	"errors"
	"fmt"
	"time"

	"gameshelf/internal/services"
)

// Fallback marks a synthesized record.
type Fallback string

const (
	// FallbackNone marks real upstream data.
	FallbackNone Fallback = ""
	// FallbackNotFound marks an ID the catalog confirmed does not exist.
	FallbackNotFound Fallback = "not_found"
	// FallbackUnavailable marks an ID whose batch could not be fetched.
	FallbackUnavailable Fallback = "unavailable"
)

// Record is the normalized game shape every catalog maps onto.
type Record struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Cover     string    `json:"cover,omitempty"`
	Genres    []string  `json:"genres"`
	Platforms []string  `json:"platforms"`
	Rating    float64   `json:"rating"`
	Released  time.Time `json:"released,omitzero"`
	Source    Source    `json:"source"`
	SourceID  int64     `json:"sourceId,omitempty"`
	Fallback  Fallback  `json:"fallback,omitempty"`
}

// ReleaseYear returns the release year, or 0 when unknown.
func (r Record) ReleaseYear() int {
	if r.Released.IsZero() {
		return 0
	}
	return r.Released.UTC().Year()
}

// IsPlaceholder reports whether r was synthesized rather than fetched.
func (r Record) IsPlaceholder() bool {
	return r.Fallback != FallbackNone
}

// LowConfidence reports whether r should be re-validated before display.
func (r Record) LowConfidence() bool {
	return r.IsPlaceholder() || r.Name == ""
}

// NotFoundRecord synthesizes the placeholder for a confirmed absence.
func NotFoundRecord(id ID) Record {
	return placeholder(id, FallbackNotFound)
}

// UnavailableRecord synthesizes the placeholder for an unreachable batch.
func UnavailableRecord(id ID) Record {
	return placeholder(id, FallbackUnavailable)
}

func placeholder(id ID, kind Fallback) Record {
	return Record{
		ID:        id,
		Name:      fmt.Sprintf("Unknown Game (%d)", id.Native),
		Genres:    []string{},
		Platforms: []string{},
		Source:    id.Source,
		SourceID:  id.Native,
		Fallback:  kind,
	}
}

// IDMapping links a native ID in one catalog to its counterpart in the other.
type IDMapping struct {
	From        ID        `json:"fromId"`
	To          ID        `json:"toId"`
	GameName    string    `json:"gameName"`
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"lastUpdated"`
	Override    bool      `json:"override,omitempty"`
}

// Reason classifies a failed validation.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonNotFound  Reason = "NotFound"
	ReasonAPIError  Reason = "ApiError"
	ReasonInvalidID Reason = "InvalidId"
)

// ReasonFor maps an error onto the validation taxonomy. Anything that is not
// a confirmed absence or a malformed ID is treated as a transient ApiError.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, services.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, services.ErrInvalidID):
		return ReasonInvalidID
	default:
		return ReasonAPIError
	}
}

// ValidationOutcome is the cached result of checking one ID upstream.
type ValidationOutcome struct {
	GameID          ID        `json:"gameId"`
	IsValid         bool      `json:"isValid"`
	Reason          Reason    `json:"reason,omitempty"`
	AlternativeData *Record   `json:"alternativeData,omitempty"`
	LastValidated   time.Time `json:"lastValidated"`
	RetryCount      int       `json:"retryCount"`
}
