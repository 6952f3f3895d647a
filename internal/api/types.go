package api

import (
	"gameshelf/internal/games"
	"gameshelf/internal/preferences"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// GamesResponse maps canonical ID strings to records.
type GamesResponse struct {
	Games map[string]games.Record `json:"games"`
}

// PreferencesResponse carries loaded preferences and the tier they came from.
type PreferencesResponse struct {
	Preferences preferences.Preferences   `json:"preferences"`
	Tier        string                    `json:"tier,omitempty"`
	Results     []preferences.WriteResult `json:"results,omitempty"`
}

// ClearResponse reports how many cache entries were dropped.
type ClearResponse struct {
	Cleared int `json:"cleared"`
}

// FromRecords converts a fetch result into its wire form.
func FromRecords(records map[games.ID]games.Record) GamesResponse {
	out := make(map[string]games.Record, len(records))
	for id, rec := range records {
		out[id.String()] = rec
	}
	return GamesResponse{Games: out}
}
