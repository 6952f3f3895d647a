package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"gameshelf/internal/games"
	"gameshelf/internal/logging"
	"gameshelf/internal/preferences"
	"gameshelf/internal/search"
	"gameshelf/internal/services"
)

const maxPreferenceBody = 16 << 10

func userID(r *http.Request) string {
	id, _ := services.UserIDFromContext(r.Context())
	return id
}

func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "api", name, "must be an integer", nil)
	}
	return value, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := intParam(r, "page_size")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctx := services.WithOperation(r.Context(), "search")
	ctx = preferences.WithHTTP(ctx, r, w)
	result, err := s.svc.Search.Search(ctx, r.URL.Query().Get("q"), page, pageSize, search.Request{
		Strategy: strings.TrimSpace(r.URL.Query().Get("strategy")),
		UserID:   userID(r),
	})
	if err != nil {
		s.writeError(w, r, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) parseIDs(w http.ResponseWriter, r *http.Request) ([]games.ID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		s.writeError(w, r, http.StatusBadRequest, "ids query parameter is required")
		return nil, false
	}
	ids, err := games.ParseIDs(raw)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return ids, true
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.parseIDs(w, r)
	if !ok {
		return
	}
	ctx := services.WithOperation(r.Context(), "fetch")
	s.writeJSON(w, http.StatusOK, FromRecords(s.svc.Bulk.FetchMany(ctx, ids)))
}

func (s *Server) handleEnhanced(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.parseIDs(w, r)
	if !ok {
		return
	}
	ctx := services.WithOperation(r.Context(), "enhance")
	s.writeJSON(w, http.StatusOK, FromRecords(s.svc.Validation.Enhance(ctx, ids)))
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (games.ID, bool) {
	id, err := games.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return games.ID{}, false
	}
	return id, true
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	ctx := services.WithOperation(r.Context(), "resolve")
	mapping, found := s.svc.Resolver.Resolve(ctx, id)
	if !found {
		s.writeError(w, r, http.StatusNotFound, "no confident mapping for "+id.String())
		return
	}
	s.writeJSON(w, http.StatusOK, mapping)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	ctx := services.WithOperation(r.Context(), "validate")
	s.writeJSON(w, http.StatusOK, s.svc.Validation.Validate(ctx, id))
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := preferences.WithHTTP(r.Context(), r, w)
	prefs, tier := s.svc.Preferences.Load(ctx, userID(r))
	s.writeJSON(w, http.StatusOK, PreferencesResponse{Preferences: prefs, Tier: tier})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPreferenceBody))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	prefs := s.svc.Preferences.Defaults()
	if err := json.Unmarshal(body, &prefs); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "decode preferences: "+err.Error())
		return
	}
	if source, parseErr := games.ParseSource(string(prefs.PreferredSource)); parseErr == nil {
		prefs.PreferredSource = source
	}
	if err := prefs.Validate(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := preferences.WithHTTP(r.Context(), r, w)
	results := s.svc.Preferences.Save(ctx, userID(r), prefs)
	for _, result := range results {
		if result.Error != "" {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "preference write partially failed", "preferences_partial_write",
				logging.String("tier", result.Tier),
				logging.String(logging.FieldImpact, "other tiers still hold the new preferences"),
			)
		}
	}
	s.writeJSON(w, http.StatusOK, PreferencesResponse{Preferences: prefs, Results: results})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, ClearResponse{Cleared: s.svc.ClearCaches()})
}
