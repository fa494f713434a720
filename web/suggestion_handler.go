package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"deathpool-service/logger"
)

// handleGetSuggestions lists the unused suggestions of a pool, ranked the
// same way the option sampler ranks them.
func (s *Server) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	poolName := r.URL.Query().Get("pool")
	if poolName == "" {
		writeError(w, http.StatusBadRequest, "pool parameter required")
		return
	}
	pool, err := s.catalog.GetPool(poolName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch pool")
		return
	}
	if pool == nil {
		writeError(w, http.StatusNotFound, "unknown pool")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	suggestions, err := s.suggestions.FetchUnused(pool.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch suggestions")
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type createSuggestionRequest struct {
	Pool  string `json:"pool"`
	Value string `json:"value"`
}

// handleCreateSuggestion takes an audience suggestion. Submissions only
// open on days with a scheduled show.
func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	var req createSuggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Value = strings.TrimSpace(req.Value)
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "value required")
		return
	}

	if !s.isAdmin(r) {
		open, err := s.shows.ShowToday(s.clock.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check show schedule")
			return
		}
		if !open {
			writeError(w, http.StatusForbidden, "suggestions are closed")
			return
		}
	}

	pool, err := s.catalog.GetPool(req.Pool)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch pool")
		return
	}
	if pool == nil {
		writeError(w, http.StatusBadRequest, "unknown pool")
		return
	}

	suggestion, err := s.suggestions.CreateSuggestion(pool.ID, req.Value, sessionID(w, r))
	if err != nil {
		logger.Errorf("[Suggestions] Create failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create suggestion")
		return
	}
	writeJSON(w, http.StatusCreated, suggestion)
}

// handleDeleteSuggestion removes a suggestion. Sessions may delete their
// own; the admin token may delete any.
func (s *Server) handleDeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["suggestion_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid suggestion id")
		return
	}

	if err := s.suggestions.DeleteSuggestion(id, sessionID(w, r), s.isAdmin(r)); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
