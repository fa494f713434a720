package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"deathpool-service/logger"
	"deathpool-service/services"
)

type createShowRequest struct {
	Scheduled string  `json:"scheduled"`
	Length    int     `json:"length"`
	ThemeID   *int64  `json:"theme_id,omitempty"`
	PlayerIDs []int64 `json:"player_ids"`
	Intervals []int   `json:"intervals"`
}

func (s *Server) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	var req createShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scheduled, err := time.ParseInLocation("2006-01-02 15:04", req.Scheduled, s.clock.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "scheduled must be YYYY-MM-DD HH:MM")
		return
	}
	for _, interval := range req.Intervals {
		if interval < 0 || interval >= req.Length {
			writeError(w, http.StatusBadRequest, "intervals must fall inside the show length")
			return
		}
	}

	show, err := s.shows.CreateShow(services.CreateShowParams{
		Scheduled: scheduled,
		Length:    req.Length,
		ThemeID:   req.ThemeID,
		PlayerIDs: req.PlayerIDs,
		Intervals: req.Intervals,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, show)
}

func (s *Server) handleDeleteShow(w http.ResponseWriter, r *http.Request) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}
	if err := s.shows.DeleteShow(showID); err != nil {
		logger.Errorf("[Admin] Delete show %d failed: %v", showID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete show")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleStartShow stamps the start time and finishes the roster
// assignment for the remaining interval slots.
func (s *Server) handleStartShow(w http.ResponseWriter, r *http.Request) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}
	if err := s.shows.ActivateShow(showID, s.clock.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.wsHub.Broadcast(&WSMessage{Type: "show_started", ShowID: showID})
	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

type startVoteRequest struct {
	VoteType string `json:"vote_type"`
	Interval *int   `json:"interval,omitempty"`
}

// handleStartVote opens a voting window for the named phase type, stamping
// its init at local now.
func (s *Server) handleStartVote(w http.ResponseWriter, r *http.Request) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}
	var req startVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VoteType == "" {
		writeError(w, http.StatusBadRequest, "vote_type required")
		return
	}

	interval := 0
	if req.Interval != nil {
		interval = *req.Interval
	}
	if err := s.shows.StartPhase(showID, req.VoteType, interval, s.clock.Now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.wsHub.Broadcast(&WSMessage{Type: "vote_started", ShowID: showID,
		Data: map[string]interface{}{"vote_type": req.VoteType}})
	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

type startRecapRequest struct {
	VoteType string `json:"vote_type"`
}

func (s *Server) handleStartRecap(w http.ResponseWriter, r *http.Request) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}
	var req startRecapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VoteType == "" {
		writeError(w, http.StatusBadRequest, "vote_type required")
		return
	}
	if err := s.shows.StartRecap(showID, req.VoteType, s.clock.Now()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

func (s *Server) handleLockShow(w http.ResponseWriter, r *http.Request) {
	s.setShowLock(w, r, true)
}

func (s *Server) handleUnlockShow(w http.ResponseWriter, r *http.Request) {
	s.setShowLock(w, r, false)
}

func (s *Server) setShowLock(w http.ResponseWriter, r *http.Request, locked bool) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}
	if err := s.shows.SetLocked(showID, locked); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

func (s *Server) handleGetPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.players.FetchPlayers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch players")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

type createPlayerRequest struct {
	Name          string `json:"name"`
	PhotoFilename string `json:"photo_filename"`
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	player, err := s.players.CreatePlayer(req.Name, req.PhotoFilename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.ParseInt(mux.Vars(r)["player_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	if err := s.players.DeletePlayer(playerID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleGetVoteTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.catalog.FetchTypes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch vote types")
		return
	}
	writeJSON(w, http.StatusOK, types)
}
