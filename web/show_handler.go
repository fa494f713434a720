package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"deathpool-service/database"
)

type showDetail struct {
	Show      *database.Show          `json:"show"`
	Players   []database.Player       `json:"players"`
	Intervals []database.ShowInterval `json:"intervals"`
}

// handleGetShows splits the schedule into upcoming and previous shows
// relative to local now.
func (s *Server) handleGetShows(w http.ResponseWriter, r *http.Request) {
	upcoming, previous, err := s.shows.FetchShows(s.clock.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch shows")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"upcoming": upcoming,
		"previous": previous,
	})
}

func (s *Server) handleGetShow(w http.ResponseWriter, r *http.Request) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}

	show, err := s.shows.GetShow(showID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch show")
		return
	}
	if show == nil {
		writeError(w, http.StatusNotFound, "show not found")
		return
	}

	players, err := s.shows.FetchPlayers(showID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch roster")
		return
	}
	intervals, err := s.shows.FetchIntervals(showID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch intervals")
		return
	}

	writeJSON(w, http.StatusOK, showDetail{
		Show:      show,
		Players:   players,
		Intervals: intervals,
	})
}
