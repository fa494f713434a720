package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"deathpool-service/logger"
	"deathpool-service/services"
)

// handleShowState is the polled endpoint the audience clients hit every
// few seconds. Reading it is what drives phase transitions, including the
// one-time winner finalization inside a result window.
func (s *Server) handleShowState(w http.ResponseWriter, r *http.Request) {
	showID, err := strconv.ParseInt(mux.Vars(r)["show_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid show id")
		return
	}

	state, err := s.voteState.ResolveState(showID, sessionID(w, r), s.clock.Now())
	if err != nil {
		logger.Errorf("[State] resolve failed for show %d: %v", showID, err)
		writeError(w, http.StatusInternalServerError, "failed to resolve show state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleIntervalTimer tells the stage manager when the next interval slot
// comes up for a show.
func (s *Server) handleIntervalTimer(w http.ResponseWriter, r *http.Request) {
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

	slots, err := s.shows.FetchIntervals(showID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch intervals")
		return
	}
	sorted := make([]int, 0, len(slots))
	for _, slot := range slots {
		sorted = append(sorted, slot.Interval)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"show_id":          show.ID,
		"current_interval": show.CurrentInterval,
		"next_interval":    services.NextInterval(sorted, show.CurrentInterval),
	})
}
