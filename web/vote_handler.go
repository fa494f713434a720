package web

import (
	"encoding/json"
	"net/http"

	"deathpool-service/logger"
	"deathpool-service/services"
)

type liveVoteRequest struct {
	ShowID    int64  `json:"show_id"`
	VoteNum   int    `json:"vote_num"`
	SessionID string `json:"session_id,omitempty"`
}

// handleLiveVote records one audience vote. The vote number indexes the
// option list the session was shown; anything that cannot land (no open
// voting window, out-of-range index, locked show, duplicate session) is
// rejected silently with voted=false, matching how the screens treat a
// missed vote.
func (s *Server) handleLiveVote(w http.ResponseWriter, r *http.Request) {
	var req liveVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := req.SessionID
	if session == "" {
		session = sessionID(w, r)
	}
	now := s.clock.Now()

	show, err := s.shows.GetShow(req.ShowID)
	if err != nil || show == nil {
		writeError(w, http.StatusNotFound, "show not found")
		return
	}
	if show.Locked && !s.isAdmin(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"voted": false})
		return
	}

	window, err := s.voteState.ActiveWindow(req.ShowID, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve vote window")
		return
	}
	if window == nil || window.Display != services.DisplayVoting {
		writeJSON(w, http.StatusOK, map[string]bool{"voted": false})
		return
	}

	state, err := s.voteState.ResolveState(req.ShowID, session, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve show state")
		return
	}
	if state.Voted || req.VoteNum < 0 || req.VoteNum >= len(state.Options) {
		writeJSON(w, http.StatusOK, map[string]bool{"voted": false})
		return
	}

	target := state.Options[req.VoteNum].ID
	qv := services.QueuedVote{
		ShowID:     req.ShowID,
		VoteTypeID: window.Type.ID,
		Interval:   window.Interval,
		SessionID:  session,
	}
	if window.Type.Style == services.StylePlayers {
		qv.PlayerID = &target
	} else {
		qv.SuggestionID = &target
	}

	payload, err := json.Marshal(qv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode vote")
		return
	}
	if err := s.broker.Produce(services.BrokerMessage{
		Topic: services.LiveVoteTopic,
		Key:   session,
		Value: payload,
	}); err != nil {
		logger.Errorf("[Vote] Failed to queue vote for show %d: %v", req.ShowID, err)
		writeError(w, http.StatusInternalServerError, "failed to queue vote")
		return
	}

	// Ack before the worker lands the tally; duplicates settle server-side.
	writeJSON(w, http.StatusOK, map[string]bool{"voted": true})
}

type upvoteRequest struct {
	SuggestionID int64  `json:"suggestion_id"`
	SessionID    string `json:"session_id,omitempty"`
}

// handleUpvote bumps a suggestion's advisory pre-show tally, once per
// session per suggestion.
func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	var req upvoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := req.SessionID
	if session == "" {
		session = sessionID(w, r)
	}
	accepted, err := s.suggestions.SubmitPreshowVote(req.SuggestionID, session)
	if err != nil {
		logger.Errorf("[Vote] Upvote failed for suggestion %d: %v", req.SuggestionID, err)
		writeError(w, http.StatusInternalServerError, "failed to record upvote")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"voted": accepted})
}
