package services

import (
	"encoding/json"

	"deathpool-service/database"
	"deathpool-service/logger"
)

// StateBroadcaster pushes state-changed notifications to connected
// clients. Defined here to avoid a dependency on the web package.
type StateBroadcaster interface {
	Broadcast(msg interface{})
}

// QueuedVote is the wire form of a live vote on the broker.
type QueuedVote struct {
	ShowID       int64  `json:"show_id"`
	VoteTypeID   int64  `json:"vote_type_id"`
	Interval     int    `json:"interval"`
	SuggestionID *int64 `json:"suggestion_id,omitempty"`
	PlayerID     *int64 `json:"player_id,omitempty"`
	SessionID    string `json:"session_id"`
}

// VoteWorker drains the live-vote topic and persists the tallies. The
// client-facing handler acks immediately; this goroutine does the actual
// increment out-of-band.
type VoteWorker struct {
	broker      MessageBroker
	liveVotes   *LiveVoteService
	broadcaster StateBroadcaster
	done        chan bool
}

func NewVoteWorker(broker MessageBroker, liveVotes *LiveVoteService, broadcaster StateBroadcaster) *VoteWorker {
	return &VoteWorker{
		broker:      broker,
		liveVotes:   liveVotes,
		broadcaster: broadcaster,
		done:        make(chan bool),
	}
}

// Start consumes until Stop is called or the broker closes.
func (w *VoteWorker) Start() error {
	messages, err := w.broker.Consume(LiveVoteTopic)
	if err != nil {
		return err
	}
	logger.Println("[VoteWorker] Started")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				logger.Println("[VoteWorker] Broker closed, stopping")
				return nil
			}
			w.handle(msg)
		case <-w.done:
			return nil
		}
	}
}

// Stop signals the worker loop to exit.
func (w *VoteWorker) Stop() {
	close(w.done)
}

func (w *VoteWorker) handle(msg BrokerMessage) {
	var qv QueuedVote
	if err := json.Unmarshal(msg.Value, &qv); err != nil {
		logger.Errorf("[VoteWorker] Bad vote payload: %v", err)
		return
	}

	accepted, err := w.liveVotes.SubmitLiveVote(database.LiveVote{
		ShowID:       qv.ShowID,
		VoteTypeID:   qv.VoteTypeID,
		Interval:     qv.Interval,
		SuggestionID: qv.SuggestionID,
		PlayerID:     qv.PlayerID,
		SessionID:    qv.SessionID,
	})
	if err != nil {
		logger.Errorf("[VoteWorker] Failed to record vote: %v", err)
		return
	}
	if !accepted {
		// Duplicate from the same session: tolerated no-op.
		return
	}

	if w.broadcaster != nil {
		w.broadcaster.Broadcast(map[string]interface{}{
			"type":    "vote_recorded",
			"show_id": qv.ShowID,
		})
	}
}
