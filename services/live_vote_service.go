package services

import (
	"database/sql"
	"fmt"

	"deathpool-service/database"
)

// LiveVoteService records votes cast during open voting windows and
// computes live tallies. A live tally is implicitly scoped to one phase
// occurrence by the (show, vote type, interval) key of its vote rows;
// starting a new occurrence opens a fresh scope without deleting anything.
type LiveVoteService struct {
	db *sql.DB
}

func NewLiveVoteService(db *sql.DB) *LiveVoteService {
	return &LiveVoteService{db: db}
}

// SubmitLiveVote stores one vote for (show, phase, interval, session).
// Duplicates are a silent no-op, reported as accepted=false. The unique
// index is the arbiter, so two concurrent submits from one session still
// land exactly one row.
func (s *LiveVoteService) SubmitLiveVote(v database.LiveVote) (bool, error) {
	if v.SuggestionID == nil && v.PlayerID == nil {
		return false, fmt.Errorf("live vote needs a suggestion or a player")
	}

	res, err := s.db.Exec(`
		INSERT INTO live_votes (show_id, vote_type_id, interval_minute,
		                        suggestion_id, player_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (show_id, vote_type_id, interval_minute, session_id) DO NOTHING
	`, v.ShowID, v.VoteTypeID, v.Interval, v.SuggestionID, v.PlayerID, v.SessionID)
	if err != nil {
		return false, fmt.Errorf("failed to record live vote: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

// HasVoted reports whether this session already voted in the phase
// occurrence.
func (s *LiveVoteService) HasVoted(showID, voteTypeID int64, interval int, sessionID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM live_votes
			WHERE show_id = $1 AND vote_type_id = $2
			  AND interval_minute = $3 AND session_id = $4
		)
	`, showID, voteTypeID, interval, sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check live vote: %w", err)
	}
	return exists, nil
}

// SuggestionCounts returns live vote counts per suggestion for a phase
// occurrence.
func (s *LiveVoteService) SuggestionCounts(showID, voteTypeID int64, interval int) (map[int64]int, error) {
	rows, err := s.db.Query(`
		SELECT suggestion_id, COUNT(*)
		FROM live_votes
		WHERE show_id = $1 AND vote_type_id = $2 AND interval_minute = $3
		  AND suggestion_id IS NOT NULL
		GROUP BY suggestion_id
	`, showID, voteTypeID, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to count suggestion votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// PlayerCounts returns live vote counts per player for a phase occurrence.
func (s *LiveVoteService) PlayerCounts(showID, voteTypeID int64, interval int) (map[int64]int, error) {
	rows, err := s.db.Query(`
		SELECT player_id, COUNT(*)
		FROM live_votes
		WHERE show_id = $1 AND vote_type_id = $2 AND interval_minute = $3
		  AND player_id IS NOT NULL
		GROUP BY player_id
	`, showID, voteTypeID, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to count player votes: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// TotalCount returns the total number of live votes in a phase occurrence.
func (s *LiveVoteService) TotalCount(showID, voteTypeID int64, interval int) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM live_votes
		WHERE show_id = $1 AND vote_type_id = $2 AND interval_minute = $3
	`, showID, voteTypeID, interval).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count live votes: %w", err)
	}
	return count, nil
}

// VotePercentage is the floor percentage of subset over all; zero when
// either count is zero.
func VotePercentage(subset, all int) int {
	if subset == 0 || all == 0 {
		return 0
	}
	return 100 * subset / all
}
