package services

import (
	"database/sql"
	"fmt"

	"deathpool-service/database"
	"deathpool-service/logger"
)

// SuggestionService manages the candidate pools and pre-show (advisory)
// voting.
type SuggestionService struct {
	db *sql.DB
}

func NewSuggestionService(db *sql.DB) *SuggestionService {
	return &SuggestionService{db: db}
}

// CreateSuggestion nominates a new candidate into a pool.
func (s *SuggestionService) CreateSuggestion(poolID int64, value, sessionID string) (*database.Suggestion, error) {
	if value == "" {
		return nil, fmt.Errorf("suggestion value must not be empty")
	}
	var sg database.Suggestion
	err := s.db.QueryRow(`
		INSERT INTO suggestions (pool_id, value, session_id)
		VALUES ($1, $2, $3)
		RETURNING id, pool_id, value, preshow_value, used, voted_on, session_id, created
	`, poolID, value, sessionID).Scan(&sg.ID, &sg.PoolID, &sg.Value,
		&sg.PreshowValue, &sg.Used, &sg.VotedOn, &sg.SessionID, &sg.Created)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}
	return &sg, nil
}

// GetSuggestion fetches one suggestion, nil if absent.
func (s *SuggestionService) GetSuggestion(id int64) (*database.Suggestion, error) {
	var sg database.Suggestion
	err := s.db.QueryRow(`
		SELECT id, pool_id, value, preshow_value, used, voted_on, session_id, created
		FROM suggestions WHERE id = $1
	`, id).Scan(&sg.ID, &sg.PoolID, &sg.Value, &sg.PreshowValue, &sg.Used,
		&sg.VotedOn, &sg.SessionID, &sg.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion %d: %w", id, err)
	}
	return &sg, nil
}

// FetchUnused returns the not-yet-used candidates of a pool ranked the way
// every candidate query ranks: advisory votes descending, then oldest first.
func (s *SuggestionService) FetchUnused(poolID int64, limit int) ([]database.Suggestion, error) {
	query := `
		SELECT id, pool_id, value, preshow_value, used, voted_on, session_id, created
		FROM suggestions
		WHERE pool_id = $1 AND used = FALSE
		ORDER BY preshow_value DESC, created ASC
	`
	args := []interface{}{poolID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unused suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []database.Suggestion
	for rows.Next() {
		var sg database.Suggestion
		if err := rows.Scan(&sg.ID, &sg.PoolID, &sg.Value, &sg.PreshowValue,
			&sg.Used, &sg.VotedOn, &sg.SessionID, &sg.Created); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}

// SubmitPreshowVote records an advisory upvote for (suggestion, session).
// A second vote from the same session is a silent no-op. The cumulative
// counter is only bumped when a new vote row actually landed, so the
// counter and the vote rows cannot drift apart under concurrent submits.
func (s *SuggestionService) SubmitPreshowVote(suggestionID int64, sessionID string) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO preshow_votes (suggestion_id, session_id)
		VALUES ($1, $2)
		ON CONFLICT (suggestion_id, session_id) DO NOTHING
	`, suggestionID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to record preshow vote: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		return false, nil
	}

	_, err = s.db.Exec(`
		UPDATE suggestions SET preshow_value = preshow_value + 1 WHERE id = $1
	`, suggestionID)
	if err != nil {
		return false, fmt.Errorf("failed to bump preshow counter: %w", err)
	}
	return true, nil
}

// DeleteSuggestion removes a suggestion when requested by the session that
// created it or by an admin, along with its advisory votes.
func (s *SuggestionService) DeleteSuggestion(id int64, sessionID string, isAdmin bool) error {
	sg, err := s.GetSuggestion(id)
	if err != nil {
		return err
	}
	if sg == nil {
		return nil
	}
	if !isAdmin && sg.SessionID != sessionID {
		return fmt.Errorf("suggestion %d does not belong to this session", id)
	}

	if _, err := s.db.Exec(`DELETE FROM preshow_votes WHERE suggestion_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete preshow votes: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM suggestions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete suggestion %d: %w", id, err)
	}
	logger.Printf("[Suggestion] Deleted suggestion %d", id)
	return nil
}

// MarkUsed flips a suggestion's used flag. The transition is one-way: a
// used suggestion never re-enters any candidate pool.
func (s *SuggestionService) MarkUsed(id int64) error {
	_, err := s.db.Exec(`
		UPDATE suggestions SET used = TRUE, voted_on = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark suggestion %d used: %w", id, err)
	}
	return nil
}
