package services

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"deathpool-service/database"
	"deathpool-service/logger"
)

// OptionService offers a bounded, randomized subset of the candidate pool
// for a phase occurrence and pins it in a persisted snapshot. Repeated
// reads of the same occurrence always see the same candidates in the same
// order, so voters and the results computation operate over one set.
type OptionService struct {
	db          *sql.DB
	suggestions *SuggestionService
	rng         *rand.Rand
}

func NewOptionService(db *sql.DB, suggestions *SuggestionService) *OptionService {
	return &OptionService{
		db:          db,
		suggestions: suggestions,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetOptions returns the option set for (show, voteType, interval),
// creating the snapshot on first read. The pool is ranked by advisory
// votes, the top randomize_amount slice is sampled down to the configured
// option count. Fewer available candidates than options is fine.
func (o *OptionService) GetOptions(showID int64, vt *database.VoteType, interval int) ([]database.Suggestion, error) {
	snapshot, err := o.readSnapshot(showID, vt.ID, interval)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		return snapshot, nil
	}

	if vt.PoolID == nil {
		return nil, nil
	}
	ranked, err := o.suggestions.FetchUnused(*vt.PoolID, vt.RandomizeAmount)
	if err != nil {
		return nil, err
	}
	sampled := SampleOptions(ranked, vt.Options, o.rng)

	if err := o.writeSnapshot(showID, vt.ID, interval, sampled); err != nil {
		return nil, err
	}

	// A concurrent first read may have won the snapshot insert; the
	// persisted set is canonical either way.
	snapshot, err = o.readSnapshot(showID, vt.ID, interval)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		return snapshot, nil
	}
	return sampled, nil
}

// SampleOptions draws a uniform sample of size options, without
// replacement, from the head slice of ranked candidates. Biases toward
// audience favorites while keeping the offered set from repeating.
func SampleOptions(ranked []database.Suggestion, options int, rng *rand.Rand) []database.Suggestion {
	if options > len(ranked) {
		options = len(ranked)
	}
	picked := rng.Perm(len(ranked))[:options]
	sampled := make([]database.Suggestion, 0, options)
	for _, idx := range picked {
		sampled = append(sampled, ranked[idx])
	}
	return sampled
}

func (o *OptionService) readSnapshot(showID, voteTypeID int64, interval int) ([]database.Suggestion, error) {
	var snapshotID int64
	err := o.db.QueryRow(`
		SELECT id FROM vote_options
		WHERE show_id = $1 AND vote_type_id = $2 AND interval_minute = $3
	`, showID, voteTypeID, interval).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read option snapshot: %w", err)
	}

	rows, err := o.db.Query(`
		SELECT s.id, s.pool_id, s.value, s.preshow_value, s.used, s.voted_on,
		       s.session_id, s.created
		FROM vote_option_entries e
		JOIN suggestions s ON s.id = e.suggestion_id
		WHERE e.vote_option_id = $1
		ORDER BY e.position ASC
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot entries: %w", err)
	}
	defer rows.Close()

	suggestions := []database.Suggestion{}
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

func (o *OptionService) writeSnapshot(showID, voteTypeID int64, interval int, sampled []database.Suggestion) error {
	var snapshotID int64
	err := o.db.QueryRow(`
		INSERT INTO vote_options (show_id, vote_type_id, interval_minute)
		VALUES ($1, $2, $3)
		ON CONFLICT (show_id, vote_type_id, interval_minute) DO NOTHING
		RETURNING id
	`, showID, voteTypeID, interval).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		// Lost the race; the winner's entries stand.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create option snapshot: %w", err)
	}

	for position, sg := range sampled {
		_, err := o.db.Exec(`
			INSERT INTO vote_option_entries (vote_option_id, position, suggestion_id)
			VALUES ($1, $2, $3)
		`, snapshotID, position, sg.ID)
		if err != nil {
			return fmt.Errorf("failed to persist snapshot entry: %w", err)
		}
	}

	logger.Printf("[Options] Pinned %d options for show %d type %d interval %d",
		len(sampled), showID, voteTypeID, interval)
	return nil
}
