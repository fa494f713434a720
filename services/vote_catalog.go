package services

import (
	"database/sql"
	"fmt"

	"deathpool-service/database"
)

// Default phase configuration. Ordering decides which phase wins when two
// windows overlap: the scan takes the last open window it sees.
const (
	StyleOptions = "options"
	StylePlayers = "players"

	OccursOnce     = "once"
	OccursInterval = "interval"
)

// VoteCatalog loads and seeds the configured vote types for shows.
type VoteCatalog struct {
	db *sql.DB
}

func NewVoteCatalog(db *sql.DB) *VoteCatalog {
	return &VoteCatalog{db: db}
}

// FetchTypes returns all vote types in scan order.
func (c *VoteCatalog) FetchTypes() ([]database.VoteType, error) {
	rows, err := c.db.Query(`
		SELECT id, name, display_name, style, pool_id, ordering, options,
		       randomize_amount, vote_length, result_length, occurs, exclusive
		FROM vote_types
		ORDER BY ordering ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vote types: %w", err)
	}
	defer rows.Close()

	var types []database.VoteType
	for rows.Next() {
		var vt database.VoteType
		if err := rows.Scan(&vt.ID, &vt.Name, &vt.DisplayName, &vt.Style,
			&vt.PoolID, &vt.Ordering, &vt.Options, &vt.RandomizeAmount,
			&vt.VoteLength, &vt.ResultLength, &vt.Occurs, &vt.Exclusive); err != nil {
			return nil, fmt.Errorf("failed to scan vote type: %w", err)
		}
		types = append(types, vt)
	}
	return types, rows.Err()
}

// GetType returns a single vote type by name.
func (c *VoteCatalog) GetType(name string) (*database.VoteType, error) {
	var vt database.VoteType
	err := c.db.QueryRow(`
		SELECT id, name, display_name, style, pool_id, ordering, options,
		       randomize_amount, vote_length, result_length, occurs, exclusive
		FROM vote_types
		WHERE name = $1
	`, name).Scan(&vt.ID, &vt.Name, &vt.DisplayName, &vt.Style, &vt.PoolID,
		&vt.Ordering, &vt.Options, &vt.RandomizeAmount, &vt.VoteLength,
		&vt.ResultLength, &vt.Occurs, &vt.Exclusive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote type %q: %w", name, err)
	}
	return &vt, nil
}

// GetPool returns a suggestion pool by name.
func (c *VoteCatalog) GetPool(name string) (*database.SuggestionPool, error) {
	var p database.SuggestionPool
	err := c.db.QueryRow(`
		SELECT id, name, display_name, created
		FROM suggestion_pools
		WHERE name = $1
	`, name).Scan(&p.ID, &p.Name, &p.DisplayName, &p.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %q: %w", name, err)
	}
	return &p, nil
}

// SeedDefaults inserts the standard pools and vote types if they are
// missing. Safe to run on every startup.
func (c *VoteCatalog) SeedDefaults(voteLength, resultLength, options, randomize int) error {
	pools := []struct {
		name, display string
	}{
		{"actions", "Actions"},
		{"items", "Items"},
		{"wildcards", "Wildcard Characters"},
		{"themes", "Themes"},
	}
	for _, p := range pools {
		_, err := c.db.Exec(`
			INSERT INTO suggestion_pools (name, display_name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, p.name, p.display)
		if err != nil {
			return fmt.Errorf("failed to seed pool %q: %w", p.name, err)
		}
	}

	types := []struct {
		name, display, style, pool, occurs string
		ordering                           int
		exclusive                          bool
	}{
		{"hero", "Hero", StylePlayers, "", OccursOnce, 1, true},
		{"villain", "Villain", StylePlayers, "", OccursOnce, 2, true},
		{"shapeshifter", "Shapeshifter", StylePlayers, "", OccursOnce, 3, false},
		{"lover", "Lover", StylePlayers, "", OccursOnce, 4, true},
		{"item", "Item", StyleOptions, "items", OccursOnce, 5, false},
		{"wildcard", "Wildcard", StyleOptions, "wildcards", OccursOnce, 6, false},
		{"incident", "Incident", StyleOptions, "actions", OccursOnce, 7, false},
		{"interval", "Interval", StyleOptions, "actions", OccursInterval, 8, false},
	}
	for _, t := range types {
		var poolID *int64
		if t.pool != "" {
			pool, err := c.GetPool(t.pool)
			if err != nil {
				return err
			}
			if pool != nil {
				poolID = &pool.ID
			}
		}
		_, err := c.db.Exec(`
			INSERT INTO vote_types (name, display_name, style, pool_id,
			                        ordering, options, randomize_amount,
			                        vote_length, result_length, occurs, exclusive)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (name) DO NOTHING
		`, t.name, t.display, t.style, poolID, t.ordering, options, randomize,
			voteLength, resultLength, t.occurs, t.exclusive)
		if err != nil {
			return fmt.Errorf("failed to seed vote type %q: %w", t.name, err)
		}
	}

	return nil
}
