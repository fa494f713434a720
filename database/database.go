package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect opens the database and verifies the connection.
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate runs the schema migrations.
func Migrate(db *sql.DB) error {
	migrations := []string{
		// Players
		`CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			photo_filename VARCHAR(255) NOT NULL,
			date_added TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Suggestion pools (actions, items, wildcards, incidents, themes)
		`CREATE TABLE IF NOT EXISTS suggestion_pools (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(50) UNIQUE NOT NULL,
			display_name VARCHAR(100) NOT NULL,
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Suggestions (candidates) with cumulative pre-show counter and
		// one-way used flag
		`CREATE TABLE IF NOT EXISTS suggestions (
			id BIGSERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			value TEXT NOT NULL,
			preshow_value INTEGER NOT NULL DEFAULT 0,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			voted_on BOOLEAN NOT NULL DEFAULT FALSE,
			session_id VARCHAR(100) NOT NULL DEFAULT '',
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_pool_id ON suggestions(pool_id)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_used ON suggestions(used)`,

		// Vote catalog: configured phase types, scanned in ordering order
		`CREATE TABLE IF NOT EXISTS vote_types (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(50) UNIQUE NOT NULL,
			display_name VARCHAR(100) NOT NULL,
			style VARCHAR(20) NOT NULL DEFAULT 'options',
			pool_id BIGINT,
			ordering INTEGER NOT NULL DEFAULT 0,
			options INTEGER NOT NULL DEFAULT 3,
			randomize_amount INTEGER NOT NULL DEFAULT 6,
			vote_length INTEGER NOT NULL DEFAULT 25,
			result_length INTEGER NOT NULL DEFAULT 8,
			occurs VARCHAR(20) NOT NULL DEFAULT 'once',
			exclusive BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		// Shows
		`CREATE TABLE IF NOT EXISTS shows (
			id BIGSERIAL PRIMARY KEY,
			scheduled TIMESTAMP,
			length INTEGER,
			start_time TIMESTAMP,
			end_time TIMESTAMP,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			theme_id BIGINT,
			recap_type_id BIGINT,
			recap_init TIMESTAMP,
			current_interval INTEGER,
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shows_scheduled ON shows(scheduled)`,

		// Show roster
		`CREATE TABLE IF NOT EXISTS show_players (
			id BIGSERIAL PRIMARY KEY,
			show_id BIGINT NOT NULL,
			player_id BIGINT NOT NULL,
			UNIQUE (show_id, player_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_show_players_show_id ON show_players(show_id)`,

		// Timed interval slots; player assigned on activation, winner
		// finalized once
		`CREATE TABLE IF NOT EXISTS show_intervals (
			id BIGSERIAL PRIMARY KEY,
			show_id BIGINT NOT NULL,
			vote_type_id BIGINT NOT NULL,
			interval_minute INTEGER NOT NULL,
			player_id BIGINT,
			winner_id BIGINT,
			UNIQUE (show_id, vote_type_id, interval_minute)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_show_intervals_show_id ON show_intervals(show_id)`,

		// Phase init timestamps, one row per (show, phase[, interval])
		`CREATE TABLE IF NOT EXISTS vote_inits (
			id BIGSERIAL PRIMARY KEY,
			show_id BIGINT NOT NULL,
			vote_type_id BIGINT NOT NULL,
			interval_minute INTEGER NOT NULL DEFAULT -1,
			created TIMESTAMP NOT NULL,
			UNIQUE (show_id, vote_type_id, interval_minute)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vote_inits_show_id ON vote_inits(show_id)`,

		// Pre-show (advisory) votes, one per (suggestion, session)
		`CREATE TABLE IF NOT EXISTS preshow_votes (
			id BIGSERIAL PRIMARY KEY,
			suggestion_id BIGINT NOT NULL,
			session_id VARCHAR(100) NOT NULL,
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (suggestion_id, session_id)
		)`,

		// Live votes, one per (show, phase, interval, session)
		`CREATE TABLE IF NOT EXISTS live_votes (
			id BIGSERIAL PRIMARY KEY,
			show_id BIGINT NOT NULL,
			vote_type_id BIGINT NOT NULL,
			interval_minute INTEGER NOT NULL DEFAULT -1,
			suggestion_id BIGINT,
			player_id BIGINT,
			session_id VARCHAR(100) NOT NULL,
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (show_id, vote_type_id, interval_minute, session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_live_votes_show_phase ON live_votes(show_id, vote_type_id, interval_minute)`,

		// Sampled option snapshots, created lazily on first read of a phase
		`CREATE TABLE IF NOT EXISTS vote_options (
			id BIGSERIAL PRIMARY KEY,
			show_id BIGINT NOT NULL,
			vote_type_id BIGINT NOT NULL,
			interval_minute INTEGER NOT NULL DEFAULT -1,
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (show_id, vote_type_id, interval_minute)
		)`,
		`CREATE TABLE IF NOT EXISTS vote_option_entries (
			id BIGSERIAL PRIMARY KEY,
			vote_option_id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			suggestion_id BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vote_option_entries_option_id ON vote_option_entries(vote_option_id)`,

		// Finalized winners, one per phase occurrence
		`CREATE TABLE IF NOT EXISTS voted_items (
			id BIGSERIAL PRIMARY KEY,
			show_id BIGINT NOT NULL,
			vote_type_id BIGINT NOT NULL,
			interval_minute INTEGER NOT NULL DEFAULT -1,
			suggestion_id BIGINT,
			player_id BIGINT,
			live_count INTEGER NOT NULL DEFAULT 0,
			created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (show_id, vote_type_id, interval_minute)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_voted_items_show_id ON voted_items(show_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
