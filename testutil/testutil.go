// Package testutil provides database helpers for integration tests. Tests
// that need Postgres skip themselves when no server is reachable, so the
// unit suite stays runnable anywhere.
package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"deathpool-service/database"
)

const defaultTestDB = "postgres://localhost:5432/deathpool_test?sslmode=disable"

// SetupDB connects to the test database, runs migrations and truncates
// every table. The test is skipped when the database is unreachable.
func SetupDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		url = defaultTestDB
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Skipf("skipping: cannot open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: test database unreachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	Truncate(t, db)

	t.Cleanup(func() { db.Close() })
	return db
}

// Truncate wipes all tables and resets identity columns.
func Truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`
		TRUNCATE vote_option_entries, vote_options, voted_items, live_votes,
		         preshow_votes, vote_inits, show_intervals, show_players,
		         shows, vote_types, suggestions, suggestion_pools, players
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
