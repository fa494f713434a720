package services

import (
	"database/sql"
	"fmt"

	"deathpool-service/database"
)

// PlayerService is thin CRUD over the player roster pool.
type PlayerService struct {
	db *sql.DB
}

func NewPlayerService(db *sql.DB) *PlayerService {
	return &PlayerService{db: db}
}

func (s *PlayerService) CreatePlayer(name, photoFilename string) (*database.Player, error) {
	if name == "" || photoFilename == "" {
		return nil, fmt.Errorf("player name and photo are required")
	}
	var p database.Player
	err := s.db.QueryRow(`
		INSERT INTO players (name, photo_filename)
		VALUES ($1, $2)
		RETURNING id, name, photo_filename, date_added
	`, name, photoFilename).Scan(&p.ID, &p.Name, &p.PhotoFilename, &p.DateAdded)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return &p, nil
}

func (s *PlayerService) GetPlayer(id int64) (*database.Player, error) {
	var p database.Player
	err := s.db.QueryRow(`
		SELECT id, name, photo_filename, date_added FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.PhotoFilename, &p.DateAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &p, nil
}

func (s *PlayerService) FetchPlayers() ([]database.Player, error) {
	rows, err := s.db.Query(`
		SELECT id, name, photo_filename, date_added FROM players ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch players: %w", err)
	}
	defer rows.Close()

	var players []database.Player
	for rows.Next() {
		var p database.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.PhotoFilename, &p.DateAdded); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *PlayerService) DeletePlayer(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM players WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	return nil
}
