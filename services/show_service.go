package services

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"deathpool-service/database"
	"deathpool-service/logger"
	"deathpool-service/timezone"
)

// ShowService owns show lifecycle: creation, activation, phase starts,
// locking and cascade deletion.
type ShowService struct {
	db      *sql.DB
	catalog *VoteCatalog
	clock   *timezone.Clock
}

func NewShowService(db *sql.DB, catalog *VoteCatalog, clock *timezone.Clock) *ShowService {
	return &ShowService{db: db, catalog: catalog, clock: clock}
}

// CreateShowParams carries the admin form for a new show.
type CreateShowParams struct {
	Scheduled time.Time
	Length    int
	ThemeID   *int64
	PlayerIDs []int64
	Intervals []int
}

// CreateShow creates the show, its roster and its interval slots. A chosen
// theme is marked used immediately (one-way transition).
func (s *ShowService) CreateShow(p CreateShowParams) (*database.Show, error) {
	if p.Length <= 0 {
		return nil, fmt.Errorf("show length must be positive")
	}
	if len(p.PlayerIDs) == 0 {
		return nil, fmt.Errorf("show requires at least one player")
	}

	var show database.Show
	err := s.db.QueryRow(`
		INSERT INTO shows (scheduled, length, theme_id)
		VALUES ($1, $2, $3)
		RETURNING id, scheduled, length, start_time, end_time, locked,
		          theme_id, recap_type_id, recap_init, current_interval, created
	`, p.Scheduled, p.Length, p.ThemeID).Scan(&show.ID, &show.Scheduled,
		&show.Length, &show.StartTime, &show.EndTime, &show.Locked,
		&show.ThemeID, &show.RecapTypeID, &show.RecapInit,
		&show.CurrentInterval, &show.Created)
	if err != nil {
		return nil, fmt.Errorf("failed to create show: %w", err)
	}

	for _, playerID := range p.PlayerIDs {
		_, err := s.db.Exec(`
			INSERT INTO show_players (show_id, player_id)
			VALUES ($1, $2)
			ON CONFLICT (show_id, player_id) DO NOTHING
		`, show.ID, playerID)
		if err != nil {
			return nil, fmt.Errorf("failed to add player %d to show: %w", playerID, err)
		}
	}

	if len(p.Intervals) > 0 {
		intervalType, err := s.catalog.GetType("interval")
		if err != nil {
			return nil, err
		}
		if intervalType != nil {
			for _, interval := range p.Intervals {
				_, err := s.db.Exec(`
					INSERT INTO show_intervals (show_id, vote_type_id, interval_minute)
					VALUES ($1, $2, $3)
					ON CONFLICT (show_id, vote_type_id, interval_minute) DO NOTHING
				`, show.ID, intervalType.ID, interval)
				if err != nil {
					return nil, fmt.Errorf("failed to add interval %d: %w", interval, err)
				}
			}
		}
	}

	if p.ThemeID != nil {
		_, err := s.db.Exec(`UPDATE suggestions SET used = TRUE WHERE id = $1`, *p.ThemeID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark theme used: %w", err)
		}
	}

	logger.Printf("[Show] Created show %d (%d players, %d intervals)",
		show.ID, len(p.PlayerIDs), len(p.Intervals))
	return &show, nil
}

// GetShow fetches a show by id, nil if absent.
func (s *ShowService) GetShow(id int64) (*database.Show, error) {
	var show database.Show
	err := s.db.QueryRow(`
		SELECT id, scheduled, length, start_time, end_time, locked, theme_id,
		       recap_type_id, recap_init, current_interval, created
		FROM shows WHERE id = $1
	`, id).Scan(&show.ID, &show.Scheduled, &show.Length, &show.StartTime,
		&show.EndTime, &show.Locked, &show.ThemeID, &show.RecapTypeID,
		&show.RecapInit, &show.CurrentInterval, &show.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get show %d: %w", id, err)
	}
	return &show, nil
}

// CurrentShow returns today's latest scheduled show, nil when there is
// none. now is explicit so the query is deterministic under test.
func (s *ShowService) CurrentShow(now time.Time) (*database.Show, error) {
	todayStart := s.clock.TodayStart(now)
	tomorrowStart := s.clock.TomorrowStart(now)

	var show database.Show
	err := s.db.QueryRow(`
		SELECT id, scheduled, length, start_time, end_time, locked, theme_id,
		       recap_type_id, recap_init, current_interval, created
		FROM shows
		WHERE scheduled >= $1 AND scheduled < $2
		ORDER BY scheduled DESC
		LIMIT 1
	`, todayStart, tomorrowStart).Scan(&show.ID, &show.Scheduled, &show.Length,
		&show.StartTime, &show.EndTime, &show.Locked, &show.ThemeID,
		&show.RecapTypeID, &show.RecapInit, &show.CurrentInterval, &show.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current show: %w", err)
	}
	return &show, nil
}

// ShowToday reports whether any show is scheduled for the local day of now.
// Users may only submit suggestions when a show is coming up.
func (s *ShowService) ShowToday(now time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM shows WHERE scheduled >= $1 AND scheduled < $2
		)
	`, s.clock.TodayStart(now), s.clock.TomorrowStart(now)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check today's shows: %w", err)
	}
	return exists, nil
}

// FetchShows lists shows: upcoming ordered soonest first, finished ordered
// most recent first.
func (s *ShowService) FetchShows(now time.Time) (upcoming, previous []database.Show, err error) {
	scan := func(rows *sql.Rows) ([]database.Show, error) {
		defer rows.Close()
		var shows []database.Show
		for rows.Next() {
			var show database.Show
			if err := rows.Scan(&show.ID, &show.Scheduled, &show.Length,
				&show.StartTime, &show.EndTime, &show.Locked, &show.ThemeID,
				&show.RecapTypeID, &show.RecapInit, &show.CurrentInterval,
				&show.Created); err != nil {
				return nil, err
			}
			shows = append(shows, show)
		}
		return shows, rows.Err()
	}

	rows, err := s.db.Query(`
		SELECT id, scheduled, length, start_time, end_time, locked, theme_id,
		       recap_type_id, recap_init, current_interval, created
		FROM shows
		WHERE scheduled >= $1
		ORDER BY scheduled ASC
	`, s.clock.TodayStart(now))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch upcoming shows: %w", err)
	}
	if upcoming, err = scan(rows); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.Query(`
		SELECT id, scheduled, length, start_time, end_time, locked, theme_id,
		       recap_type_id, recap_init, current_interval, created
		FROM shows
		WHERE end_time IS NOT NULL
		ORDER BY end_time DESC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch previous shows: %w", err)
	}
	if previous, err = scan(rows); err != nil {
		return nil, nil, err
	}
	return upcoming, previous, nil
}

// FetchPlayers returns the show roster.
func (s *ShowService) FetchPlayers(showID int64) ([]database.Player, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.name, p.photo_filename, p.date_added
		FROM show_players sp
		JOIN players p ON p.id = sp.player_id
		WHERE sp.show_id = $1
		ORDER BY p.id ASC
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
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

// FetchIntervals returns the show's interval slots in interval order.
func (s *ShowService) FetchIntervals(showID int64) ([]database.ShowInterval, error) {
	rows, err := s.db.Query(`
		SELECT id, show_id, vote_type_id, interval_minute, player_id, winner_id
		FROM show_intervals
		WHERE show_id = $1
		ORDER BY interval_minute ASC
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch intervals: %w", err)
	}
	defer rows.Close()

	var intervals []database.ShowInterval
	for rows.Next() {
		var si database.ShowInterval
		if err := rows.Scan(&si.ID, &si.ShowID, &si.VoteTypeID, &si.Interval,
			&si.PlayerID, &si.WinnerID); err != nil {
			return nil, err
		}
		intervals = append(intervals, si)
	}
	return intervals, rows.Err()
}

// ActivateShow marks the show started: sets start and end time, then
// assigns a player to every unassigned interval slot from the shuffled
// roster. Slots that already hold a player keep it.
func (s *ShowService) ActivateShow(showID int64, startTime time.Time) error {
	show, err := s.GetShow(showID)
	if err != nil {
		return err
	}
	if show == nil {
		return fmt.Errorf("show %d not found", showID)
	}

	var endTime *time.Time
	if show.Length != nil {
		end := startTime.Add(time.Duration(*show.Length) * time.Minute)
		endTime = &end
	}

	_, err = s.db.Exec(`
		UPDATE shows SET start_time = $2, end_time = $3 WHERE id = $1
	`, showID, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to activate show %d: %w", showID, err)
	}

	players, err := s.FetchPlayers(showID)
	if err != nil {
		return err
	}
	intervals, err := s.FetchIntervals(showID)
	if err != nil {
		return err
	}

	var open []int
	for _, si := range intervals {
		if si.PlayerID == nil {
			open = append(open, si.Interval)
		}
	}
	playerIDs := make([]int64, len(players))
	for i, p := range players {
		playerIDs[i] = p.ID
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	assignment := AssignIntervals(open, playerIDs, rng)
	for interval, playerID := range assignment {
		_, err := s.db.Exec(`
			UPDATE show_intervals
			SET player_id = $3
			WHERE show_id = $1 AND interval_minute = $2 AND player_id IS NULL
		`, showID, interval, playerID)
		if err != nil {
			return fmt.Errorf("failed to assign player to interval %d: %w", interval, err)
		}
	}

	logger.Printf("[Show] Activated show %d, assigned %d interval slots", showID, len(assignment))
	return nil
}

// StartPhase upserts the phase init timestamp for (show, voteType[,
// interval]), opening a new voting window. For interval phases the show's
// current interval is advanced as well. Re-starting a phase resets the init
// and thereby the live tally scope for options-style phases.
func (s *ShowService) StartPhase(showID int64, voteType string, interval int, now time.Time) error {
	vt, err := s.catalog.GetType(voteType)
	if err != nil {
		return err
	}
	if vt == nil {
		return fmt.Errorf("unknown vote type %q", voteType)
	}
	if vt.Occurs != OccursInterval {
		interval = database.NoInterval
	}

	_, err = s.db.Exec(`
		INSERT INTO vote_inits (show_id, vote_type_id, interval_minute, created)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (show_id, vote_type_id, interval_minute)
		DO UPDATE SET created = $4
	`, showID, vt.ID, interval, now)
	if err != nil {
		return fmt.Errorf("failed to start phase %q: %w", voteType, err)
	}

	if vt.Occurs == OccursInterval {
		_, err = s.db.Exec(`
			UPDATE shows SET current_interval = $2 WHERE id = $1
		`, showID, interval)
		if err != nil {
			return fmt.Errorf("failed to set current interval: %w", err)
		}
	}

	logger.Printf("[Show] Started phase %q for show %d (interval %d)", voteType, showID, interval)
	return nil
}

// StartRecap puts the show into a recap display of an already finished
// phase type.
func (s *ShowService) StartRecap(showID int64, voteType string, now time.Time) error {
	vt, err := s.catalog.GetType(voteType)
	if err != nil {
		return err
	}
	if vt == nil {
		return fmt.Errorf("unknown vote type %q", voteType)
	}
	_, err = s.db.Exec(`
		UPDATE shows SET recap_type_id = $2, recap_init = $3 WHERE id = $1
	`, showID, vt.ID, now)
	if err != nil {
		return fmt.Errorf("failed to start recap: %w", err)
	}
	return nil
}

// SetLocked flips the show lock. Locked shows reject non-admin votes.
func (s *ShowService) SetLocked(showID int64, locked bool) error {
	_, err := s.db.Exec(`UPDATE shows SET locked = $2 WHERE id = $1`, showID, locked)
	if err != nil {
		return fmt.Errorf("failed to set show %d locked=%v: %w", showID, locked, err)
	}
	return nil
}

// DeleteShow removes a show and every dependent row so no orphaned votes,
// snapshots or interval slots remain.
func (s *ShowService) DeleteShow(showID int64) error {
	cascade := []string{
		`DELETE FROM vote_option_entries WHERE vote_option_id IN
			(SELECT id FROM vote_options WHERE show_id = $1)`,
		`DELETE FROM vote_options WHERE show_id = $1`,
		`DELETE FROM live_votes WHERE show_id = $1`,
		`DELETE FROM voted_items WHERE show_id = $1`,
		`DELETE FROM vote_inits WHERE show_id = $1`,
		`DELETE FROM show_intervals WHERE show_id = $1`,
		`DELETE FROM show_players WHERE show_id = $1`,
		`DELETE FROM shows WHERE id = $1`,
	}
	for _, stmt := range cascade {
		if _, err := s.db.Exec(stmt, showID); err != nil {
			return fmt.Errorf("failed to delete show %d: %w", showID, err)
		}
	}
	logger.Printf("[Show] Deleted show %d and dependents", showID)
	return nil
}
