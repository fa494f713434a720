package services

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"deathpool-service/database"
	"deathpool-service/logger"
	"deathpool-service/timezone"
)

// Display sub-states of a phase.
const (
	DisplayDefault = "default"
	DisplayVoting  = "voting"
	DisplayResult  = "result"
)

// PhaseWindow is the active phase resolved for one instant: which vote
// type, which interval occurrence, and whether the instant falls in the
// voting or the result window.
type PhaseWindow struct {
	Type       database.VoteType
	Interval   int
	Init       time.Time
	Display    string
	VoteEnd    time.Time
	DisplayEnd time.Time
}

// ComputePhase scans the vote catalog in configured order against the
// stored init timestamps and returns the phase open at now, or nil for the
// default state. The scan keeps the last open window it sees, so when two
// windows overlap the later-configured (or, via a newer init, the
// most-recently started) phase wins. Transitions are read-triggered: this
// is a pure function of stored state and the clock, called on every poll.
func ComputePhase(types []database.VoteType, inits []database.VoteInit, now time.Time) *PhaseWindow {
	// Latest init per vote type; interval phases restart per occurrence.
	latest := make(map[int64]database.VoteInit, len(inits))
	for _, init := range inits {
		cur, ok := latest[init.VoteTypeID]
		if !ok || init.Created.After(cur.Created) {
			latest[init.VoteTypeID] = init
		}
	}

	var active *PhaseWindow
	for _, vt := range types {
		init, ok := latest[vt.ID]
		if !ok {
			continue
		}
		voteEnd := init.Created.Add(time.Duration(vt.VoteLength) * time.Second)
		displayEnd := voteEnd.Add(time.Duration(vt.ResultLength) * time.Second)

		var display string
		switch {
		case !now.Before(init.Created) && now.Before(voteEnd):
			display = DisplayVoting
		case !now.Before(voteEnd) && now.Before(displayEnd):
			display = DisplayResult
		default:
			continue
		}
		active = &PhaseWindow{
			Type:       vt,
			Interval:   init.Interval,
			Init:       init.Created,
			Display:    display,
			VoteEnd:    voteEnd,
			DisplayEnd: displayEnd,
		}
	}
	return active
}

// RecapWindow returns a result-display window for a finished phase type
// when the show's recap is running, overriding the regular scan.
func RecapWindow(show *database.Show, types []database.VoteType, now time.Time) *PhaseWindow {
	if show.RecapTypeID == nil || show.RecapInit == nil {
		return nil
	}
	for _, vt := range types {
		if vt.ID != *show.RecapTypeID {
			continue
		}
		displayEnd := show.RecapInit.Add(time.Duration(vt.ResultLength) * time.Second)
		if !now.Before(*show.RecapInit) && now.Before(displayEnd) {
			interval := database.NoInterval
			if vt.Occurs == OccursInterval && show.CurrentInterval != nil {
				interval = *show.CurrentInterval
			}
			return &PhaseWindow{
				Type:       vt,
				Interval:   interval,
				Init:       *show.RecapInit,
				Display:    DisplayResult,
				VoteEnd:    *show.RecapInit,
				DisplayEnd: displayEnd,
			}
		}
	}
	return nil
}

// Candidate is one finalize contender with its tally signals.
type Candidate struct {
	ID      int64
	Live    int
	Preshow int
	Created time.Time
}

// PickWinner orders candidates by live votes descending, advisory votes
// descending, creation time ascending, and returns the first. The ordering
// is total, so every racing finalize computes the same winner. Nil when
// the pool is empty.
func PickWinner(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Live != ranked[j].Live {
			return ranked[i].Live > ranked[j].Live
		}
		if ranked[i].Preshow != ranked[j].Preshow {
			return ranked[i].Preshow > ranked[j].Preshow
		}
		if !ranked[i].Created.Equal(ranked[j].Created) {
			return ranked[i].Created.Before(ranked[j].Created)
		}
		return ranked[i].ID < ranked[j].ID
	})
	return &ranked[0]
}

// NextInterval returns the interval following current in the sorted slot
// list, or -1 when current is the last (or unknown). A nil current means
// the first interval.
func NextInterval(sorted []int, current *int) int {
	if current == nil {
		if len(sorted) == 0 {
			return database.NoInterval
		}
		return sorted[0]
	}
	for i, interval := range sorted {
		if interval == *current && i+1 < len(sorted) {
			return sorted[i+1]
		}
	}
	return database.NoInterval
}

// VoteOption is one candidate as presented to voters.
type VoteOption struct {
	Name    string `json:"name"`
	ID      int64  `json:"id"`
	Photo   string `json:"photo_filename,omitempty"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// VoteResult is the finalized outcome of a phase.
type VoteResult struct {
	Voted   string `json:"voted,omitempty"`
	ID      int64  `json:"id,omitempty"`
	Photo   string `json:"photo_filename,omitempty"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// VoteState is the polled state descriptor for a show.
type VoteState struct {
	State       string       `json:"state"`
	Display     string       `json:"display"`
	Hour        int          `json:"hour"`
	Minute      int          `json:"minute"`
	Second      int          `json:"second"`
	UsedTypes   []string     `json:"used_types"`
	Options     []VoteOption `json:"options,omitempty"`
	Result      *VoteResult  `json:"result,omitempty"`
	Voted       bool         `json:"voted,omitempty"`
	Interval    *int         `json:"interval,omitempty"`
	PlayerID    int64        `json:"player_id,omitempty"`
	PlayerPhoto string       `json:"player_photo,omitempty"`
	Speedup     bool         `json:"speedup,omitempty"`
}

// VoteStateService resolves the live voting state of a show and performs
// the one-time winner finalization when a result window is first read.
type VoteStateService struct {
	db          *sql.DB
	catalog     *VoteCatalog
	shows       *ShowService
	options     *OptionService
	liveVotes   *LiveVoteService
	suggestions *SuggestionService
	clock       *timezone.Clock
}

func NewVoteStateService(db *sql.DB, catalog *VoteCatalog, shows *ShowService,
	options *OptionService, liveVotes *LiveVoteService,
	suggestions *SuggestionService, clock *timezone.Clock) *VoteStateService {
	return &VoteStateService{
		db:          db,
		catalog:     catalog,
		shows:       shows,
		options:     options,
		liveVotes:   liveVotes,
		suggestions: suggestions,
		clock:       clock,
	}
}

// ResolveState computes the show's state at now. Reads are the only
// trigger: the first read inside a result window finalizes the winner,
// every later read returns the persisted outcome.
func (v *VoteStateService) ResolveState(showID int64, sessionID string, now time.Time) (*VoteState, error) {
	show, err := v.shows.GetShow(showID)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, fmt.Errorf("show %d not found", showID)
	}

	types, err := v.catalog.FetchTypes()
	if err != nil {
		return nil, err
	}
	inits, err := v.fetchInits(showID)
	if err != nil {
		return nil, err
	}

	now = v.clock.ToLocal(now)
	window := ComputePhase(types, inits, now)
	if recap := RecapWindow(show, types, now); recap != nil {
		window = recap
	}

	state := &VoteState{
		State:   DisplayDefault,
		Display: DisplayDefault,
	}
	state.UsedTypes, err = v.fetchUsedTypes(showID, types)
	if err != nil {
		return nil, err
	}
	if window == nil {
		return state, nil
	}

	state.State = window.Type.Name
	state.Display = window.Display
	end := v.clock.ToLocal(window.VoteEnd)
	if window.Display == DisplayResult {
		end = v.clock.ToLocal(window.DisplayEnd)
	}
	state.Hour, state.Minute, state.Second = end.Hour(), end.Minute(), end.Second()

	if window.Type.Occurs == OccursInterval {
		if err := v.decorateInterval(state, show, window); err != nil {
			return nil, err
		}
	}

	switch window.Display {
	case DisplayVoting:
		err = v.resolveVoting(state, show, window, sessionID)
	case DisplayResult:
		err = v.resolveResult(state, show, window)
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ActiveWindow resolves the phase open for the show at now, nil when the
// show is in the default state.
func (v *VoteStateService) ActiveWindow(showID int64, now time.Time) (*PhaseWindow, error) {
	show, err := v.shows.GetShow(showID)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, fmt.Errorf("show %d not found", showID)
	}
	types, err := v.catalog.FetchTypes()
	if err != nil {
		return nil, err
	}
	inits, err := v.fetchInits(showID)
	if err != nil {
		return nil, err
	}
	now = v.clock.ToLocal(now)
	window := ComputePhase(types, inits, now)
	if recap := RecapWindow(show, types, now); recap != nil {
		window = recap
	}
	return window, nil
}

func (v *VoteStateService) fetchInits(showID int64) ([]database.VoteInit, error) {
	rows, err := v.db.Query(`
		SELECT id, show_id, vote_type_id, interval_minute, created
		FROM vote_inits
		WHERE show_id = $1
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vote inits: %w", err)
	}
	defer rows.Close()

	var inits []database.VoteInit
	for rows.Next() {
		var init database.VoteInit
		if err := rows.Scan(&init.ID, &init.ShowID, &init.VoteTypeID,
			&init.Interval, &init.Created); err != nil {
			return nil, err
		}
		inits = append(inits, init)
	}
	return inits, rows.Err()
}

// fetchUsedTypes lists non-interval phase types already finalized for the
// show, in catalog order.
func (v *VoteStateService) fetchUsedTypes(showID int64, types []database.VoteType) ([]string, error) {
	rows, err := v.db.Query(`
		SELECT DISTINCT vote_type_id FROM voted_items WHERE show_id = $1
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch used types: %w", err)
	}
	defer rows.Close()

	finalized := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		finalized[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	used := []string{}
	for _, vt := range types {
		if finalized[vt.ID] && vt.Occurs != OccursInterval {
			used = append(used, vt.Name)
		}
	}
	return used, nil
}

// decorateInterval attaches the slot player and the speedup signal. A gap
// of exactly one minute to the next slot flags speedup for the client.
func (v *VoteStateService) decorateInterval(state *VoteState, show *database.Show, window *PhaseWindow) error {
	interval := window.Interval
	state.Interval = &interval

	slots, err := v.shows.FetchIntervals(show.ID)
	if err != nil {
		return err
	}
	sorted := make([]int, 0, len(slots))
	for _, slot := range slots {
		sorted = append(sorted, slot.Interval)
		if slot.Interval == interval && slot.PlayerID != nil {
			var photo string
			err := v.db.QueryRow(`SELECT photo_filename FROM players WHERE id = $1`,
				*slot.PlayerID).Scan(&photo)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("failed to fetch slot player: %w", err)
			}
			state.PlayerID = *slot.PlayerID
			state.PlayerPhoto = photo
		}
	}

	next := NextInterval(sorted, &interval)
	if next != database.NoInterval && next-interval == 1 {
		state.Speedup = true
	}
	return nil
}

func (v *VoteStateService) resolveVoting(state *VoteState, show *database.Show, window *PhaseWindow, sessionID string) error {
	var err error
	if sessionID != "" {
		state.Voted, err = v.liveVotes.HasVoted(show.ID, window.Type.ID, window.Interval, sessionID)
		if err != nil {
			return err
		}
	}

	total, err := v.liveVotes.TotalCount(show.ID, window.Type.ID, window.Interval)
	if err != nil {
		return err
	}

	if window.Type.Style == StylePlayers {
		players, err := v.eligiblePlayers(show)
		if err != nil {
			return err
		}
		counts, err := v.liveVotes.PlayerCounts(show.ID, window.Type.ID, window.Interval)
		if err != nil {
			return err
		}
		state.Options = make([]VoteOption, 0, len(players))
		for _, p := range players {
			state.Options = append(state.Options, VoteOption{
				Name:    p.Name,
				ID:      p.ID,
				Photo:   p.PhotoFilename,
				Count:   counts[p.ID],
				Percent: VotePercentage(counts[p.ID], total),
			})
		}
		return nil
	}

	options, err := v.options.GetOptions(show.ID, &window.Type, window.Interval)
	if err != nil {
		return err
	}
	counts, err := v.liveVotes.SuggestionCounts(show.ID, window.Type.ID, window.Interval)
	if err != nil {
		return err
	}
	state.Options = make([]VoteOption, 0, len(options))
	for _, sg := range options {
		state.Options = append(state.Options, VoteOption{
			Name:    sg.Value,
			ID:      sg.ID,
			Count:   counts[sg.ID],
			Percent: VotePercentage(counts[sg.ID], total),
		})
	}
	return nil
}

func (v *VoteStateService) resolveResult(state *VoteState, show *database.Show, window *PhaseWindow) error {
	item, err := v.finalize(show, window)
	if err != nil {
		return err
	}
	if item == nil {
		// Empty candidate pool: surface the result display with no
		// winner until data exists.
		state.Result = &VoteResult{}
		return nil
	}

	total, err := v.liveVotes.TotalCount(show.ID, window.Type.ID, window.Interval)
	if err != nil {
		return err
	}
	result := &VoteResult{
		Count:   item.LiveCount,
		Percent: VotePercentage(item.LiveCount, total),
	}
	if item.SuggestionID != nil {
		sg, err := v.suggestions.GetSuggestion(*item.SuggestionID)
		if err != nil {
			return err
		}
		if sg != nil {
			result.Voted = sg.Value
			result.ID = sg.ID
		}
	} else if item.PlayerID != nil {
		var name, photo string
		err := v.db.QueryRow(`SELECT name, photo_filename FROM players WHERE id = $1`,
			*item.PlayerID).Scan(&name, &photo)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to fetch winning player: %w", err)
		}
		result.Voted = name
		result.Photo = photo
		result.ID = *item.PlayerID
	}
	state.Result = result
	return nil
}

// finalize records the phase winner exactly once. The conditional insert
// is the arbiter: every racing reader computes the same deterministic
// winner, only one insert lands, and the persisted row is what everyone
// returns.
func (v *VoteStateService) finalize(show *database.Show, window *PhaseWindow) (*database.VotedItem, error) {
	existing, err := v.readVotedItem(show.ID, window.Type.ID, window.Interval)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var winner *database.VotedItem
	if window.Type.Style == StylePlayers {
		winner, err = v.computePlayerWinner(show, window)
	} else {
		winner, err = v.computeSuggestionWinner(show, window)
	}
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, nil
	}

	res, err := v.db.Exec(`
		INSERT INTO voted_items (show_id, vote_type_id, interval_minute,
		                         suggestion_id, player_id, live_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (show_id, vote_type_id, interval_minute) DO NOTHING
	`, show.ID, window.Type.ID, window.Interval, winner.SuggestionID,
		winner.PlayerID, winner.LiveCount)
	if err != nil {
		return nil, fmt.Errorf("failed to record voted item: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if inserted > 0 {
		if winner.SuggestionID != nil {
			if err := v.suggestions.MarkUsed(*winner.SuggestionID); err != nil {
				return nil, err
			}
		}
		if window.Type.Occurs == OccursInterval {
			_, err := v.db.Exec(`
				UPDATE show_intervals SET winner_id = $4
				WHERE show_id = $1 AND vote_type_id = $2 AND interval_minute = $3
				  AND winner_id IS NULL
			`, show.ID, window.Type.ID, window.Interval, winner.SuggestionID)
			if err != nil {
				return nil, fmt.Errorf("failed to set interval winner: %w", err)
			}
		}
		logger.Printf("[VoteState] Finalized %q for show %d (interval %d)",
			window.Type.Name, show.ID, window.Interval)
	}

	return v.readVotedItem(show.ID, window.Type.ID, window.Interval)
}

func (v *VoteStateService) readVotedItem(showID, voteTypeID int64, interval int) (*database.VotedItem, error) {
	var item database.VotedItem
	err := v.db.QueryRow(`
		SELECT id, show_id, vote_type_id, interval_minute, suggestion_id,
		       player_id, live_count, created
		FROM voted_items
		WHERE show_id = $1 AND vote_type_id = $2 AND interval_minute = $3
	`, showID, voteTypeID, interval).Scan(&item.ID, &item.ShowID,
		&item.VoteTypeID, &item.Interval, &item.SuggestionID, &item.PlayerID,
		&item.LiveCount, &item.Created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read voted item: %w", err)
	}
	return &item, nil
}

func (v *VoteStateService) computeSuggestionWinner(show *database.Show, window *PhaseWindow) (*database.VotedItem, error) {
	options, err := v.options.GetOptions(show.ID, &window.Type, window.Interval)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}
	counts, err := v.liveVotes.SuggestionCounts(show.ID, window.Type.ID, window.Interval)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(options))
	for _, sg := range options {
		candidates = append(candidates, Candidate{
			ID:      sg.ID,
			Live:    counts[sg.ID],
			Preshow: sg.PreshowValue,
			Created: sg.Created,
		})
	}
	winner := PickWinner(candidates)
	if winner == nil {
		return nil, nil
	}
	return &database.VotedItem{
		ShowID:       show.ID,
		VoteTypeID:   window.Type.ID,
		Interval:     window.Interval,
		SuggestionID: &winner.ID,
		LiveCount:    winner.Live,
	}, nil
}

func (v *VoteStateService) computePlayerWinner(show *database.Show, window *PhaseWindow) (*database.VotedItem, error) {
	players, err := v.eligiblePlayers(show)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, nil
	}
	counts, err := v.liveVotes.PlayerCounts(show.ID, window.Type.ID, window.Interval)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(players))
	for _, p := range players {
		candidates = append(candidates, Candidate{
			ID:      p.ID,
			Live:    counts[p.ID],
			Created: p.DateAdded,
		})
	}
	winner := PickWinner(candidates)
	if winner == nil {
		return nil, nil
	}
	return &database.VotedItem{
		ShowID:     show.ID,
		VoteTypeID: window.Type.ID,
		Interval:   window.Interval,
		PlayerID:   &winner.ID,
		LiveCount:  winner.Live,
	}, nil
}

// eligiblePlayers is the roster minus players already holding an exclusive
// role (hero, villain, lover) for this show.
func (v *VoteStateService) eligiblePlayers(show *database.Show) ([]database.Player, error) {
	players, err := v.shows.FetchPlayers(show.ID)
	if err != nil {
		return nil, err
	}

	rows, err := v.db.Query(`
		SELECT vi.player_id
		FROM voted_items vi
		JOIN vote_types vt ON vt.id = vi.vote_type_id
		WHERE vi.show_id = $1 AND vt.exclusive = TRUE AND vi.player_id IS NOT NULL
	`, show.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exclusive role holders: %w", err)
	}
	defer rows.Close()

	taken := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	eligible := make([]database.Player, 0, len(players))
	for _, p := range players {
		if !taken[p.ID] {
			eligible = append(eligible, p)
		}
	}
	return eligible, nil
}
