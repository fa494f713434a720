package services

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deathpool-service/database"
	"deathpool-service/testutil"
	"deathpool-service/timezone"
)

type fixture struct {
	db          *sql.DB
	catalog     *VoteCatalog
	shows       *ShowService
	players     *PlayerService
	suggestions *SuggestionService
	liveVotes   *LiveVoteService
	options     *OptionService
	state       *VoteStateService
	clock       *timezone.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupDB(t)

	clock, err := timezone.NewClock("UTC")
	require.NoError(t, err)

	catalog := NewVoteCatalog(db)
	require.NoError(t, catalog.SeedDefaults(25, 8, 3, 6))

	shows := NewShowService(db, catalog, clock)
	suggestions := NewSuggestionService(db)
	liveVotes := NewLiveVoteService(db)
	options := NewOptionService(db, suggestions)

	return &fixture{
		db:          db,
		catalog:     catalog,
		shows:       shows,
		players:     NewPlayerService(db),
		suggestions: suggestions,
		liveVotes:   liveVotes,
		options:     options,
		state:       NewVoteStateService(db, catalog, shows, options, liveVotes, suggestions, clock),
		clock:       clock,
	}
}

func (f *fixture) seedShow(t *testing.T, playerCount int) (*database.Show, []int64) {
	t.Helper()
	playerIDs := make([]int64, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		p, err := f.players.CreatePlayer(fmt.Sprintf("Player %d", i+1), fmt.Sprintf("player%d.jpg", i+1))
		require.NoError(t, err)
		playerIDs = append(playerIDs, p.ID)
	}

	show, err := f.shows.CreateShow(CreateShowParams{
		Scheduled: time.Now().UTC(),
		Length:    60,
		PlayerIDs: playerIDs,
		Intervals: []int{15, 30},
	})
	require.NoError(t, err)
	return show, playerIDs
}

func (f *fixture) seedSuggestions(t *testing.T, pool string, values ...string) []int64 {
	t.Helper()
	p, err := f.catalog.GetPool(pool)
	require.NoError(t, err)
	require.NotNil(t, p)

	ids := make([]int64, 0, len(values))
	for i, v := range values {
		sg, err := f.suggestions.CreateSuggestion(p.ID, v, fmt.Sprintf("author-%d", i))
		require.NoError(t, err)
		ids = append(ids, sg.ID)
	}
	return ids
}

func (f *fixture) castVote(t *testing.T, show *database.Show, vt *database.VoteType,
	interval int, suggestionID, playerID *int64, session string) bool {
	t.Helper()
	accepted, err := f.liveVotes.SubmitLiveVote(database.LiveVote{
		ShowID:       show.ID,
		VoteTypeID:   vt.ID,
		Interval:     interval,
		SuggestionID: suggestionID,
		PlayerID:     playerID,
		SessionID:    session,
	})
	require.NoError(t, err)
	return accepted
}

func TestFinalizeOnceAndReadStable(t *testing.T) {
	f := newFixture(t)
	show, _ := f.seedShow(t, 3)
	f.seedSuggestions(t, "actions", "slips on a banana", "falls off stage", "loses a bet")

	vt, err := f.catalog.GetType("incident")
	require.NoError(t, err)
	require.NotNil(t, vt)

	t0 := time.Now().UTC()
	require.NoError(t, f.shows.StartPhase(show.ID, "incident", 0, t0))

	voting, err := f.state.ResolveState(show.ID, "sess-a", t0.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, DisplayVoting, voting.Display)
	require.Equal(t, "incident", voting.State)
	require.NotEmpty(t, voting.Options)

	// Two sessions back the second option, one backs the first.
	target := voting.Options[len(voting.Options)-1].ID
	other := voting.Options[0].ID
	require.True(t, f.castVote(t, show, vt, database.NoInterval, &target, nil, "sess-a"))
	require.True(t, f.castVote(t, show, vt, database.NoInterval, &target, nil, "sess-b"))
	if other != target {
		require.True(t, f.castVote(t, show, vt, database.NoInterval, &other, nil, "sess-c"))
	}

	first, err := f.state.ResolveState(show.ID, "sess-a", t0.Add(26*time.Second))
	require.NoError(t, err)
	require.Equal(t, DisplayResult, first.Display)
	require.NotNil(t, first.Result)
	require.Equal(t, target, first.Result.ID)

	// Later reads return the persisted outcome, even if tallies moved.
	require.True(t, f.castVote(t, show, vt, database.NoInterval, &other, nil, "sess-d"))
	second, err := f.state.ResolveState(show.ID, "sess-b", t0.Add(30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, second.Result)
	require.Equal(t, target, second.Result.ID)

	var finals int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM voted_items WHERE show_id = $1`, show.ID).Scan(&finals))
	require.Equal(t, 1, finals)

	// Winner leaves the pool for good.
	pool, err := f.catalog.GetPool("actions")
	require.NoError(t, err)
	unused, err := f.suggestions.FetchUnused(pool.ID, 100)
	require.NoError(t, err)
	for _, sg := range unused {
		require.NotEqual(t, target, sg.ID)
	}
}

func TestDuplicateSessionVoteRejected(t *testing.T) {
	f := newFixture(t)
	show, _ := f.seedShow(t, 2)
	ids := f.seedSuggestions(t, "actions", "trips over a cable")

	vt, err := f.catalog.GetType("incident")
	require.NoError(t, err)

	require.True(t, f.castVote(t, show, vt, database.NoInterval, &ids[0], nil, "sess-a"))
	require.False(t, f.castVote(t, show, vt, database.NoInterval, &ids[0], nil, "sess-a"))

	total, err := f.liveVotes.TotalCount(show.ID, vt.ID, database.NoInterval)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestOptionSnapshotStable(t *testing.T) {
	f := newFixture(t)
	show, _ := f.seedShow(t, 2)
	f.seedSuggestions(t, "items", "rubber chicken", "chainsaw", "umbrella", "teapot")

	vt, err := f.catalog.GetType("item")
	require.NoError(t, err)
	require.NotNil(t, vt)

	first, err := f.options.GetOptions(show.ID, vt, database.NoInterval)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// New submissions after the first read must not change the ballot.
	f.seedSuggestions(t, "items", "anvil", "kazoo")
	second, err := f.options.GetOptions(show.ID, vt, database.NoInterval)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestExclusiveRoleRemovesWinnerFromLaterBallots(t *testing.T) {
	f := newFixture(t)
	show, playerIDs := f.seedShow(t, 3)

	hero, err := f.catalog.GetType("hero")
	require.NoError(t, err)

	t0 := time.Now().UTC()
	require.NoError(t, f.shows.StartPhase(show.ID, "hero", 0, t0))
	require.True(t, f.castVote(t, show, hero, database.NoInterval, nil, &playerIDs[1], "sess-a"))

	result, err := f.state.ResolveState(show.ID, "sess-a", t0.Add(26*time.Second))
	require.NoError(t, err)
	require.NotNil(t, result.Result)
	require.Equal(t, playerIDs[1], result.Result.ID)

	require.Contains(t, result.UsedTypes, "hero")

	t1 := t0.Add(time.Minute)
	require.NoError(t, f.shows.StartPhase(show.ID, "villain", 0, t1))
	voting, err := f.state.ResolveState(show.ID, "sess-a", t1.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, DisplayVoting, voting.Display)
	require.Len(t, voting.Options, 2)
	for _, opt := range voting.Options {
		require.NotEqual(t, playerIDs[1], opt.ID)
	}
}

func TestPreshowVoteIdempotentPerSession(t *testing.T) {
	f := newFixture(t)
	ids := f.seedSuggestions(t, "wildcards", "a confused mime")

	accepted, err := f.suggestions.SubmitPreshowVote(ids[0], "sess-a")
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = f.suggestions.SubmitPreshowVote(ids[0], "sess-a")
	require.NoError(t, err)
	require.False(t, accepted)

	sg, err := f.suggestions.GetSuggestion(ids[0])
	require.NoError(t, err)
	require.Equal(t, 1, sg.PreshowValue)
}

func TestPhaseRestartResetsWindow(t *testing.T) {
	f := newFixture(t)
	show, _ := f.seedShow(t, 2)
	f.seedSuggestions(t, "actions", "sneezes dramatically", "starts a flash mob")

	t0 := time.Now().UTC()
	require.NoError(t, f.shows.StartPhase(show.ID, "interval", 15, t0))

	state, err := f.state.ResolveState(show.ID, "sess-a", t0.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, DisplayVoting, state.Display)
	require.NotNil(t, state.Interval)
	require.Equal(t, 15, *state.Interval)

	// Next occurrence opens a fresh window under the new interval.
	t1 := t0.Add(15 * time.Minute)
	require.NoError(t, f.shows.StartPhase(show.ID, "interval", 30, t1))

	state, err = f.state.ResolveState(show.ID, "sess-a", t1.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, DisplayVoting, state.Display)
	require.Equal(t, 30, *state.Interval)

	show2, err := f.shows.GetShow(show.ID)
	require.NoError(t, err)
	require.NotNil(t, show2.CurrentInterval)
	require.Equal(t, 30, *show2.CurrentInterval)
}
