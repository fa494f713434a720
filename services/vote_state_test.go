package services

import (
	"testing"
	"time"

	"deathpool-service/database"
)

func testTypes() []database.VoteType {
	return []database.VoteType{
		{ID: 1, Name: "hero", Style: StylePlayers, Ordering: 1, VoteLength: 25, ResultLength: 8, Occurs: OccursOnce, Exclusive: true},
		{ID: 2, Name: "villain", Style: StylePlayers, Ordering: 2, VoteLength: 25, ResultLength: 8, Occurs: OccursOnce, Exclusive: true},
		{ID: 8, Name: "interval", Style: StyleOptions, Ordering: 8, VoteLength: 25, ResultLength: 8, Occurs: OccursInterval},
	}
}

func TestComputePhaseWindowEdges(t *testing.T) {
	types := testTypes()
	t0 := time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	inits := []database.VoteInit{
		{ID: 1, ShowID: 1, VoteTypeID: 1, Interval: database.NoInterval, Created: t0},
	}

	cases := []struct {
		name    string
		now     time.Time
		display string
	}{
		{"before init", t0.Add(-time.Second), ""},
		{"at init", t0, DisplayVoting},
		{"mid vote", t0.Add(10 * time.Second), DisplayVoting},
		{"last voting instant", t0.Add(25*time.Second - time.Nanosecond), DisplayVoting},
		{"vote end boundary", t0.Add(25 * time.Second), DisplayResult},
		{"mid result", t0.Add(30 * time.Second), DisplayResult},
		{"display end boundary", t0.Add(33 * time.Second), ""},
		{"long after", t0.Add(time.Hour), ""},
	}

	for _, tc := range cases {
		window := ComputePhase(types, inits, tc.now)
		if tc.display == "" {
			if window != nil {
				t.Errorf("%s: expected no window, got %q", tc.name, window.Display)
			}
			continue
		}
		if window == nil {
			t.Errorf("%s: expected %q window, got none", tc.name, tc.display)
			continue
		}
		if window.Display != tc.display {
			t.Errorf("%s: expected display %q, got %q", tc.name, tc.display, window.Display)
		}
	}
}

func TestComputePhaseOverlapLaterTypeWins(t *testing.T) {
	types := testTypes()
	t0 := time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	inits := []database.VoteInit{
		{ID: 1, ShowID: 1, VoteTypeID: 1, Interval: database.NoInterval, Created: t0},
		{ID: 2, ShowID: 1, VoteTypeID: 2, Interval: database.NoInterval, Created: t0.Add(5 * time.Second)},
	}

	// Both windows open: the later-configured type wins the scan.
	window := ComputePhase(types, inits, t0.Add(10*time.Second))
	if window == nil {
		t.Fatal("expected an active window")
	}
	if window.Type.Name != "villain" {
		t.Errorf("expected villain to win the overlap, got %q", window.Type.Name)
	}

	// First window expired, second still open.
	window = ComputePhase(types, inits, t0.Add(31*time.Second))
	if window == nil || window.Type.Name != "villain" {
		t.Errorf("expected villain window after hero expired, got %+v", window)
	}
}

func TestComputePhaseLatestInitPerType(t *testing.T) {
	types := testTypes()
	t0 := time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)
	restart := t0.Add(2 * time.Minute)
	inits := []database.VoteInit{
		{ID: 1, ShowID: 1, VoteTypeID: 8, Interval: 15, Created: t0},
		{ID: 2, ShowID: 1, VoteTypeID: 8, Interval: 30, Created: restart},
	}

	window := ComputePhase(types, inits, restart.Add(5*time.Second))
	if window == nil {
		t.Fatal("expected an active window")
	}
	if window.Interval != 30 {
		t.Errorf("expected the restarted interval 30, got %d", window.Interval)
	}
	if !window.Init.Equal(restart) {
		t.Errorf("expected latest init to win, got %v", window.Init)
	}
}

func TestPickWinnerTieBreak(t *testing.T) {
	early := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	cases := []struct {
		name       string
		candidates []Candidate
		want       int64
	}{
		{
			"live votes dominate",
			[]Candidate{{ID: 1, Live: 2, Preshow: 99}, {ID: 2, Live: 3, Preshow: 0}},
			2,
		},
		{
			"preshow breaks live tie",
			[]Candidate{{ID: 1, Live: 5, Preshow: 1}, {ID: 2, Live: 5, Preshow: 7}},
			2,
		},
		{
			"older entry breaks full tie",
			[]Candidate{{ID: 1, Live: 5, Preshow: 7, Created: late}, {ID: 2, Live: 5, Preshow: 7, Created: early}},
			2,
		},
		{
			"zero votes still yields a winner",
			[]Candidate{{ID: 3, Created: late}, {ID: 4, Created: early}},
			4,
		},
	}

	for _, tc := range cases {
		winner := PickWinner(tc.candidates)
		if winner == nil {
			t.Fatalf("%s: expected a winner", tc.name)
		}
		if winner.ID != tc.want {
			t.Errorf("%s: expected winner %d, got %d", tc.name, tc.want, winner.ID)
		}
	}
}

func TestPickWinnerDeterministicAcrossOrderings(t *testing.T) {
	early := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{ID: 1, Live: 2, Preshow: 4, Created: early},
		{ID: 2, Live: 2, Preshow: 4, Created: early},
		{ID: 3, Live: 2, Preshow: 4, Created: early.Add(time.Minute)},
	}
	reversed := []Candidate{candidates[2], candidates[1], candidates[0]}

	a := PickWinner(candidates)
	b := PickWinner(reversed)
	if a == nil || b == nil || a.ID != b.ID {
		t.Fatalf("winner depends on input order: %+v vs %+v", a, b)
	}
	if a.ID != 1 {
		t.Errorf("expected id to break the exact tie, got %d", a.ID)
	}
}

func TestPickWinnerEmpty(t *testing.T) {
	if PickWinner(nil) != nil {
		t.Error("expected nil winner for empty pool")
	}
}

func TestNextInterval(t *testing.T) {
	sorted := []int{15, 30, 45}

	if got := NextInterval(sorted, nil); got != 15 {
		t.Errorf("expected first interval 15, got %d", got)
	}
	cur := 15
	if got := NextInterval(sorted, &cur); got != 30 {
		t.Errorf("expected 30 after 15, got %d", got)
	}
	cur = 45
	if got := NextInterval(sorted, &cur); got != database.NoInterval {
		t.Errorf("expected no interval after the last, got %d", got)
	}
	cur = 99
	if got := NextInterval(sorted, &cur); got != database.NoInterval {
		t.Errorf("expected no interval for unknown current, got %d", got)
	}
}

func TestRecapWindowOverride(t *testing.T) {
	types := testTypes()
	recapInit := time.Date(2026, 3, 7, 22, 0, 0, 0, time.UTC)
	typeID := int64(1)
	show := &database.Show{ID: 1, RecapTypeID: &typeID, RecapInit: &recapInit}

	window := RecapWindow(show, types, recapInit.Add(3*time.Second))
	if window == nil {
		t.Fatal("expected a recap window")
	}
	if window.Display != DisplayResult {
		t.Errorf("recap shows the result display, got %q", window.Display)
	}
	if window.Type.ID != typeID {
		t.Errorf("expected recap of type %d, got %d", typeID, window.Type.ID)
	}

	if RecapWindow(show, types, recapInit.Add(9*time.Second)) != nil {
		t.Error("expected recap window closed after result length")
	}
	if RecapWindow(&database.Show{ID: 1}, types, recapInit) != nil {
		t.Error("expected no recap window without recap fields")
	}
}
