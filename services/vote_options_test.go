package services

import (
	"math/rand"
	"testing"

	"deathpool-service/database"
)

func rankedSuggestions(n int) []database.Suggestion {
	out := make([]database.Suggestion, n)
	for i := range out {
		out[i] = database.Suggestion{ID: int64(i + 1), Value: "s"}
	}
	return out
}

func TestSampleOptionsSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if got := SampleOptions(rankedSuggestions(6), 3, rng); len(got) != 3 {
		t.Errorf("expected 3 options from a pool of 6, got %d", len(got))
	}
	if got := SampleOptions(rankedSuggestions(2), 3, rng); len(got) != 2 {
		t.Errorf("expected all 2 options from a short pool, got %d", len(got))
	}
	if got := SampleOptions(nil, 3, rng); len(got) != 0 {
		t.Errorf("expected no options from an empty pool, got %d", len(got))
	}
}

func TestSampleOptionsMembersComeFromPool(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := rankedSuggestions(6)
	ids := make(map[int64]bool, len(pool))
	for _, sg := range pool {
		ids[sg.ID] = true
	}

	for i := 0; i < 20; i++ {
		sampled := SampleOptions(pool, 3, rng)
		seen := make(map[int64]bool, len(sampled))
		for _, sg := range sampled {
			if !ids[sg.ID] {
				t.Fatalf("sampled id %d not in the pool", sg.ID)
			}
			if seen[sg.ID] {
				t.Fatalf("sampled id %d twice in one draw", sg.ID)
			}
			seen[sg.ID] = true
		}
	}
}

func TestVotePercentage(t *testing.T) {
	cases := []struct {
		subset, all, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{5, 10, 50},
		{1, 3, 33},
		{3, 3, 100},
	}
	for _, tc := range cases {
		if got := VotePercentage(tc.subset, tc.all); got != tc.want {
			t.Errorf("VotePercentage(%d, %d) = %d, want %d", tc.subset, tc.all, got, tc.want)
		}
	}
}
