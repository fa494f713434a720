package services

import (
	"math/rand"
	"testing"
)

func TestAssignIntervalsRoundRobin(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	intervals := []int{10, 20, 30, 40, 50, 60, 70}
	players := []int64{1, 2, 3}

	assignment := AssignIntervals(intervals, players, rng)
	if len(assignment) != len(intervals) {
		t.Fatalf("expected every slot assigned, got %d of %d", len(assignment), len(intervals))
	}

	counts := make(map[int64]int)
	for _, playerID := range assignment {
		counts[playerID]++
	}
	// 7 slots over 3 players: no one sits out while another plays twice more.
	min, max := len(intervals), 0
	for _, p := range players {
		c := counts[p]
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	if max-min > 1 {
		t.Errorf("uneven assignment: counts %v", counts)
	}
}

func TestAssignIntervalsNoAdjacentRepeatWithinPass(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	intervals := []int{10, 20, 30}
	players := []int64{1, 2, 3}

	assignment := AssignIntervals(intervals, players, rng)
	seen := make(map[int64]bool)
	for _, interval := range intervals {
		playerID := assignment[interval]
		if seen[playerID] {
			t.Fatalf("player %d assigned twice inside one roster pass: %v", playerID, assignment)
		}
		seen[playerID] = true
	}
}

func TestAssignIntervalsEmptyRoster(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := AssignIntervals([]int{10, 20}, nil, rng); got != nil {
		t.Errorf("expected nil assignment without players, got %v", got)
	}
	if got := AssignIntervals(nil, []int64{1}, rng); len(got) != 0 {
		t.Errorf("expected empty assignment without slots, got %v", got)
	}
}
