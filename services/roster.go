package services

import (
	"math/rand"
)

// AssignIntervals maps interval slots to players by popping from a shuffled
// copy of the roster and reshuffling whenever the pool runs dry. Every
// player appears once per cycle; a player can repeat only after the whole
// roster has been used. Returns nil when the roster is empty.
func AssignIntervals(intervals []int, playerIDs []int64, rng *rand.Rand) map[int]int64 {
	if len(playerIDs) == 0 {
		return nil
	}

	assignment := make(map[int]int64, len(intervals))
	var pool []int64
	for _, interval := range intervals {
		if len(pool) == 0 {
			pool = append(pool[:0], playerIDs...)
			rng.Shuffle(len(pool), func(i, j int) {
				pool[i], pool[j] = pool[j], pool[i]
			})
		}
		assignment[interval] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return assignment
}
