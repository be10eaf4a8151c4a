package session

import (
	"math/rand/v2"
	"sort"

	"github.com/abhisek/examtaker/internal/exam"
)

// Sequence returns the presented order of question ids.
//
// Without randomization questions are sorted by order, ties broken by id.
// With randomization the result is a uniform permutation drawn from rng, or
// from the global source when rng is nil. The input slice is not modified.
func Sequence(questions []exam.Question, randomized bool, rng *rand.Rand) []int {
	ids := make([]int, len(questions))

	if randomized {
		for i, q := range questions {
			ids[i] = q.ID
		}
		swap := func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }
		if rng != nil {
			rng.Shuffle(len(ids), swap)
		} else {
			rand.Shuffle(len(ids), swap)
		}
		return ids
	}

	sorted := make([]exam.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SortKey(), sorted[j].SortKey()
		if a != b {
			return a < b
		}
		return sorted[i].ID < sorted[j].ID
	})
	for i, q := range sorted {
		ids[i] = q.ID
	}
	return ids
}

// sameIDSet reports whether order is a permutation of the question ids.
func sameIDSet(order []int, questions []exam.Question) bool {
	if len(order) != len(questions) {
		return false
	}
	want := make(map[int]int, len(questions))
	for _, q := range questions {
		want[q.ID]++
	}
	for _, id := range order {
		if want[id] == 0 {
			return false
		}
		want[id]--
	}
	return true
}
