package session

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/abhisek/examtaker/internal/exam"
)

func intp(v int) *int { return &v }

func TestSequence_SortedByOrderThenID(t *testing.T) {
	qs := []exam.Question{
		{ID: 7, Order: intp(2)},
		{ID: 3, Order: intp(1)},
		{ID: 5, Order: intp(2)},
		{ID: 9, Order: nil}, // sorts as 0
		{ID: 1, Order: intp(1)},
	}

	got := Sequence(qs, false, nil)
	want := []int{9, 1, 3, 5, 7}
	if !slices.Equal(got, want) {
		t.Errorf("Sequence = %v, want %v", got, want)
	}

	// Deterministic across calls and independent of input order.
	reversed := slices.Clone(qs)
	slices.Reverse(reversed)
	if again := Sequence(reversed, false, nil); !slices.Equal(again, want) {
		t.Errorf("Sequence(reversed) = %v, want %v", again, want)
	}
}

func TestSequence_DoesNotMutateInput(t *testing.T) {
	qs := []exam.Question{{ID: 2, Order: intp(2)}, {ID: 1, Order: intp(1)}}
	Sequence(qs, false, nil)
	if qs[0].ID != 2 {
		t.Error("input slice was reordered")
	}
}

func TestSequence_RandomizedPreservesSet(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for n := 0; n <= 30; n++ {
		qs := make([]exam.Question, n)
		for i := range qs {
			qs[i] = exam.Question{ID: 100 + i}
		}
		got := Sequence(qs, true, rng)
		if len(got) != n {
			t.Fatalf("n=%d: len = %d", n, len(got))
		}
		if !sameIDSet(got, qs) {
			t.Fatalf("n=%d: %v is not a permutation of the input ids", n, got)
		}
	}
}

func TestSequence_RandomizedVaries(t *testing.T) {
	qs := []exam.Question{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	rng := rand.New(rand.NewPCG(42, 42))

	seen := map[string]bool{}
	for range 50 {
		got := Sequence(qs, true, rng)
		seen[slicesKey(got)] = true
	}
	if len(seen) < 2 {
		t.Errorf("50 shuffles of 4 ids produced %d distinct orders", len(seen))
	}
}

func TestSameIDSet(t *testing.T) {
	qs := []exam.Question{{ID: 1}, {ID: 2}, {ID: 3}}
	tests := []struct {
		order []int
		want  bool
	}{
		{[]int{3, 1, 2}, true},
		{[]int{1, 2}, false},
		{[]int{1, 2, 2}, false},
		{[]int{1, 2, 4}, false},
	}
	for _, tt := range tests {
		if got := sameIDSet(tt.order, qs); got != tt.want {
			t.Errorf("sameIDSet(%v) = %v, want %v", tt.order, got, tt.want)
		}
	}
}

func slicesKey(ids []int) string {
	b := make([]byte, 0, len(ids)*2)
	for _, id := range ids {
		b = append(b, byte('0'+id), ',')
	}
	return string(b)
}
