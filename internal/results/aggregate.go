// Package results builds per-type and per-question views of a graded
// result. Nothing here recomputes a grade; it groups and cross-checks what
// the grading service returned.
package results

import (
	"math"
	"sort"

	"github.com/abhisek/examtaker/internal/exam"
)

// TypeSummary is the roll-up of one question type.
type TypeSummary struct {
	Type         exam.QuestionType
	Count        int
	PointsEarned float64
	MaxPoints    float64
	Percentage   float64
	Submissions  []exam.GradedSubmission
}

// AggregateByType groups graded submissions by question type and sums
// their points. Submissions without a type are grouped under
// exam.TypeUnknown. A type with no available points has percentage 0.
func AggregateByType(r *exam.Result) map[exam.QuestionType]*TypeSummary {
	out := make(map[exam.QuestionType]*TypeSummary)
	if r == nil {
		return out
	}
	for _, g := range r.Submissions {
		t := g.QuestionType
		if t == "" {
			t = exam.TypeUnknown
		}
		s, ok := out[t]
		if !ok {
			s = &TypeSummary{Type: t}
			out[t] = s
		}
		s.Count++
		s.PointsEarned += g.PointsEarned
		s.MaxPoints += g.MaxPoints
		s.Submissions = append(s.Submissions, g)
	}
	for _, s := range out {
		s.Percentage = Percent(s.PointsEarned, s.MaxPoints)
	}
	return out
}

// Ordered returns the summaries with known types first in their canonical
// order, followed by anything else sorted by name.
func Ordered(byType map[exam.QuestionType]*TypeSummary) []*TypeSummary {
	rank := make(map[exam.QuestionType]int, len(exam.QuestionTypes))
	for i, t := range exam.QuestionTypes {
		rank[t] = i
	}
	out := make([]*TypeSummary, 0, len(byType))
	for _, s := range byType {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i].Type]
		rj, jok := rank[out[j].Type]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].Type < out[j].Type
		}
	})
	return out
}

// SelectQuestion finds the graded submission of a question. A miss is a
// normal result for drill-down views.
func SelectQuestion(r *exam.Result, questionID int) (exam.GradedSubmission, bool) {
	if r == nil {
		return exam.GradedSubmission{}, false
	}
	for _, g := range r.Submissions {
		if g.QuestionID == questionID {
			return g, true
		}
	}
	return exam.GradedSubmission{}, false
}

// Percent returns earned/max as a percentage rounded to one decimal, or 0
// when max is 0.
func Percent(earned, maxPoints float64) float64 {
	if maxPoints == 0 {
		return 0
	}
	return Round1(earned / maxPoints * 100)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
