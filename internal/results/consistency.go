package results

import (
	"math"

	"github.com/abhisek/examtaker/internal/exam"
)

// pointsEpsilon absorbs float summation order, nothing more.
const pointsEpsilon = 1e-9

// TypeMismatch is a per-type disagreement between the aggregated totals and
// the report's own question_type_summary.
type TypeMismatch struct {
	Type       exam.QuestionType
	Aggregated exam.ReportedTotal
	Reported   exam.ReportedTotal
}

// Consistency is the outcome of cross-checking a result.
type Consistency struct {
	// Checked is false when the result carries no per-question records.
	Checked         bool
	AggregatedTotal float64
	ReportedTotal   float64
	TotalMatches    bool
	TypeMismatches  []TypeMismatch
}

// OK reports whether nothing disagreed.
func (c Consistency) OK() bool {
	return !c.Checked || (c.TotalMatches && len(c.TypeMismatches) == 0)
}

// CheckConsistency verifies that the per-type points sum to the result's
// total and, when the report includes one, that its per-type summary agrees
// with the aggregated one.
func CheckConsistency(r *exam.Result, byType map[exam.QuestionType]*TypeSummary) Consistency {
	c := Consistency{TotalMatches: true}
	if r == nil || !r.Detailed {
		return c
	}
	c.Checked = true
	c.ReportedTotal = r.TotalPoints
	for _, s := range byType {
		c.AggregatedTotal += s.PointsEarned
	}
	c.TotalMatches = pointsEqual(c.AggregatedTotal, r.TotalPoints)

	if len(r.TypeSummary) == 0 {
		return c
	}
	for _, t := range typeUnion(byType, r.TypeSummary) {
		var agg exam.ReportedTotal
		if s, ok := byType[t]; ok {
			agg = exam.ReportedTotal{Count: s.Count, PointsEarned: s.PointsEarned, MaxPoints: s.MaxPoints}
		}
		rep := r.TypeSummary[t]
		if agg.Count != rep.Count || !pointsEqual(agg.PointsEarned, rep.PointsEarned) || !pointsEqual(agg.MaxPoints, rep.MaxPoints) {
			c.TypeMismatches = append(c.TypeMismatches, TypeMismatch{Type: t, Aggregated: agg, Reported: rep})
		}
	}
	return c
}

func typeUnion(byType map[exam.QuestionType]*TypeSummary, reported map[exam.QuestionType]exam.ReportedTotal) []exam.QuestionType {
	merged := make(map[exam.QuestionType]*TypeSummary, len(byType)+len(reported))
	for t, s := range byType {
		merged[t] = s
	}
	for t := range reported {
		if _, ok := merged[t]; !ok {
			merged[t] = &TypeSummary{Type: t}
		}
	}
	ordered := Ordered(merged)
	out := make([]exam.QuestionType, len(ordered))
	for i, s := range ordered {
		out[i] = s.Type
	}
	return out
}

func pointsEqual(a, b float64) bool {
	return math.Abs(a-b) <= pointsEpsilon
}
