package results

import (
	"log/slog"

	"github.com/abhisek/examtaker/internal/exam"
)

// View is everything the results screens and exports render.
type View struct {
	Result      *exam.Result
	ByType      []*TypeSummary
	Consistency Consistency

	// DisplayTotal is the points total to show. When the per-type sums
	// disagree with the reported total the aggregated sum wins and the
	// discrepancy is flagged.
	DisplayTotal float64
	MaxPoints    float64
}

// NewView aggregates r and cross-checks it. Inconsistencies are logged at
// warn level and never block rendering. A nil logger uses slog.Default.
func NewView(r *exam.Result, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	byType := AggregateByType(r)
	v := &View{
		Result:      r,
		ByType:      Ordered(byType),
		Consistency: CheckConsistency(r, byType),
	}
	for _, s := range v.ByType {
		v.MaxPoints += s.MaxPoints
	}
	if r != nil {
		v.DisplayTotal = r.TotalPoints
	}

	c := v.Consistency
	if !c.OK() {
		if !c.TotalMatches {
			v.DisplayTotal = c.AggregatedTotal
			logger.Warn("result total disagrees with graded submissions",
				"result_id", r.ID,
				"reported_total", c.ReportedTotal,
				"aggregated_total", c.AggregatedTotal,
			)
		}
		for _, m := range c.TypeMismatches {
			logger.Warn("question type summary disagrees with graded submissions",
				"result_id", r.ID,
				"question_type", string(m.Type),
				"reported_points", m.Reported.PointsEarned,
				"aggregated_points", m.Aggregated.PointsEarned,
				"reported_count", m.Reported.Count,
				"aggregated_count", m.Aggregated.Count,
			)
		}
	}
	return v
}

// Question returns the drill-down record of one question.
func (v *View) Question(questionID int) (exam.GradedSubmission, bool) {
	return SelectQuestion(v.Result, questionID)
}

// Submissions lists every graded submission grouped in type order.
func (v *View) Submissions() []exam.GradedSubmission {
	var out []exam.GradedSubmission
	for _, s := range v.ByType {
		out = append(out, s.Submissions...)
	}
	return out
}
