package results

import (
	"fmt"
	"math"

	"github.com/abhisek/examtaker/internal/exam"
)

// ScoreRow is one line of a grading breakdown.
type ScoreRow struct {
	Label string
	Value *float64 // 0..1 as reported; nil when not available
}

// Display formats the value as a one-decimal percentage, or N/A.
func (r ScoreRow) Display() string {
	if r.Value == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", Round1(*r.Value*100))
}

// Breakdown returns the score components of a text-graded submission. The
// NLP and semantic rows appear only when the grading service reports those
// features as available.
func Breakdown(d exam.GradingDetail) []ScoreRow {
	rows := []ScoreRow{
		{Label: "Combined score", Value: d.CombinedScore},
		{Label: "Basic keyword", Value: d.BasicKeywordScore},
		{Label: "String similarity", Value: d.StringSimilarity},
	}
	if d.FeaturesAvailable != nil && d.FeaturesAvailable.NLPProcessing {
		rows = append(rows, ScoreRow{Label: "NLP keyword", Value: d.NLPKeywordScore})
	}
	if d.FeaturesAvailable != nil && d.FeaturesAvailable.SemanticSimilarity {
		rows = append(rows, ScoreRow{Label: "Semantic similarity", Value: d.SemanticScore})
	}
	return rows
}

// MeetsThreshold reports whether the combined score reached the applied
// threshold. ok is false when either value is missing.
func MeetsThreshold(d exam.GradingDetail) (meets, ok bool) {
	if d.CombinedScore == nil || d.ThresholdApplied == nil {
		return false, false
	}
	return *d.CombinedScore >= d.ThresholdApplied.Threshold, true
}

// ScoreBar is the combined score as a whole percentage for a bar gauge,
// clamped to 0..100.
func ScoreBar(d exam.GradingDetail) (int, bool) {
	if d.CombinedScore == nil {
		return 0, false
	}
	p := int(math.Round(*d.CombinedScore * 100))
	return max(0, min(100, p)), true
}

// IsChoice reports whether a type is graded by option matching.
func IsChoice(t exam.QuestionType) bool {
	return t == exam.TypeMultipleChoice || t == exam.TypeTrueFalse
}

// CreditBand is one band of the text-grading scale, for legends.
type CreditBand struct {
	Threshold   float64
	Description string
}

// CreditBands is the grading service's scale, highest first.
var CreditBands = []CreditBand{
	{0.85, "Excellent answer - full credit"},
	{0.7, "Good answer - 90% credit"},
	{0.55, "Adequate answer - 70% credit"},
	{0.35, "Poor answer - 40% credit"},
	{0, "Incorrect answer - no credit"},
}
