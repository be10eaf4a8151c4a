// Package report renders an aggregated result view for export.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/results"
)

// Format is an export format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Document is the exported shape of a result view.
type Document struct {
	ResultID        int              `json:"result_id" yaml:"result_id"`
	ExamID          int              `json:"exam_id" yaml:"exam_id"`
	TotalPoints     float64          `json:"total_points" yaml:"total_points"`
	MaxPoints       float64          `json:"max_points" yaml:"max_points"`
	PercentageScore float64          `json:"percentage_score" yaml:"percentage_score"`
	Passed          bool             `json:"passed" yaml:"passed"`
	Detailed        bool             `json:"detailed" yaml:"detailed"`
	Consistent      bool             `json:"consistent" yaml:"consistent"`
	Warnings        []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ByType          []TypeRow        `json:"by_type,omitempty" yaml:"by_type,omitempty"`
	Questions       []QuestionDetail `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// TypeRow is one per-type summary line.
type TypeRow struct {
	Type         exam.QuestionType `json:"type" yaml:"type"`
	Count        int               `json:"count" yaml:"count"`
	PointsEarned float64           `json:"points_earned" yaml:"points_earned"`
	MaxPoints    float64           `json:"max_points" yaml:"max_points"`
	Percentage   float64           `json:"percentage" yaml:"percentage"`
}

// QuestionDetail is the drill-down of one graded question.
type QuestionDetail struct {
	QuestionID     int               `json:"question_id" yaml:"question_id"`
	Type           exam.QuestionType `json:"type" yaml:"type"`
	Text           string            `json:"text,omitempty" yaml:"text,omitempty"`
	Answer         string            `json:"answer" yaml:"answer"`
	CorrectAnswer  string            `json:"correct_answer,omitempty" yaml:"correct_answer,omitempty"`
	PointsEarned   float64           `json:"points_earned" yaml:"points_earned"`
	MaxPoints      float64           `json:"max_points" yaml:"max_points"`
	Correct        bool              `json:"correct" yaml:"correct"`
	Feedback       string            `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Threshold      string            `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Scores         []Score           `json:"scores,omitempty" yaml:"scores,omitempty"`
	SelectedOption string            `json:"selected_option,omitempty" yaml:"selected_option,omitempty"`
	CorrectOptions []string          `json:"correct_options,omitempty" yaml:"correct_options,omitempty"`
}

// Score is one breakdown component, already formatted ("82.3%" or "N/A").
type Score struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Build converts v into a Document.
func Build(v *results.View) Document {
	r := v.Result
	d := Document{
		ResultID:        r.ID,
		ExamID:          r.ExamID,
		TotalPoints:     v.DisplayTotal,
		MaxPoints:       v.MaxPoints,
		PercentageScore: r.PercentageScore,
		Passed:          r.Passed,
		Detailed:        r.Detailed,
		Consistent:      v.Consistency.OK(),
	}

	c := v.Consistency
	if !c.TotalMatches {
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"reported total %.2f differs from graded submissions %.2f", c.ReportedTotal, c.AggregatedTotal))
	}
	for _, m := range c.TypeMismatches {
		d.Warnings = append(d.Warnings, fmt.Sprintf(
			"%s: reported %.2f points over %d, graded %.2f over %d",
			m.Type, m.Reported.PointsEarned, m.Reported.Count, m.Aggregated.PointsEarned, m.Aggregated.Count))
	}

	for _, s := range v.ByType {
		d.ByType = append(d.ByType, TypeRow{
			Type:         s.Type,
			Count:        s.Count,
			PointsEarned: s.PointsEarned,
			MaxPoints:    s.MaxPoints,
			Percentage:   s.Percentage,
		})
	}
	for _, g := range v.Submissions() {
		d.Questions = append(d.Questions, questionDetail(g))
	}
	return d
}

func questionDetail(g exam.GradedSubmission) QuestionDetail {
	q := QuestionDetail{
		QuestionID:   g.QuestionID,
		Type:         g.QuestionType,
		Text:         g.QuestionText,
		Answer:       g.StudentAnswer,
		PointsEarned: g.PointsEarned,
		MaxPoints:    g.MaxPoints,
		Correct:      g.Correct(),
		Feedback:     g.Feedback(),
	}
	if ans, ok := g.VisibleCorrectAnswer(); ok {
		q.CorrectAnswer = ans
	}

	det := g.Detail
	if results.IsChoice(g.QuestionType) {
		q.SelectedOption = g.SelectedChoice()
		q.CorrectOptions = g.CorrectChoices()
		return q
	}
	if det.Empty() {
		return q
	}
	for _, row := range results.Breakdown(det) {
		q.Scores = append(q.Scores, Score{Label: row.Label, Value: row.Display()})
	}
	if det.ThresholdApplied != nil {
		q.Threshold = det.ThresholdApplied.Description
	}
	return q
}

// ErrQuestionNotFound is returned when a result holds no record of the
// requested question.
var ErrQuestionNotFound = errors.New("question is not part of this result")

// Write renders v to w in format f.
func Write(w io.Writer, v *results.View, f Format) error {
	doc := Build(v)
	if f == FormatText || f == "" {
		return writeText(w, doc)
	}
	return encode(w, doc, f)
}

// WriteQuestion renders the drill-down of one question of v.
func WriteQuestion(w io.Writer, v *results.View, questionID int, f Format) error {
	g, ok := v.Question(questionID)
	if !ok {
		return fmt.Errorf("question %d: %w", questionID, ErrQuestionNotFound)
	}
	q := questionDetail(g)
	if f == FormatText || f == "" {
		writeQuestion(w, fmt.Sprintf("Question %d", q.QuestionID), q)
		return nil
	}
	return encode(w, q, f)
}

func encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

func writeText(w io.Writer, d Document) error {
	status := "FAILED"
	if d.Passed {
		status = "PASSED"
	}
	fmt.Fprintf(w, "Result %d  (exam %d)\n", d.ResultID, d.ExamID)
	fmt.Fprintf(w, "Score: %.2f / %.2f  (%.1f%%)  %s\n", d.TotalPoints, d.MaxPoints, d.PercentageScore, status)
	if !d.Detailed {
		fmt.Fprintln(w, "Summary only: per-question detail unavailable.")
	}
	for _, msg := range d.Warnings {
		fmt.Fprintf(w, "WARNING: %s\n", msg)
	}

	if len(d.ByType) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tQUESTIONS\tPOINTS\tPERCENT")
		for _, t := range d.ByType {
			fmt.Fprintf(tw, "%s\t%d\t%.2f / %.2f\t%.1f%%\n", t.Type.Label(), t.Count, t.PointsEarned, t.MaxPoints, t.Percentage)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for i, q := range d.Questions {
		fmt.Fprintln(w)
		writeQuestion(w, fmt.Sprintf("%d.", i+1), q)
	}
	return nil
}

func writeQuestion(w io.Writer, heading string, q QuestionDetail) {
	mark := "✗"
	if q.Correct {
		mark = "✓"
	}
	fmt.Fprintf(w, "%s [%s] %s %.2f / %.2f\n", heading, q.Type.Label(), mark, q.PointsEarned, q.MaxPoints)
	if q.Text != "" {
		fmt.Fprintf(w, "   %s\n", q.Text)
	}
	fmt.Fprintf(w, "   Your answer: %s\n", orDash(q.Answer))
	if q.CorrectAnswer != "" {
		fmt.Fprintf(w, "   Correct answer: %s\n", q.CorrectAnswer)
	}
	if q.SelectedOption != "" || len(q.CorrectOptions) > 0 {
		fmt.Fprintf(w, "   Selected: %s  Correct: %s\n", orDash(q.SelectedOption), orDash(strings.Join(q.CorrectOptions, ", ")))
	}
	for _, sc := range q.Scores {
		fmt.Fprintf(w, "   %s: %s\n", sc.Label, sc.Value)
	}
	if q.Threshold != "" {
		fmt.Fprintf(w, "   Grade: %s\n", q.Threshold)
	}
	if q.Feedback != "" {
		fmt.Fprintf(w, "   Feedback: %s\n", q.Feedback)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
