package report

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/results"
)

func ptr[T any](v T) *T { return &v }

func sampleView(total float64) *results.View {
	r := &exam.Result{
		ID:              11,
		ExamID:          4,
		TotalPoints:     total,
		PercentageScore: 80,
		Passed:          true,
		Detailed:        true,
		Submissions: []exam.GradedSubmission{
			{
				QuestionID: 1, QuestionType: exam.TypeMultipleChoice, StudentAnswer: "b",
				CorrectAnswer: ptr("b"), PointsEarned: 2, MaxPoints: 2, IsCorrect: ptr(true),
				Detail: exam.GradingDetail{SelectedOption: ptr("b"), CorrectOptions: []string{"b"}},
			},
			{
				QuestionID: 2, QuestionType: exam.TypeDescriptive, StudentAnswer: "energy is conserved",
				CorrectAnswer: ptr("hidden"), PointsEarned: 2, MaxPoints: 3, IsCorrect: ptr(false),
				GradingFeedback: ptr("Good answer"),
				Detail: exam.GradingDetail{
					CombinedScore:     ptr(0.723),
					BasicKeywordScore: ptr(0.5),
					FeaturesAvailable: &exam.Features{SemanticSimilarity: true},
					SemanticScore:     ptr(0.9),
					ThresholdApplied:  &exam.Threshold{Threshold: 0.7, Description: "Good answer - 90% credit"},
				},
			},
		},
	}
	return results.NewView(r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML, " text ": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	doc := Build(sampleView(4))

	assert.True(t, doc.Consistent)
	assert.Empty(t, doc.Warnings)
	assert.Equal(t, 5.0, doc.MaxPoints)
	require.Len(t, doc.ByType, 2)
	assert.Equal(t, exam.TypeMultipleChoice, doc.ByType[0].Type)

	require.Len(t, doc.Questions, 2)
	mc := doc.Questions[0]
	assert.Equal(t, "b", mc.CorrectAnswer)
	assert.Equal(t, "b", mc.SelectedOption)
	assert.Nil(t, mc.Scores)

	desc := doc.Questions[1]
	assert.Empty(t, desc.CorrectAnswer, "descriptive answers are never revealed")
	assert.Equal(t, "Good answer - 90% credit", desc.Threshold)
	assert.Equal(t, []Score{
		{"Combined score", "72.3%"},
		{"Basic keyword", "50.0%"},
		{"String similarity", "N/A"},
		{"Semantic similarity", "90.0%"},
	}, desc.Scores)
}

func TestBuildFlagsMismatch(t *testing.T) {
	doc := Build(sampleView(9))
	assert.False(t, doc.Consistent)
	assert.Equal(t, 4.0, doc.TotalPoints)
	require.Len(t, doc.Warnings, 1)
	assert.Contains(t, doc.Warnings[0], "9.00")
}

func TestWriteJSONAndYAML(t *testing.T) {
	v := sampleView(4)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, v, FormatJSON))
	var fromJSON Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, 11, fromJSON.ResultID)
	assert.Len(t, fromJSON.Questions, 2)

	buf.Reset()
	require.NoError(t, Write(&buf, v, FormatYAML))
	assert.Contains(t, buf.String(), "result_id: 11")
	var fromYAML Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, fromJSON, fromYAML)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleView(9), FormatText))
	out := buf.String()

	assert.Contains(t, out, "Result 11")
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "WARNING:")
	assert.Contains(t, out, "Multiple choice")
	assert.Contains(t, out, "Semantic similarity: 90.0%")
	assert.Contains(t, out, "Feedback: Good answer")
	assert.NotContains(t, out, "hidden")
}

func TestWriteSummaryOnly(t *testing.T) {
	v := results.NewView(&exam.Result{ID: 2, TotalPoints: 3}, nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, v, FormatText))
	assert.Contains(t, buf.String(), "Summary only")
}

func TestWriteQuestion(t *testing.T) {
	v := sampleView(4)

	var buf bytes.Buffer
	require.NoError(t, WriteQuestion(&buf, v, 2, FormatText))
	out := buf.String()
	assert.Contains(t, out, "Question 2 [Descriptive]")
	assert.Contains(t, out, "Semantic similarity: 90.0%")
	assert.NotContains(t, out, "Multiple choice")

	buf.Reset()
	require.NoError(t, WriteQuestion(&buf, v, 1, FormatJSON))
	var q QuestionDetail
	require.NoError(t, json.Unmarshal(buf.Bytes(), &q))
	assert.Equal(t, 1, q.QuestionID)
	assert.Equal(t, []string{"b"}, q.CorrectOptions)
}

func TestWriteQuestionMissing(t *testing.T) {
	var buf bytes.Buffer
	err := WriteQuestion(&buf, sampleView(4), 99, FormatText)
	require.ErrorIs(t, err, ErrQuestionNotFound)
	assert.Contains(t, err.Error(), "question 99")
	assert.Empty(t, buf.String())

	summary := results.NewView(&exam.Result{ID: 3}, nil)
	assert.ErrorIs(t, WriteQuestion(&buf, summary, 1, FormatJSON), ErrQuestionNotFound)
}

func TestTrueFalseDetailFromGradingDetails(t *testing.T) {
	r := &exam.Result{
		ID: 5, Detailed: true,
		Submissions: []exam.GradedSubmission{{
			QuestionID: 7, QuestionType: exam.TypeTrueFalse, StudentAnswer: "false",
			PointsEarned: 0, MaxPoints: 1, IsCorrect: ptr(false),
			Detail: exam.GradingDetail{CorrectAnswer: ptr("true"), StudentAnswer: ptr("false"), IsCorrect: ptr(false)},
		}},
	}
	doc := Build(results.NewView(r, nil))
	require.Len(t, doc.Questions, 1)
	assert.Equal(t, "false", doc.Questions[0].SelectedOption)
	assert.Equal(t, []string{"true"}, doc.Questions[0].CorrectOptions)

	var buf bytes.Buffer
	require.NoError(t, WriteQuestion(&buf, results.NewView(r, nil), 7, FormatText))
	assert.Contains(t, buf.String(), "Selected: false  Correct: true")
}
