package results

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examtaker/internal/exam"
)

type fetchFunc func(ctx context.Context, id int) (*exam.Result, error)

func (f fetchFunc) FetchResult(ctx context.Context, id int) (*exam.Result, error) { return f(ctx, id) }

func ptr[T any](v T) *T { return &v }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func detailedResult() *exam.Result {
	return &exam.Result{
		ID: 8, ExamID: 2, TotalPoints: 3, PercentageScore: 60, Passed: true, Detailed: true,
		Submissions: []exam.GradedSubmission{
			{QuestionID: 1, QuestionText: "Pick one", QuestionType: exam.TypeMultipleChoice,
				StudentAnswer: "a", CorrectAnswer: ptr("a"), PointsEarned: 1, MaxPoints: 1, IsCorrect: ptr(true),
				Detail: exam.GradingDetail{SelectedOption: ptr("a"), CorrectOptions: []string{"a"}}},
			{QuestionID: 2, QuestionText: "Explain entropy", QuestionType: exam.TypeDescriptive,
				StudentAnswer: "disorder", CorrectAnswer: ptr("secret model answer"), PointsEarned: 2, MaxPoints: 4,
				GradingFeedback: ptr("Adequate"),
				Detail: exam.GradingDetail{
					CombinedScore:    ptr(0.6),
					ThresholdApplied: &exam.Threshold{Threshold: 0.55, Description: "Adequate answer - 70% credit"},
				}},
		},
	}
}

func press(s *Screen, keys ...tea.KeyPressMsg) {
	for _, k := range keys {
		s.Update(k)
	}
}

func TestLoadAndOverview(t *testing.T) {
	s := New(context.Background(), fetchFunc(func(_ context.Context, id int) (*exam.Result, error) {
		r := detailedResult()
		r.ID = id
		return r, nil
	}), 8, quiet)

	cmd := s.Init()
	require.NotNil(t, cmd)
	s.Update(cmd())

	view := s.View(100, 30)
	assert.Contains(t, view, "Result #8")
	assert.Contains(t, view, "PASSED")
	assert.Contains(t, view, "Multiple choice")
	assert.Contains(t, view, "Descriptive")
	assert.NotContains(t, view, "does not match")
}

func TestDrillDown(t *testing.T) {
	s := NewWithResult(detailedResult(), quiet)

	press(s, tea.KeyPressMsg{Code: tea.KeyDown}, tea.KeyPressMsg{Code: tea.KeyEnter})
	require.True(t, s.detail)
	assert.True(t, s.HandlesEscape())

	view := s.View(100, 40)
	assert.Contains(t, view, "Explain entropy")
	assert.Contains(t, view, "Combined score")
	assert.Contains(t, view, "60.0%")
	assert.Contains(t, view, "Adequate answer - 70% credit")
	assert.NotContains(t, view, "secret model answer", "descriptive answers stay hidden")

	press(s, tea.KeyPressMsg{Code: tea.KeyLeft})
	view = s.View(100, 40)
	assert.Contains(t, view, "Selected option")
	assert.Contains(t, view, "Correct answer")

	press(s, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.False(t, s.detail)
	assert.False(t, s.HandlesEscape())
}

func TestMismatchFlagged(t *testing.T) {
	r := detailedResult()
	r.TotalPoints = 10
	s := NewWithResult(r, quiet)

	view := s.View(100, 30)
	assert.Contains(t, view, "does not match")
	assert.Contains(t, view, "3.00 / 5.00")
}

func TestSummaryOnly(t *testing.T) {
	s := NewWithResult(&exam.Result{ID: 4, TotalPoints: 6.5, PercentageScore: 65}, quiet)
	view := s.View(100, 30)
	assert.Contains(t, view, "Per-question detail is unavailable")
	press(s, tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.False(t, s.detail, "nothing to drill into")
}

func TestLoadErrorAndReload(t *testing.T) {
	calls := 0
	s := New(context.Background(), fetchFunc(func(context.Context, int) (*exam.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("report unavailable")
		}
		return detailedResult(), nil
	}), 8, quiet)

	s.Update(s.Init()())
	assert.Contains(t, s.View(100, 30), "report unavailable")

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	require.NotNil(t, cmd)
	s.Update(cmd())
	assert.Contains(t, s.View(100, 30), "Result #8")
	assert.Equal(t, 2, calls)
}

func TestTrueFalseDrillDownShowsAnswers(t *testing.T) {
	r := &exam.Result{
		ID: 9, TotalPoints: 0, Detailed: true,
		Submissions: []exam.GradedSubmission{{
			QuestionID: 3, QuestionText: "The sun is a star", QuestionType: exam.TypeTrueFalse,
			StudentAnswer: "false", PointsEarned: 0, MaxPoints: 1, IsCorrect: ptr(false),
			Detail: exam.GradingDetail{CorrectAnswer: ptr("true"), StudentAnswer: ptr("false"), IsCorrect: ptr(false)},
		}},
	}
	s := NewWithResult(r, quiet)
	press(s, tea.KeyPressMsg{Code: tea.KeyEnter})

	view := s.View(100, 40)
	assert.Contains(t, view, "Correct options")
	assert.Contains(t, view, "true", "correct answer comes from the grading details")
	assert.NotContains(t, view, "Correct options: -")
}

func TestDrillDownFollowsQuestionID(t *testing.T) {
	s := NewWithResult(detailedResult(), quiet)
	press(s, tea.KeyPressMsg{Code: tea.KeyEnter}, tea.KeyPressMsg{Code: tea.KeyRight})
	assert.Equal(t, 2, s.openID)
	assert.Contains(t, s.View(100, 40), "Explain entropy")

	// A reloaded result that no longer carries the open question.
	r := detailedResult()
	r.Submissions = r.Submissions[:1]
	s.setResult(r)
	view := s.View(100, 40)
	assert.Contains(t, view, "Question 2 is not part of this result.")

	press(s, tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.False(t, s.detail)
}
