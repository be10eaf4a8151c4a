package exam

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ex "github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/router"
	"github.com/abhisek/examtaker/internal/screen"
	"github.com/abhisek/examtaker/internal/session"
)

type stubContent struct {
	exam      ex.Exam
	questions []ex.Question
}

func (c *stubContent) GetExam(_ context.Context, id int) (*ex.Exam, error) {
	e := c.exam
	e.ID = id
	return &e, nil
}

func (c *stubContent) ListQuestions(context.Context, int) ([]ex.Question, error) {
	return c.questions, nil
}

type stubGrader struct {
	mu   sync.Mutex
	subs []ex.Submission
	err  error
}

func (g *stubGrader) SubmitExam(_ context.Context, sub ex.Submission) (*ex.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, sub)
	if g.err != nil {
		return nil, g.err
	}
	return &ex.Result{ID: 99, ExamID: sub.ExamID}, nil
}

func (g *stubGrader) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

type stubScreen struct{ id int }

func (stubScreen) Init() tea.Cmd                               { return nil }
func (s stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (stubScreen) View(int, int) string                        { return "results" }
func (stubScreen) Title() string                               { return "Results" }

func ord(n int) *int { return &n }

func sampleQuestions() []ex.Question {
	return []ex.Question{
		{ID: 10, Text: "Name the capital of France.", Type: ex.TypeShortAnswer, Points: 1, Order: ord(1)},
		{ID: 20, Text: "Pick the prime.", Type: ex.TypeMultipleChoice, Points: 2, Order: ord(2),
			Options: []ex.Option{{ID: "a", Text: "4"}, {ID: "b", Text: "7"}}},
		{ID: 30, Text: "The sky is blue.", Type: ex.TypeTrueFalse, Points: 1, Order: ord(3)},
	}
}

func key(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func special(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func ctrlKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

type harness struct {
	t       *testing.T
	ctrl    *session.Controller
	grader  *stubGrader
	screen  *Screen
	results []int
}

func newHarness(t *testing.T, questions []ex.Question) *harness {
	t.Helper()
	h := &harness{t: t, grader: &stubGrader{}}
	content := &stubContent{exam: ex.Exam{Title: "Geography", Status: ex.StatusActive}, questions: questions}
	h.ctrl = session.NewController(content, h.grader,
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h.screen = New(context.Background(), h.ctrl, 5, func(id int) screen.Screen {
		h.results = append(h.results, id)
		return stubScreen{id: id}
	})
	t.Cleanup(h.ctrl.Close)

	h.screen.Update(startedMsg{Err: h.ctrl.Start(context.Background(), 5)})
	h.nextStatus() // ACTIVE, or ERROR for a failed load
	return h
}

func (h *harness) press(msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, m := range msgs {
		_, cmd = h.screen.Update(m)
	}
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.press(key(r))
	}
}

// nextStatus feeds controller events into the screen until a status event
// arrives and returns the command it produced.
func (h *harness) nextStatus() (session.EventStatus, tea.Cmd) {
	h.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.ctrl.Events():
			cmd := h.screen.handleEvent(ev)
			if st, ok := ev.(session.EventStatus); ok {
				return st, cmd
			}
		case <-timeout:
			h.t.Fatal("timed out waiting for status event")
			return session.EventStatus{}, nil
		}
	}
}

func TestStartShowsFirstQuestion(t *testing.T) {
	h := newHarness(t, sampleQuestions())

	assert.Equal(t, session.StatusActive, h.screen.state.Status)
	assert.Equal(t, "Geography", h.screen.Title())
	assert.True(t, h.screen.HandlesEscape())
	assert.Empty(t, h.screen.Status(), "untimed exams show no countdown")

	view := h.screen.View(100, 30)
	assert.Contains(t, view, "Name the capital of France.")
	assert.Contains(t, view, "Question 1 of 3")
	require.NotNil(t, h.screen.input)
}

func TestTypingRecordsAnswer(t *testing.T) {
	h := newHarness(t, sampleQuestions())
	h.typeText("Paris")

	assert.Equal(t, "Paris", h.ctrl.State().Answer(10))
	assert.Equal(t, "Paris", h.screen.state.Answer(10))
}

func TestChoiceQuestionNavigationAndSelection(t *testing.T) {
	h := newHarness(t, sampleQuestions())

	h.press(special(tea.KeyTab))
	require.NotNil(t, h.screen.options)
	assert.Equal(t, 1, h.ctrl.State().Cursor)

	h.press(key('2'))
	assert.Equal(t, "b", h.ctrl.State().Answer(20))

	h.press(special(tea.KeyRight))
	assert.Equal(t, 2, h.ctrl.State().Cursor)
	h.press(special(tea.KeyEnter))
	assert.Equal(t, "true", h.ctrl.State().Answer(30))

	h.press(tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})
	assert.Equal(t, 1, h.ctrl.State().Cursor)
	assert.Equal(t, "b", h.screen.options.Value(), "rebinding keeps the recorded choice")
}

func TestPaletteJump(t *testing.T) {
	h := newHarness(t, sampleQuestions())

	h.press(ctrlKey('p'))
	require.True(t, h.screen.paletteFocus)
	h.press(special(tea.KeyRight), special(tea.KeyRight), special(tea.KeyEnter))

	assert.False(t, h.screen.paletteFocus)
	assert.Equal(t, 2, h.ctrl.State().Cursor)
}

func TestIncompleteSubmitAsksFirst(t *testing.T) {
	h := newHarness(t, sampleQuestions())
	h.typeText("Paris")

	cmd := h.press(ctrlKey('s'))
	assert.Nil(t, cmd)
	assert.Contains(t, h.screen.View(100, 30), "You have not answered all questions.")

	h.press(key('n'))
	assert.Equal(t, modalNone, h.screen.modal)
	assert.Equal(t, 0, h.grader.count(), "declining makes no call")

	h.press(ctrlKey('s'))
	cmd = h.press(key('y'))
	require.NotNil(t, cmd)
	msg := cmd()
	done, ok := msg.(submitDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	assert.Equal(t, 1, h.grader.count())

	// SUBMITTING, then SUBMITTED which opens results.
	st, _ := h.nextStatus()
	assert.Equal(t, session.StatusSubmitting, st.To)
	st, nav := h.nextStatus()
	assert.Equal(t, session.StatusSubmitted, st.To)
	require.NotNil(t, nav)
	replace, ok := nav().(router.ReplaceScreenMsg)
	require.True(t, ok)
	assert.Equal(t, stubScreen{id: 99}, replace.Screen)
	assert.Equal(t, []int{99}, h.results)
}

func TestCompleteSubmitSkipsModal(t *testing.T) {
	h := newHarness(t, sampleQuestions()[:1])
	h.typeText("Paris")

	cmd := h.press(ctrlKey('s'))
	require.NotNil(t, cmd)
	assert.Equal(t, modalNone, h.screen.modal)
	_, ok := cmd().(submitDoneMsg)
	assert.True(t, ok)
	assert.Equal(t, 1, h.grader.count())
}

func TestSubmissionErrorAndRetry(t *testing.T) {
	h := newHarness(t, sampleQuestions()[:1])
	h.grader.err = errors.New("Exam is not active")
	h.typeText("Paris")

	msg := h.press(ctrlKey('s'))()
	h.screen.Update(msg)
	assert.Equal(t, session.StatusError, h.screen.state.Status)

	view := h.screen.View(100, 30)
	assert.Contains(t, view, "Exam is not active")
	assert.Contains(t, view, "retry")
	assert.True(t, h.screen.HandlesEscape())

	h.grader.mu.Lock()
	h.grader.err = nil
	h.grader.mu.Unlock()

	cmd := h.press(key('r'))
	require.NotNil(t, cmd)
	h.screen.Update(cmd())
	assert.Equal(t, session.StatusActive, h.screen.state.Status)
	assert.Equal(t, "Paris", h.screen.state.Answer(10), "answers survive the reset")
}

func TestEmptyExam(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, session.StatusError, h.screen.state.Status)
	assert.Contains(t, h.screen.View(100, 30), msgNoQuestions)
	assert.False(t, h.screen.HandlesEscape(), "esc goes straight back")
}

func TestLeaveConfirm(t *testing.T) {
	h := newHarness(t, sampleQuestions())

	h.press(special(tea.KeyEscape))
	assert.Equal(t, modalLeave, h.screen.modal)
	assert.Contains(t, h.screen.View(100, 30), msgLeave)

	cmd := h.press(key('y'))
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok)
	assert.Equal(t, 0, h.grader.count(), "leaving never submits")
}

func TestTickUpdatesCountdown(t *testing.T) {
	h := newHarness(t, sampleQuestions())
	h.screen.state.Timed = true
	h.screen.handleEvent(session.EventTick{Generation: h.screen.state.Generation, SecondsRemaining: 125})
	assert.Equal(t, "⏱ 02:05", h.screen.Status())

	h.screen.handleEvent(session.EventTick{Generation: h.screen.state.Generation + 1, SecondsRemaining: 5})
	assert.Equal(t, 125, h.screen.state.SecondsRemaining, "ticks of another generation are ignored")
}

func TestWaitForEventEndsOnClose(t *testing.T) {
	h := newHarness(t, sampleQuestions())
	h.ctrl.Close()
	assert.Nil(t, h.screen.waitForEvent()())
}

func TestKeyHintsFollowStatus(t *testing.T) {
	h := newHarness(t, sampleQuestions())
	hints := h.screen.KeyHints()
	var keys []string
	for _, k := range hints {
		keys = append(keys, k.Key)
	}
	assert.Contains(t, strings.Join(keys, " "), "Ctrl+S")
}
