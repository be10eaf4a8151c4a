// Package exam is the take-exam screen. It drives a session.Controller
// from the Bubble Tea loop: keys become controller calls, controller
// events come back as messages.
package exam

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"

	ex "github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/router"
	"github.com/abhisek/examtaker/internal/screen"
	"github.com/abhisek/examtaker/internal/session"
	"github.com/abhisek/examtaker/internal/ui/components"
	"github.com/abhisek/examtaker/internal/ui/layout"
)

// Controller is the part of session.Controller the screen drives.
type Controller interface {
	Start(ctx context.Context, examID int) error
	RecordAnswer(questionID int, value string) error
	Navigate(index int) error
	Next()
	Prev()
	RequestSubmit(ctx context.Context, trigger session.Trigger, confirm func(unanswered int) bool) (*ex.Result, error)
	ResetForRetry() (session.Status, error)
	State() session.State
	Events() <-chan session.Event
	Done() <-chan struct{}
	Close()
}

var _ Controller = (*session.Controller)(nil)

// ResultsOpener builds the screen shown after a successful submission.
type ResultsOpener func(resultID int) screen.Screen

type modal int

const (
	modalNone modal = iota
	modalConfirmSubmit
	modalLeave
)

// Screen is the take-exam screen.
type Screen struct {
	ctrl        Controller
	ctx         context.Context
	examID      int
	openResults ResultsOpener

	state      session.State
	started    bool
	modal      modal
	unanswered int
	navigated  bool

	paletteFocus  bool
	paletteCursor int

	// Exactly one of these is bound to the current question.
	bound   bool
	boundID int
	options *components.OptionList
	input   *components.TextInput
	area    *components.TextArea

	width int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)
var _ screen.EscapeHandler = (*Screen)(nil)
var _ screen.Closer = (*Screen)(nil)

// New creates the screen for one exam. ctx carries the credential for
// every call the controller makes. openResults may be nil.
func New(ctx context.Context, ctrl Controller, examID int, openResults ResultsOpener) *Screen {
	return &Screen{
		ctrl:        ctrl,
		ctx:         ctx,
		examID:      examID,
		openResults: openResults,
		width:       layout.MinWidth,
	}
}

func (s *Screen) Init() tea.Cmd {
	return tea.Batch(s.startCmd(), s.waitForEvent())
}

func (s *Screen) Title() string {
	if s.state.Exam.Title != "" {
		return s.state.Exam.Title
	}
	return "Exam"
}

// Close abandons the session. Nothing is submitted.
func (s *Screen) Close() {
	s.ctrl.Close()
}

// HandlesEscape keeps Esc inside the screen while an attempt is live.
func (s *Screen) HandlesEscape() bool {
	if s.modal != modalNone || s.paletteFocus {
		return true
	}
	switch s.state.Status {
	case session.StatusActive, session.StatusExpired, session.StatusSubmitting:
		return true
	case session.StatusError:
		return retryable(s.state.Err)
	}
	return false
}

// Status shows the countdown in the header.
func (s *Screen) Status() string {
	if !s.started || !s.state.Timed {
		return ""
	}
	return "⏱ " + layout.FormatClock(s.state.SecondsRemaining)
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch {
	case s.modal != modalNone:
		return []layout.KeyHint{
			{Key: "Y", Description: "Yes"},
			{Key: "N", Description: "No"},
		}
	case s.paletteFocus:
		return []layout.KeyHint{
			{Key: "←→", Description: "Choose"},
			{Key: "Enter", Description: "Go to question"},
			{Key: "Esc", Description: "Back"},
		}
	}

	switch s.state.Status {
	case session.StatusActive:
		return []layout.KeyHint{
			{Key: "Tab/Shift+Tab", Description: "Next/Prev"},
			{Key: "Ctrl+P", Description: "Palette"},
			{Key: "Ctrl+S", Description: "Submit"},
			{Key: "Esc", Description: "Leave"},
		}
	case session.StatusError:
		if retryable(s.state.Err) {
			return []layout.KeyHint{
				{Key: "R", Description: "Retry"},
				{Key: "Esc", Description: "Leave"},
			}
		}
		return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	case session.StatusSubmitting, session.StatusExpired:
		return []layout.KeyHint{{Key: "", Description: "Submitting..."}}
	}
	return nil
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		return s, nil

	case startedMsg:
		s.started = true
		s.refresh()
		return s, nil

	case controllerEventMsg:
		return s, tea.Batch(s.handleEvent(msg.Event), s.waitForEvent())

	case submitDoneMsg:
		s.refresh()
		return s, nil

	case resetDoneMsg:
		s.refresh()
		if msg.Err == nil && msg.Status == session.StatusExpired {
			return s, s.submitCmd(session.TriggerTimeout)
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	return s.forwardToWidget(msg)
}

func (s *Screen) handleEvent(ev session.Event) tea.Cmd {
	switch ev := ev.(type) {
	case session.EventTick:
		if ev.Generation == s.state.Generation {
			s.state.SecondsRemaining = ev.SecondsRemaining
		}
		return nil

	case session.EventStatus:
		s.refresh()
		switch ev.To {
		case session.StatusExpired, session.StatusSubmitting:
			// The timer can win while a modal is open.
			s.modal = modalNone
			s.paletteFocus = false
		case session.StatusSubmitted:
			s.modal = modalNone
			if ev.Result != nil && s.openResults != nil && !s.navigated {
				s.navigated = true
				next := s.openResults(ev.Result.ID)
				return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
			}
		}
	}
	return nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	switch s.modal {
	case modalConfirmSubmit:
		switch key {
		case "y", "Y":
			s.modal = modalNone
			return s, s.submitCmd(session.TriggerManual)
		case "n", "N", "esc":
			s.modal = modalNone
		}
		return s, nil
	case modalLeave:
		switch key {
		case "y", "Y":
			s.modal = modalNone
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "n", "N", "esc":
			s.modal = modalNone
		}
		return s, nil
	}

	switch s.state.Status {
	case session.StatusActive:
		return s.handleActiveKey(msg)
	case session.StatusError:
		switch key {
		case "r", "R":
			if retryable(s.state.Err) {
				return s, s.resetCmd()
			}
		case "esc":
			if retryable(s.state.Err) {
				s.modal = modalLeave
			}
		}
	}
	return s, nil
}

func (s *Screen) handleActiveKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.paletteFocus {
		switch key {
		case "left", "h":
			s.paletteCursor = max(s.paletteCursor-1, 0)
		case "right", "l":
			s.paletteCursor = min(s.paletteCursor+1, len(s.state.Questions)-1)
		case "enter":
			if err := s.ctrl.Navigate(s.paletteCursor); err == nil {
				s.paletteFocus = false
				return s, s.refreshAndBind()
			}
		case "esc", "ctrl+p":
			s.paletteFocus = false
		}
		return s, nil
	}

	switch key {
	case "ctrl+s":
		return s, s.requestSubmit()
	case "esc":
		s.modal = modalLeave
		return s, nil
	case "ctrl+p":
		s.paletteFocus = true
		s.paletteCursor = s.state.Cursor
		return s, nil
	case "tab", "pgdown":
		s.ctrl.Next()
		return s, s.refreshAndBind()
	case "shift+tab", "pgup":
		s.ctrl.Prev()
		return s, s.refreshAndBind()
	case "left", "right":
		// Choice questions have no text cursor, so arrows navigate.
		if s.options != nil {
			if key == "right" {
				s.ctrl.Next()
			} else {
				s.ctrl.Prev()
			}
			return s, s.refreshAndBind()
		}
	}

	return s.forwardToWidget(msg)
}

// requestSubmit asks for confirmation first when answers are missing.
func (s *Screen) requestSubmit() tea.Cmd {
	s.unanswered = s.state.Unanswered()
	if s.unanswered > 0 {
		s.modal = modalConfirmSubmit
		return nil
	}
	return s.submitCmd(session.TriggerManual)
}

func (s *Screen) forwardToWidget(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if s.state.Status != session.StatusActive {
		return s, nil
	}
	q, ok := s.state.Current()
	if !ok || !s.bound || q.ID != s.boundID {
		return s, nil
	}

	var value string
	var cmd tea.Cmd
	switch {
	case s.options != nil:
		var changed bool
		*s.options, changed = s.options.Update(msg)
		if !changed {
			return s, nil
		}
		value = s.options.Value()
	case s.input != nil:
		*s.input, cmd = s.input.Update(msg)
		value = s.input.Value()
	case s.area != nil:
		*s.area, cmd = s.area.Update(msg)
		value = s.area.Value()
	default:
		return s, nil
	}

	if value != s.state.Answer(q.ID) {
		if err := s.ctrl.RecordAnswer(q.ID, value); err == nil {
			if s.state.Answers == nil {
				s.state.Answers = make(map[int]string)
			}
			s.state.Answers[q.ID] = value
		} else {
			s.refresh()
		}
	}
	return s, cmd
}

// refresh copies the controller state and rebinds the widget when the
// current question changed.
func (s *Screen) refresh() {
	s.state = s.ctrl.State()
	if q, ok := s.state.Current(); ok && (!s.bound || q.ID != s.boundID) {
		s.bind(q)
	}
}

func (s *Screen) refreshAndBind() tea.Cmd {
	s.refresh()
	switch {
	case s.input != nil:
		return s.input.Init()
	case s.area != nil:
		return s.area.Init()
	}
	return nil
}

func (s *Screen) bind(q ex.Question) {
	s.bound, s.boundID = true, q.ID
	s.options, s.input, s.area = nil, nil, nil
	value := s.state.Answer(q.ID)

	switch q.Type {
	case ex.TypeMultipleChoice:
		choices := make([]components.Choice, 0, len(q.Options))
		for _, o := range q.Options {
			choices = append(choices, components.Choice{Value: o.ID, Label: o.ID + ") " + o.Text})
		}
		l := components.NewOptionList(choices, value)
		s.options = &l
	case ex.TypeTrueFalse:
		l := components.NewOptionList([]components.Choice{
			{Value: "true", Label: "True"},
			{Value: "false", Label: "False"},
		}, value)
		s.options = &l
	case ex.TypeDescriptive:
		a := components.NewTextArea("Write your answer...", value, max(s.width-8, 20), 8)
		s.area = &a
	default:
		in := components.NewTextInput("Type your answer...", value, 0)
		s.input = &in
	}
}

func (s *Screen) startCmd() tea.Cmd {
	ctrl, ctx, id := s.ctrl, s.ctx, s.examID
	return func() tea.Msg {
		return startedMsg{Err: ctrl.Start(ctx, id)}
	}
}

func (s *Screen) submitCmd(trigger session.Trigger) tea.Cmd {
	ctrl, ctx := s.ctrl, s.ctx
	return func() tea.Msg {
		// Confirmation already happened in the modal.
		res, err := ctrl.RequestSubmit(ctx, trigger, func(int) bool { return true })
		return submitDoneMsg{Result: res, Err: err}
	}
}

func (s *Screen) resetCmd() tea.Cmd {
	ctrl := s.ctrl
	return func() tea.Msg {
		st, err := ctrl.ResetForRetry()
		return resetDoneMsg{Status: st, Err: err}
	}
}

// waitForEvent blocks on the controller's event channel. It returns nil
// once the controller is closed, which ends the subscription.
func (s *Screen) waitForEvent() tea.Cmd {
	events, done := s.ctrl.Events(), s.ctrl.Done()
	return func() tea.Msg {
		select {
		case ev := <-events:
			return controllerEventMsg{Event: ev}
		case <-done:
			return nil
		}
	}
}

func retryable(err error) bool {
	var serr *session.SubmissionError
	return errors.As(err, &serr)
}
