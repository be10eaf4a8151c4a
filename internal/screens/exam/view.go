package exam

import (
	"errors"
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examtaker/internal/session"
	"github.com/abhisek/examtaker/internal/ui/components"
	"github.com/abhisek/examtaker/internal/ui/layout"
	"github.com/abhisek/examtaker/internal/ui/theme"
)

// Messages shown verbatim to the test-taker.
const (
	msgNoQuestions  = "This exam has no questions."
	msgIncomplete   = "You have not answered all questions. Are you sure you want to submit?"
	msgLeave        = "Leave this exam? Your answers will be discarded."
	msgTimeUp       = "Time is up. Submitting your answers..."
	msgSubmitting   = "Submitting your answers..."
	msgPreparing    = "Loading exam..."
	msgSubmittedFmt = "Submitted. Result #%d"
)

func (s *Screen) View(width, height int) string {
	s.width = width

	if !s.started {
		return renderNotice(width, height, theme.Hint, msgPreparing)
	}

	switch s.modal {
	case modalConfirmSubmit:
		detail := fmt.Sprintf("%d of %d questions are unanswered.", s.unanswered, len(s.state.Questions))
		return renderModal(width, height, msgIncomplete, detail)
	case modalLeave:
		return renderModal(width, height, msgLeave, "")
	}

	switch s.state.Status {
	case session.StatusError:
		return s.renderError(width, height)
	case session.StatusExpired:
		return renderNotice(width, height, theme.Warning, msgTimeUp)
	case session.StatusSubmitting:
		return renderNotice(width, height, theme.Hint, msgSubmitting)
	case session.StatusSubmitted:
		id := 0
		if s.state.Result != nil {
			id = s.state.Result.ID
		}
		return renderNotice(width, height, theme.Correct, fmt.Sprintf(msgSubmittedFmt, id))
	case session.StatusActive:
		return s.renderQuestion(width)
	}
	return renderNotice(width, height, theme.Hint, msgPreparing)
}

func (s *Screen) renderQuestion(width int) string {
	st := s.state
	q, ok := st.Current()
	if !ok {
		return ""
	}
	inner := max(width-4, 20)

	var b strings.Builder

	answered := len(st.Questions) - st.Unanswered()
	infoLeft := theme.Title.Render("  " + layout.Truncate(st.Exam.Title, inner/2))
	infoRight := theme.Subtitle.Render(fmt.Sprintf("Question %d of %d  ·  %d answered",
		st.Cursor+1, len(st.Questions), answered))
	gap := max(width-lipgloss.Width(infoLeft)-lipgloss.Width(infoRight)-2, 1)
	b.WriteString(infoLeft + strings.Repeat(" ", gap) + infoRight)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", inner)))
	b.WriteString("\n")

	flags := make([]bool, len(st.Questions))
	for i, pq := range st.Questions {
		flags[i] = st.Answered(pq.ID)
	}
	cur := st.Cursor
	if s.paletteFocus {
		cur = s.paletteCursor
	}
	palette := components.Palette{Answered: flags, Current: cur, Width: inner}
	b.WriteString(indent(palette.View(), 2))
	b.WriteString("\n\n")

	meta := fmt.Sprintf("%s · %s", q.Type.Label(), pointsLabel(q.Points))
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  Q%d.  %s", st.Cursor+1, meta)))
	b.WriteString("\n\n")
	b.WriteString(indent(lipgloss.NewStyle().Width(inner-2).Foreground(theme.Text).Bold(true).Render(q.Text), 2))
	b.WriteString("\n\n")

	switch {
	case s.options != nil:
		b.WriteString(indent(s.options.View(), 2))
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  ↑↓ move · Enter/Space or 1-9 choose · ←→ question"))
	case s.input != nil:
		b.WriteString("  Answer: " + s.input.View())
	case s.area != nil:
		b.WriteString(indent(s.area.View(), 2))
	}
	return b.String()
}

func (s *Screen) renderError(width, height int) string {
	err := s.state.Err
	var lerr *session.LoadError
	if errors.As(err, &lerr) && lerr.Empty() {
		return renderNotice(width, height, theme.Hint, msgNoQuestions+"\n\nPress Esc to go back.")
	}

	var b strings.Builder
	if retryable(err) {
		b.WriteString(theme.Incorrect.Render("Submission failed"))
		b.WriteString("\n\n")
		b.WriteString(theme.Body.Render(errorDetail(err)))
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Render("Your answers are kept. Press R to retry."))
	} else {
		b.WriteString(theme.Incorrect.Render("Could not open exam"))
		b.WriteString("\n\n")
		b.WriteString(theme.Body.Render(errorDetail(err)))
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Render("Press Esc to go back."))
	}
	box := theme.Card.Width(min(width-4, 72)).Render(b.String())
	return layout.Center(box, width, height)
}

// errorDetail is the collaborator's message without the wrapping added on
// the way up.
func errorDetail(err error) string {
	var serr *session.SubmissionError
	if errors.As(err, &serr) {
		return serr.Err.Error()
	}
	var lerr *session.LoadError
	if errors.As(err, &lerr) {
		return lerr.Err.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func renderModal(width, height int, question, detail string) string {
	var b strings.Builder
	b.WriteString(theme.Warning.Render(question))
	if detail != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Subtitle.Render(detail))
	}
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Success).Render("[Y] Yes"))
	b.WriteString("    ")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Render("[N] No"))

	box := theme.Modal.Width(min(width-4, 80)).Render(b.String())
	return layout.Center(box, width, height)
}

func renderNotice(width, height int, style lipgloss.Style, msg string) string {
	return layout.Center(style.Render(msg), width, height)
}

func pointsLabel(p float64) string {
	if p == 1 {
		return "1 point"
	}
	return fmt.Sprintf("%g points", p)
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
