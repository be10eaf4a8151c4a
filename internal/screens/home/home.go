// Package home is the start screen: the exam list and the way into past
// results.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examtaker/internal/auth"
	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/router"
	"github.com/abhisek/examtaker/internal/screen"
	"github.com/abhisek/examtaker/internal/ui/components"
	"github.com/abhisek/examtaker/internal/ui/layout"
	"github.com/abhisek/examtaker/internal/ui/theme"
)

// ExamLister lists the exams visible to the caller.
type ExamLister interface {
	ListExams(ctx context.Context) ([]exam.Exam, error)
}

// Navigation builds the screens reachable from home. Nil entries hide the
// corresponding menu item.
type Navigation struct {
	OpenExam    func(examID int) screen.Screen
	OpenHistory func() screen.Screen
}

type examsLoadedMsg struct {
	Exams []exam.Exam
	Err   error
}

// HomeScreen is the main home screen of the application.
type HomeScreen struct {
	ctx    context.Context
	lister ExamLister
	user   auth.User
	nav    Navigation

	menu   components.Menu
	loaded bool
	errMsg string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)

// New creates a HomeScreen for user.
func New(ctx context.Context, lister ExamLister, user auth.User, nav Navigation) *HomeScreen {
	h := &HomeScreen{ctx: ctx, lister: lister, user: user, nav: nav}
	h.menu = components.NewMenu(h.items(nil))
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	ctx, lister := h.ctx, h.lister
	return func() tea.Msg {
		exams, err := lister.ListExams(ctx)
		return examsLoadedMsg{Exams: exams, Err: err}
	}
}

func (h *HomeScreen) items(exams []exam.Exam) []components.MenuItem {
	canTake := h.user.Role.Can(auth.CapTakeExam)

	var items []components.MenuItem
	for _, e := range exams {
		id := e.ID
		open := e.Open() && canTake && h.nav.OpenExam != nil
		items = append(items, components.MenuItem{
			Label:    e.Title,
			Hint:     examHint(e),
			Disabled: !open,
			Action: func() tea.Cmd {
				next := h.nav.OpenExam(id)
				return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			},
		})
	}
	if h.nav.OpenHistory != nil && h.user.Role.Can(auth.CapViewOwnResults) {
		items = append(items, components.MenuItem{
			Label: "My results",
			Action: func() tea.Cmd {
				next := h.nav.OpenHistory()
				return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			},
		})
	}
	items = append(items, components.MenuItem{
		Label:  "Quit",
		Action: func() tea.Cmd { return tea.Quit },
	})
	return items
}

func examHint(e exam.Exam) string {
	var parts []string
	if e.DurationMinutes > 0 {
		parts = append(parts, fmt.Sprintf("%d min", e.DurationMinutes))
	} else {
		parts = append(parts, "untimed")
	}
	if !e.Open() {
		parts = append(parts, string(e.Status))
	}
	return strings.Join(parts, " · ")
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case examsLoadedMsg:
		h.loaded = true
		if msg.Err != nil {
			h.errMsg = msg.Err.Error()
			h.menu = components.NewMenu(h.items(nil))
			return h, nil
		}
		h.errMsg = ""
		h.menu = components.NewMenu(h.items(msg.Exams))
		return h, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			h.loaded = false
			return h, h.load()
		}
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := min(width-4, 80)

	var sections []string
	greeting := "Welcome"
	if name := h.user.DisplayName(); name != "" {
		greeting += ", " + name
	}
	sections = append(sections, theme.Title.Render(greeting))

	switch {
	case h.errMsg != "":
		sections = append(sections, theme.ErrorText.Render("Could not load exams: "+h.errMsg))
	case !h.loaded:
		sections = append(sections, theme.Hint.Render("Loading exams..."))
	case !h.user.Role.Can(auth.CapTakeExam):
		sections = append(sections, theme.Hint.Render(fmt.Sprintf("Signed in as %s. Only students can take exams.", h.user.Role)))
	default:
		sections = append(sections, theme.Subtitle.Render("Choose an exam. Only active exams can be opened."))
	}

	sections = append(sections, h.menu.View())

	box := theme.Card.Width(cw).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return layout.Center(box, width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open"},
		{Key: "R", Description: "Refresh"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}
