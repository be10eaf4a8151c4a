package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/router"
	"github.com/abhisek/examtaker/internal/screen"
	"github.com/abhisek/examtaker/internal/ui/layout"
	"github.com/abhisek/examtaker/internal/ui/theme"
)

// Source lists the caller's results, newest first.
type Source interface {
	ListMyResults(ctx context.Context) ([]exam.Result, error)
}

type historyLoadedMsg struct {
	Results []exam.Result
	Err     error
}

// HistoryScreen lists past results.
type HistoryScreen struct {
	ctx        context.Context
	source     Source
	openResult func(resultID int) screen.Screen
	results    []exam.Result
	selected   int
	loaded     bool
	errMsg     string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen. openResult may be nil.
func New(ctx context.Context, source Source, openResult func(resultID int) screen.Screen) *HistoryScreen {
	return &HistoryScreen{
		ctx:        ctx,
		source:     source,
		openResult: openResult,
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	ctx, src := s.ctx, s.source
	return func() tea.Msg {
		results, err := src.ListMyResults(ctx)
		return historyLoadedMsg{Results: results, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "My results"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.results = msg.Results
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.results)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			if s.openResult != nil && s.selected < len(s.results) {
				next := s.openResult(s.results[s.selected].ID)
				return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
			}
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading results...")
	}
	if len(s.results) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No results yet.")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, r := range s.results {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		verdict := "failed"
		if r.Passed {
			verdict = "passed"
		}
		line := fmt.Sprintf("%s#%-5d exam %-4d %-12s %7.2f pts  %5.1f%%  %s",
			prefix, r.ID, r.ExamID, DateOf(r), r.TotalPoints, r.PercentageScore, verdict)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}

	return b.String()
}

// DateOf returns the calendar date of the attempt as the server sent it.
func DateOf(r exam.Result) string {
	ts := r.CompletedAt
	if ts == "" {
		ts = r.CreatedAt
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	if ts == "" {
		return "-"
	}
	return ts
}
