// Package results shows a graded result: the per-type overview and the
// drill-down of one question.
package results

import (
	"context"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examtaker/internal/exam"
	"github.com/abhisek/examtaker/internal/report"
	res "github.com/abhisek/examtaker/internal/results"
	"github.com/abhisek/examtaker/internal/router"
	"github.com/abhisek/examtaker/internal/screen"
	"github.com/abhisek/examtaker/internal/ui/layout"
)

type resultLoadedMsg struct {
	Result *exam.Result
	Err    error
}

// Screen displays one result.
type Screen struct {
	ctx      context.Context
	fetcher  report.Fetcher
	resultID int
	logger   *slog.Logger

	view     *res.View
	rows     []exam.GradedSubmission
	selected int
	detail   bool
	openID   int
	loaded   bool
	errMsg   string
	scroll   int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.EscapeHandler = (*Screen)(nil)

// New creates a results screen that fetches resultID through f.
func New(ctx context.Context, f report.Fetcher, resultID int, logger *slog.Logger) *Screen {
	if logger == nil {
		logger = slog.Default()
	}
	return &Screen{ctx: ctx, fetcher: f, resultID: resultID, logger: logger}
}

// NewWithResult shows an already fetched result.
func NewWithResult(r *exam.Result, logger *slog.Logger) *Screen {
	s := New(context.Background(), nil, r.ID, logger)
	s.setResult(r)
	return s
}

func (s *Screen) Init() tea.Cmd {
	if s.loaded || s.fetcher == nil {
		return nil
	}
	return s.load()
}

func (s *Screen) load() tea.Cmd {
	ctx, f, id := s.ctx, s.fetcher, s.resultID
	return func() tea.Msg {
		r, err := f.FetchResult(ctx, id)
		return resultLoadedMsg{Result: r, Err: err}
	}
}

func (s *Screen) setResult(r *exam.Result) {
	s.view = res.NewView(r, s.logger)
	s.rows = s.view.Submissions()
	s.selected = 0
	s.loaded = true
	s.errMsg = ""
}

func (s *Screen) Title() string {
	return "Results"
}

// HandlesEscape closes the drill-down before leaving the screen.
func (s *Screen) HandlesEscape() bool {
	return s.detail
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.detail {
		return []layout.KeyHint{
			{Key: "←→", Description: "Prev/Next question"},
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Esc", Description: "Overview"},
		}
	}
	if len(s.rows) > 0 {
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Select"},
			{Key: "Enter", Description: "Details"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "R", Description: "Reload"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resultLoadedMsg:
		if msg.Err != nil {
			s.logger.Error("load result", "result_id", s.resultID, "error", msg.Err)
			s.errMsg = msg.Err.Error()
			s.loaded = true
			return s, nil
		}
		s.setResult(msg.Result)
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg.String())
	}
	return s, nil
}

func (s *Screen) handleKey(key string) (screen.Screen, tea.Cmd) {
	if s.detail {
		switch key {
		case "esc", "backspace":
			s.detail = false
		case "left", "h":
			if s.selected > 0 {
				s.open(s.selected - 1)
			}
		case "right", "l":
			if s.selected < len(s.rows)-1 {
				s.open(s.selected + 1)
			}
		case "up", "k":
			s.scroll = max(s.scroll-1, 0)
		case "down", "j":
			s.scroll++
		}
		return s, nil
	}

	switch key {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.rows)-1 {
			s.selected++
		}
	case "enter":
		if len(s.rows) > 0 {
			s.detail = true
			s.open(s.selected)
		}
	case "r", "R":
		if s.fetcher != nil {
			s.loaded = false
			s.errMsg = ""
			return s, s.load()
		}
	case "q":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}
	return s, nil
}

// open moves the drill-down to row i.
func (s *Screen) open(i int) {
	s.selected = i
	s.openID = s.rows[i].QuestionID
	s.scroll = 0
}
