package results

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	res "github.com/abhisek/examtaker/internal/results"
	"github.com/abhisek/examtaker/internal/ui/components"
	"github.com/abhisek/examtaker/internal/ui/layout"
	"github.com/abhisek/examtaker/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	if s.errMsg != "" {
		return layout.Center(theme.ErrorText.Render("Error: "+s.errMsg)+"\n\n"+
			theme.Hint.Render("Press R to reload or Esc to go back."), width, height)
	}
	if !s.loaded {
		return layout.Center(theme.Hint.Render("Loading result..."), width, height)
	}
	if s.detail {
		return s.renderDetail(width, height)
	}
	return s.renderOverview(width, height)
}

func (s *Screen) renderOverview(width, height int) string {
	v := s.view
	r := v.Result
	inner := max(width-4, 40)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(theme.Title.Render(fmt.Sprintf("  Result #%d", r.ID)))
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  ·  exam %d", r.ExamID)))
	b.WriteString("\n")

	verdict := theme.Incorrect.Render("FAILED")
	if r.Passed {
		verdict = theme.Correct.Render("PASSED")
	}
	b.WriteString(fmt.Sprintf("  Score %s  (%.1f%%)  %s\n",
		theme.Body.Bold(true).Render(scoreText(v.DisplayTotal, v.MaxPoints, r.Detailed)), r.PercentageScore, verdict))

	if !v.Consistency.OK() {
		b.WriteString(theme.Warning.Render("  ⚠ The reported total does not match the graded questions; showing the graded sum."))
		b.WriteString("\n")
	}
	if !r.Detailed {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render("  Per-question detail is unavailable. Showing the result summary."))
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render("  By question type"))
	b.WriteString("\n")
	labelW := 18
	for _, t := range v.ByType {
		label := fmt.Sprintf("%-*s", labelW, t.Type.Label())
		count := fmt.Sprintf("%2d question%s", t.Count, plural(t.Count))
		pts := fmt.Sprintf("%6.2f / %-6.2f", t.PointsEarned, t.MaxPoints)
		row := fmt.Sprintf("  %s %s  %s  ", label, count, pts)
		barW := max(inner-lipgloss.Width(row), 12)
		bar := components.NewProgressBar("", t.Percentage/100, true, barW).View()
		b.WriteString(theme.Body.Render(row) + bar + "\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render("  Questions"))
	b.WriteString("\n")

	// Keep the selection visible.
	used := lipgloss.Height(b.String())
	avail := max(height-used-1, 3)
	start := 0
	if s.selected >= avail {
		start = s.selected - avail + 1
	}
	end := min(start+avail, len(s.rows))

	for i := start; i < end; i++ {
		g := s.rows[i]
		mark := theme.Incorrect.Render("✗")
		if g.Correct() {
			mark = theme.Correct.Render("✓")
		}
		prefix := "    "
		style := theme.Unselected
		if i == s.selected {
			prefix = "  ▸ "
			style = theme.Selected
		}
		head := fmt.Sprintf("%s%2d. %-16s", prefix, i+1, g.QuestionType.Label())
		pts := fmt.Sprintf(" %5.2f / %-5.2f ", g.PointsEarned, g.MaxPoints)
		text := layout.Truncate(g.QuestionText, max(inner-lipgloss.Width(head)-lipgloss.Width(pts)-4, 10))
		b.WriteString(style.Render(head) + " " + mark + style.Render(pts) + theme.Subtitle.Render(text) + "\n")
	}
	return b.String()
}

func (s *Screen) renderDetail(width, height int) string {
	g, ok := s.view.Question(s.openID)
	if !ok {
		return layout.Center(theme.Warning.Render(fmt.Sprintf("Question %d is not part of this result.", s.openID))+"\n\n"+
			theme.Hint.Render("Press Esc for the overview."), width, height)
	}
	inner := max(width-6, 40)
	wrap := lipgloss.NewStyle().Width(inner)

	var lines []string
	add := func(parts ...string) {
		lines = append(lines, strings.Split(strings.Join(parts, ""), "\n")...)
	}

	add(theme.Title.Render(fmt.Sprintf("Question %d of %d", s.selected+1, len(s.rows))),
		theme.Subtitle.Render("  ·  "+g.QuestionType.Label()))
	add("")
	if g.QuestionText != "" {
		add(wrap.Foreground(theme.Text).Bold(true).Render(g.QuestionText))
		add("")
	}

	status := theme.Incorrect.Render("Incorrect")
	if g.Correct() {
		status = theme.Correct.Render("Correct")
	}
	add(fmt.Sprintf("Points: %.2f / %.2f   ", g.PointsEarned, g.MaxPoints), status)
	add("")
	add(theme.Subtitle.Render("Your answer"))
	add(wrap.Render(orDash(g.StudentAnswer)))
	if ans, ok := g.VisibleCorrectAnswer(); ok {
		add("")
		add(theme.Subtitle.Render("Correct answer"))
		add(wrap.Render(ans))
	}

	d := g.Detail
	if res.IsChoice(g.QuestionType) {
		add("")
		add("Selected option: ", theme.Body.Render(orDash(g.SelectedChoice())))
		add("Correct options: ", theme.Body.Render(orDash(strings.Join(g.CorrectChoices(), ", "))))
	} else if !d.Empty() {
		add("")
		add(theme.Subtitle.Render("Score breakdown"))
		if pct, ok := res.ScoreBar(d); ok {
			add(components.NewProgressBar("", float64(pct)/100, true, min(inner, 50)).View())
		}
		for _, row := range res.Breakdown(d) {
			add(fmt.Sprintf("  %-20s %s", row.Label, row.Display()))
		}
		if t := d.ThresholdApplied; t != nil {
			add("")
			line := fmt.Sprintf("Threshold %.0f%%: %s", t.Threshold*100, t.Description)
			if meets, ok := res.MeetsThreshold(d); ok && meets {
				add(theme.Correct.Render(line))
			} else {
				add(theme.Warning.Render(line))
			}
		}
		if d.Method != "" {
			add(theme.Hint.Render("Graded by " + d.Method))
		}
	}
	if d.Error != "" {
		add("")
		add(theme.ErrorText.Render("Grading error: " + d.Error))
	}
	if fb := g.Feedback(); fb != "" {
		add("")
		add(theme.Subtitle.Render("Feedback"))
		add(wrap.Render(fb))
	}

	// Scroll within the detail.
	maxScroll := max(len(lines)-height+1, 0)
	s.scroll = min(s.scroll, maxScroll)
	visible := lines[s.scroll:]
	if len(visible) > height {
		visible = visible[:height]
	}
	return indentLines(visible, 3)
}

// scoreText hides the maximum when only the summary is known.
func scoreText(total, maxPoints float64, detailed bool) string {
	if !detailed {
		return fmt.Sprintf("%.2f", total)
	}
	return fmt.Sprintf("%.2f / %.2f", total, maxPoints)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func indentLines(lines []string, n int) string {
	pad := strings.Repeat(" ", n)
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
