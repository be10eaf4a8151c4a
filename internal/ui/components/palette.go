package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examtaker/internal/ui/theme"
)

// Palette is the grid of numbered question cells.
type Palette struct {
	Answered []bool
	Current  int
	Width    int
}

// View renders the cells, wrapping rows at Width.
func (p Palette) View() string {
	cellWidth := len(fmt.Sprint(len(p.Answered))) + 2
	perRow := max((p.Width+1)/(cellWidth+1), 1)

	var rows []string
	var row []string
	for i, answered := range p.Answered {
		style := theme.CellBlank
		switch {
		case i == p.Current:
			style = theme.CellCurrent
		case answered:
			style = theme.CellAnswered
		}
		cell := style.Width(cellWidth).Align(lipgloss.Center).Render(fmt.Sprint(i + 1))
		row = append(row, cell)
		if len(row) == perRow {
			rows = append(rows, strings.Join(row, " "))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, strings.Join(row, " "))
	}
	return strings.Join(rows, "\n")
}
