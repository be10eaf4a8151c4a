package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examtaker/internal/ui/theme"
)

// Choice is one selectable answer. Value is what gets recorded.
type Choice struct {
	Value string
	Label string
}

// OptionList is a radio list. The cursor moves with up/down and enter or
// space marks the choice under it as chosen.
type OptionList struct {
	Choices []Choice
	Cursor  int
	Chosen  int // -1 when nothing is chosen
}

// NewOptionList builds a list with the choice matching value pre-selected.
func NewOptionList(choices []Choice, value string) OptionList {
	l := OptionList{Choices: choices, Chosen: -1}
	for i, c := range choices {
		if c.Value == value && value != "" {
			l.Chosen = i
			l.Cursor = i
		}
	}
	return l
}

// Update handles navigation and selection. chosen is true when the
// selection changed.
func (l OptionList) Update(msg tea.Msg) (OptionList, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(l.Choices) == 0 {
		return l, false
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if l.Cursor > 0 {
			l.Cursor--
		}
	case "down", "j":
		if l.Cursor < len(l.Choices)-1 {
			l.Cursor++
		}
	case "enter", "space", " ":
		if l.Chosen != l.Cursor {
			l.Chosen = l.Cursor
			return l, true
		}
	default:
		// Digits pick directly.
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			i := int(key[0] - '1')
			if i < len(l.Choices) {
				l.Cursor = i
				if l.Chosen != i {
					l.Chosen = i
					return l, true
				}
			}
		}
	}
	return l, false
}

// Value returns the chosen value, or "".
func (l OptionList) Value() string {
	if l.Chosen < 0 || l.Chosen >= len(l.Choices) {
		return ""
	}
	return l.Choices[l.Chosen].Value
}

// View renders the list.
func (l OptionList) View() string {
	var b strings.Builder
	for i, c := range l.Choices {
		mark := "( )"
		if i == l.Chosen {
			mark = "(•)"
		}
		prefix := "  "
		if i == l.Cursor {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s %d. %s", prefix, mark, i+1, c.Label)
		if i == l.Cursor {
			b.WriteString(theme.Selected.Render(line))
		} else {
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
