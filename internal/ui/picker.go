package ui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type pickResult int

const (
	pickNone pickResult = iota
	pickItem
	pickEmpty
	pickBack
	pickAbort
)

// pickerModel is the Bubble Tea model for the interactive list picker.
type pickerModel struct {
	menu   Menu
	cursor int
	result pickResult
}

func newPicker(menu Menu) pickerModel { return pickerModel{menu: menu} }

// rows counts the item rows plus the optional empty-choice row.
func (m pickerModel) rows() int {
	n := len(m.menu.Items)
	if m.menu.EmptyLabel != "" {
		n++
	}
	return n
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "q":
		m.result = pickAbort
		return m, tea.Quit
	case "esc", "b":
		m.result = pickBack
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.rows()-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.rows() == 0 {
			return m, nil
		}
		if m.cursor >= len(m.menu.Items) {
			m.result = pickEmpty
		} else {
			m.result = pickItem
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.result != pickNone {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(StyleTitle.Render("  "+m.menu.Title) + "\n")

	for i, item := range m.menu.Items {
		line := StyleValue.Render(item.Label)
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		sb.WriteString(m.row(i, line))
	}
	if m.menu.EmptyLabel != "" {
		sb.WriteString(m.row(len(m.menu.Items), StyleChain.Render("+ "+m.menu.EmptyLabel)))
	}

	sb.WriteString("\n")
	sb.WriteString(StyleMeta.Render("  [ ↑↓ / jk ] navigate   [ Enter ] select   [ esc / b ] back   [ q ] quit") + "\n")
	return sb.String()
}

func (m pickerModel) row(i int, line string) string {
	if i == m.cursor {
		return StyleSelected.Render("  ▸ "+line) + "\n"
	}
	return "    " + line + "\n"
}

// runPicker shows menu and maps the outcome onto the Prompter contract.
func runPicker(menu Menu, in io.Reader, out io.Writer) (int, error) {
	p := tea.NewProgram(newPicker(menu), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("picker: %w", err)
	}
	fm := final.(pickerModel)
	return fm.outcome()
}

func (m pickerModel) outcome() (int, error) {
	switch m.result {
	case pickItem:
		return m.cursor, nil
	case pickEmpty:
		return EmptyChoice, nil
	case pickBack:
		return 0, ErrBack
	default:
		return 0, ErrAborted
	}
}
