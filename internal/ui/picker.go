package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrNothingToPick is returned by PickItem for an empty list.
var ErrNothingToPick = errors.New("no items to pick from")

// PickerItem is one entry shown in the interactive picker.
type PickerItem struct {
	Label    string // network name
	SubLabel string // dimmed detail, e.g. chain ID
	Value    string // returned on selection
	Current  bool   // marks the active entry and starts the cursor on it
}

type pickerModel struct {
	title  string
	items  []PickerItem
	cursor int
	chosen int // -1 until enter
	done   bool
}

func newPicker(title string, items []PickerItem) pickerModel {
	m := pickerModel{title: title, items: items, chosen: -1}
	for i, it := range items {
		if it.Current {
			m.cursor = i
			break
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd { return nil }

// move shifts the cursor by delta, wrapping at both ends.
func (m *pickerModel) move(delta int) {
	n := len(m.items)
	m.cursor = ((m.cursor+delta)%n + n) % n
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.items) == 0 {
		return m, nil
	}
	switch s := key.String(); s {
	case "q", "ctrl+c", "esc":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "enter", " ":
		m.chosen, m.done = m.cursor, true
		return m, tea.Quit
	default:
		// 1-9 jump straight to an entry.
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(m.items) {
				m.cursor = i
			}
		}
	}
	return m, nil
}

func (m pickerModel) selected() (PickerItem, bool) {
	if m.chosen < 0 {
		return PickerItem{}, false
	}
	return m.items[m.chosen], true
}

func (m pickerModel) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n" + StyleTitle.Render("  "+m.title) + "\n\n")
	for i, item := range m.items {
		marker := "   "
		if i == m.cursor {
			marker = " ▸ "
		}
		line := fmt.Sprintf("%s%d %s", marker, i+1, StyleValue.Render(item.Label))
		if item.Current {
			line += " " + StyleSuccess.Render("●")
		}
		if item.SubLabel != "" {
			line += "  " + StyleMeta.Render(item.SubLabel)
		}
		if i == m.cursor {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("  [ ↑↓ / jk / 1-9 ] move   [ Enter ] select   [ q ] cancel") + "\n")
	return sb.String()
}

// PickItem runs an interactive list picker and returns the chosen item's
// Value, or "" when the user cancels.
func PickItem(title string, items []PickerItem) (string, error) {
	if len(items) == 0 {
		return "", ErrNothingToPick
	}

	final, err := tea.NewProgram(newPicker(title, items), tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	item, ok := final.(pickerModel).selected()
	if !ok {
		return "", nil
	}
	return item.Value, nil
}
