package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/models"
)

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(fgColor).
			Padding(0, 1)

	barPromptStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	barHintStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

const barHint = "Press : for commands (family, processors, model, run) or :@name to open a result"

// CmdBarModel is the ":" command line. Submitted commands are kept in a
// history recalled with ctrl+p and ctrl+n.
type CmdBarModel struct {
	input   textinput.Model
	focused bool
	status  string
	history []string
	// recall indexes history while browsing it; len(history) means the
	// fresh line.
	recall int
}

// NewCmdBarModel creates an unfocused command line.
func NewCmdBarModel() *CmdBarModel {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "family <name> | processors <n> | model <budget> <period> [m] | run"
	in.CharLimit = 200
	return &CmdBarModel{input: in}
}

// Focused reports whether the bar takes key input.
func (m *CmdBarModel) Focused() bool { return m.focused }

// Focus starts a fresh command line and clears the status.
func (m *CmdBarModel) Focus() tea.Cmd {
	m.focused, m.status = true, ""
	m.recall = len(m.history)
	return m.input.Focus()
}

// Blur drops the line being edited.
func (m *CmdBarModel) Blur() {
	m.focused = false
	m.input.Reset()
	m.input.Blur()
}

// Value is the text typed so far.
func (m *CmdBarModel) Value() string { return m.input.Value() }

// SetValue replaces the typed text.
func (m *CmdBarModel) SetValue(s string) {
	m.input.SetValue(s)
	m.input.CursorEnd()
}

// Submit returns the line, records it in the history and blurs.
func (m *CmdBarModel) Submit() string {
	line := strings.TrimSpace(m.input.Value())
	if line != "" && (len(m.history) == 0 || m.history[len(m.history)-1] != line) {
		m.history = append(m.history, line)
	}
	m.Blur()
	return line
}

// SetMessage shows a one-line status instead of the hint.
func (m *CmdBarModel) SetMessage(s string) { m.status = s }

// Update edits the line; esc cancels it.
func (m *CmdBarModel) Update(msg tea.Msg) (*CmdBarModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.Blur()
			return m, nil
		case "ctrl+p":
			m.browse(-1)
			return m, nil
		case "ctrl+n":
			m.browse(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *CmdBarModel) browse(delta int) {
	next := m.recall + delta
	if next < 0 || next > len(m.history) {
		return
	}
	m.recall = next
	if next == len(m.history) {
		m.SetValue("")
		return
	}
	m.SetValue(m.history[next])
}

// View renders the bar: the line while focused, else the last status or
// a hint.
func (m *CmdBarModel) View() string {
	switch {
	case m.focused:
		return barStyle.Render(barPromptStyle.Render(": ") + m.input.View())
	case m.status != "":
		return barStyle.Render(m.status)
	default:
		return barStyle.Render(barHintStyle.Render(barHint))
	}
}

// Execute applies a command to the session. Bare numbers are read in unit.
func (m *CmdBarModel) Execute(s *Session, input string, unit models.Time) tea.Cmd {
	msg := execute(s, input, unit)
	if msg == nil {
		return nil
	}
	return func() tea.Msg { return *msg }
}

func execute(s *Session, input string, unit models.Time) *cmdResultMsg {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), "/"))
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "family", "f":
		if len(args) != 1 {
			return &cmdResultMsg{message: "Usage: family <" + familyNames() + ">"}
		}
		if err := s.SetFamily(args[0]); err != nil {
			return &cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
		}
		return &cmdResultMsg{message: "Family " + args[0], rerun: true}

	case "processors", "p":
		if len(args) != 1 {
			return &cmdResultMsg{message: "Usage: processors <n>"}
		}
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err == nil {
			err = s.SetProcessors(n)
		}
		if err != nil {
			return &cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
		}
		return &cmdResultMsg{message: fmt.Sprintf("%d processor(s)", n), rerun: true}

	case "model", "m":
		if len(args) < 2 || len(args) > 3 {
			return &cmdResultMsg{message: "Usage: model <budget> <period> [concurrency]"}
		}
		budget, err := models.ParseTime(args[0], unit)
		if err != nil {
			return &cmdResultMsg{message: fmt.Sprintf("Error: budget: %v", err)}
		}
		period, err := models.ParseTime(args[1], unit)
		if err != nil {
			return &cmdResultMsg{message: fmt.Sprintf("Error: period: %v", err)}
		}
		var concurrency int64
		if len(args) == 3 {
			if concurrency, err = strconv.ParseInt(args[2], 10, 64); err != nil || concurrency < 1 {
				return &cmdResultMsg{message: fmt.Sprintf("Error: concurrency %q", args[2])}
			}
		}
		if err := s.SetModel(budget, period, concurrency); err != nil {
			return &cmdResultMsg{message: fmt.Sprintf("Error: %v", err)}
		}
		return &cmdResultMsg{message: "Model " + s.platform.Model.String(), rerun: true}

	case "run", "r":
		return &cmdResultMsg{message: "Re-running analyzers", rerun: true}

	default:
		return &cmdResultMsg{message: fmt.Sprintf("Unknown command: %s", cmd)}
	}
}

func familyNames() string {
	names := make([]string, len(analyzers.Families))
	for i, f := range analyzers.Families {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}
