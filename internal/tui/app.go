// Package tui provides the interactive result browser of rtcheck: every
// analyzer of a family run on one task set, with a detail pane per result.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/report"
	"github.com/fentz26/rtcheck/internal/sched"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

type keyMap struct {
	Enter   key.Binding
	Back    key.Binding
	Filter  key.Binding
	Command key.Binding
	Rerun   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Back, k.Filter, k.Command, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Enter, k.Back, k.Filter}, {k.Command, k.Rerun, k.Help, k.Quit}}
}

var keys = keyMap{
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Filter:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "outcome filter")),
	Command: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
	Rerun:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-run")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type mode int

const (
	modeList mode = iota
	modeDetail
)

// App is the main TUI application model.
type App struct {
	session     *Session
	unit        models.Time
	list        *ResultListModel
	detail      *ResultDetailModel
	cmdbar      *CmdBarModel
	suggestions *Suggestions
	help        help.Model
	mode        mode
	evaluation  *Evaluation
	width       int
	height      int
	loading     bool
}

// New creates a new TUI application. Bare numbers typed in commands are
// read in unit.
func New(session *Session, unit models.Time) *App {
	return &App{
		session:     session,
		unit:        unit,
		list:        NewResultListModel(),
		detail:      NewResultDetailModel(),
		cmdbar:      NewCmdBarModel(),
		suggestions: NewSuggestions(),
		help:        help.New(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.evaluate()
}

func (a *App) evaluate() tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		ev, err := a.session.Evaluate(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return evaluatedMsg{ev}
	}
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := max(msg.Height-6, 5)
		a.list.SetSize(msg.Width, contentHeight)
		a.detail.SetSize(msg.Width, contentHeight)
		return a, nil

	case evaluatedMsg:
		a.loading = false
		a.evaluation = msg.evaluation
		a.list.SetResults(string(msg.evaluation.Family), msg.evaluation.Items)
		list := make([]analyzers.Analyzer, 0, len(msg.evaluation.Items))
		for _, item := range msg.evaluation.Items {
			list = append(list, item.Analyzer)
		}
		a.suggestions.SetAnalyzers(list)
		if a.mode == modeDetail {
			a.mode = modeList
		}
		return a, nil

	case cmdResultMsg:
		a.cmdbar.SetMessage(msg.message)
		if msg.rerun {
			return a, a.evaluate()
		}
		return a, nil

	case errMsg:
		a.loading = false
		a.cmdbar.SetMessage("Error: " + msg.err.Error())
		return a, nil

	case tea.KeyMsg:
		if a.cmdbar.Focused() {
			return a, a.updateCommand(msg)
		}
		if a.mode == modeList && a.list.Filtering() {
			var cmd tea.Cmd
			a.list, cmd = a.list.Update(msg)
			return a, cmd
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Command):
			return a, a.cmdbar.Focus()
		case key.Matches(msg, keys.Help):
			a.help.ShowAll = !a.help.ShowAll
			return a, nil
		case key.Matches(msg, keys.Rerun):
			return a, a.evaluate()
		case key.Matches(msg, keys.Back) && a.mode == modeDetail:
			a.mode = modeList
			return a, nil
		case key.Matches(msg, keys.Enter) && a.mode == modeList:
			if sel := a.list.Selected(); sel != nil {
				a.showDetail(*sel)
			}
			return a, nil
		case key.Matches(msg, keys.Filter) && a.mode == modeList:
			a.list.CycleFilter()
			return a, nil
		}
	}

	var cmd tea.Cmd
	if a.mode == modeDetail {
		a.detail, cmd = a.detail.Update(msg)
	} else {
		a.list, cmd = a.list.Update(msg)
	}
	return a, cmd
}

func (a *App) updateCommand(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up":
		a.suggestions.Prev()
		return nil
	case "down":
		a.suggestions.Next()
		return nil
	case "tab":
		if text, ok := a.suggestions.Complete(); ok {
			a.cmdbar.SetValue(text)
			a.suggestions.Update(text)
		}
		return nil
	case "enter":
		input := strings.TrimSpace(a.cmdbar.Submit())
		a.suggestions.Update("")
		if name, ok := strings.CutPrefix(input, "@"); ok {
			return a.jumpTo(strings.TrimSpace(name))
		}
		return a.cmdbar.Execute(a.session, input, a.unit)
	}

	var cmd tea.Cmd
	a.cmdbar, cmd = a.cmdbar.Update(msg)
	a.suggestions.Update(a.cmdbar.Value())
	return cmd
}

// jumpTo opens the detail pane of the named analyzer.
func (a *App) jumpTo(name string) tea.Cmd {
	if a.evaluation != nil {
		for _, item := range a.evaluation.Items {
			if item.Analyzer.Name == name {
				a.showDetail(item)
				return nil
			}
		}
	}
	a.cmdbar.SetMessage(fmt.Sprintf("No analyzer %q in this family", name))
	return nil
}

func (a *App) showDetail(item ResultItem) {
	a.detail.Show(item, a.session.Tasks())
	a.mode = modeDetail
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("rtcheck") + " " + mutedStyle.Render(report.Summary(a.session.Tasks()))
	if ev := a.evaluation; ev != nil {
		header += "  " + verdictStyle(ev.Verdict).Render(ev.Describe())
	}
	b.WriteString(header + "\n")

	switch {
	case a.loading && a.evaluation == nil:
		b.WriteString("\n  Running analyzers...\n")
	case a.mode == modeDetail:
		b.WriteString(a.detail.View())
	default:
		b.WriteString(a.list.View())
	}
	b.WriteString("\n")

	b.WriteString(a.cmdbar.View())
	if a.cmdbar.Focused() && a.suggestions.IsVisible() {
		b.WriteString("\n" + a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	status := fmt.Sprintf(" %s on %s", a.session.Family(), a.platform())
	b.WriteString(statusBarStyle.Width(a.width).Render(status))
	b.WriteString("\n" + a.help.View(keys))

	return b.String()
}

func (a *App) platform() string {
	if a.evaluation == nil {
		return "..."
	}
	p := a.evaluation.Platform
	if a.evaluation.Family.Hierarchical() {
		return report.Model(p.Model)
	}
	return fmt.Sprintf("%d processor(s)", p.Processors)
}

func verdictStyle(err error) lipgloss.Style {
	switch sched.KindOf(err) {
	case sched.KindNone:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case sched.KindNotSchedulable:
		return lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(warningColor)
	}
}
