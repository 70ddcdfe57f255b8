package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// ResultDetailModel shows one result with the per-task response times in
// a scrollable viewport.
type ResultDetailModel struct {
	viewport viewport.Model
	item     *ResultItem
	tasks    models.TaskSet
}

// NewResultDetailModel creates a new detail pane
func NewResultDetailModel() *ResultDetailModel {
	return &ResultDetailModel{viewport: viewport.New(80, 20)}
}

// SetSize sets the viewport dimensions
func (m *ResultDetailModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
}

// Show displays item for the given task set.
func (m *ResultDetailModel) Show(item ResultItem, ts models.TaskSet) {
	m.item = &item
	m.tasks = ts
	m.viewport.SetContent(m.render())
	m.viewport.GotoTop()
}

// Update handles messages
func (m *ResultDetailModel) Update(msg tea.Msg) (*ResultDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail pane
func (m *ResultDetailModel) View() string {
	if m.item == nil {
		return "No result selected."
	}
	return m.viewport.View()
}

func (m *ResultDetailModel) render() string {
	var b strings.Builder
	a, res := m.item.Analyzer, m.item.Result

	b.WriteString(headerStyle.Render(a.Title))
	b.WriteString("\n\n")
	b.WriteString(renderField("Name", a.Name))
	b.WriteString(renderField("Family", string(a.Family)))
	b.WriteString(renderField("Outcome", formatOutcome(res.Kind())))
	if res.Err != nil {
		b.WriteString(renderField("Reason", res.Err.Error()))
	}

	b.WriteString(sectionStyle.Render("Tasks"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-4s %10s %10s %10s %10s %10s\n", "", "WCET", "DEADLINE", "PERIOD", "RESPONSE", "SLACK")
	rt := res.Value.ResponseTimes
	for i, task := range m.tasks {
		response, slack := "-", "-"
		if i < len(rt) {
			response = report.Duration(rt[i])
			slack = report.Duration(task.Deadline - rt[i])
		}
		fmt.Fprintf(&b, "  τ%-3d %10s %10s %10s %10s %10s\n", i,
			report.Duration(task.WCET), report.Duration(task.Deadline), report.Duration(task.Period), response, slack)
	}
	return b.String()
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}
