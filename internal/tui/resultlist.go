package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/sched"
)

var listTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("205"))

// ResultListModel manages the analyzer result list
type ResultListModel struct {
	list        list.Model
	items       []ResultItem
	filterIndex int
	family      string
}

// outcome filters, cycled with tab; -1 keeps every result
var filters = []sched.Kind{-1, sched.KindNone, sched.KindNotSchedulable, sched.KindPrecondition, sched.KindOther}
var filterLabels = []string{"all", "schedulable", "not schedulable", "precondition", "error"}

// NewResultListModel creates a new result list
func NewResultListModel() *ResultListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Analyzers"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = listTitleStyle

	return &ResultListModel{list: l}
}

// SetSize sets the list dimensions
func (m *ResultListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// SetResults replaces the listed results, keeping the current filter.
func (m *ResultListModel) SetResults(family string, items []ResultItem) {
	m.family = family
	m.items = items
	m.apply()
}

// Selected returns the highlighted result
func (m *ResultListModel) Selected() *ResultItem {
	if item := m.list.SelectedItem(); item != nil {
		res := item.(ResultItem)
		return &res
	}
	return nil
}

// Len is the number of visible results.
func (m *ResultListModel) Len() int { return len(m.list.Items()) }

// Filtering reports whether the list is taking filter input.
func (m *ResultListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// CycleFilter cycles through outcome filters
func (m *ResultListModel) CycleFilter() {
	m.filterIndex = (m.filterIndex + 1) % len(filters)
	m.apply()
}

func (m *ResultListModel) apply() {
	want := filters[m.filterIndex]
	var items []list.Item
	for _, it := range m.items {
		if want < 0 || it.Result.Kind() == want {
			items = append(items, it)
		}
	}
	m.list.SetItems(items)
	m.list.Title = fmt.Sprintf("%s [%s]", m.family, filterLabels[m.filterIndex])
}

// Update handles messages
func (m *ResultListModel) Update(msg tea.Msg) (*ResultListModel, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the result list
func (m *ResultListModel) View() string {
	if len(m.items) == 0 {
		return "\n  No analyzers in this family.\n"
	}
	return m.list.View()
}
