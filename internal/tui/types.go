package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/report"
	"github.com/fentz26/rtcheck/internal/sched"
)

var (
	outcomeOK           = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	outcomeNegative     = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	outcomePrecondition = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	outcomeError        = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // Magenta
)

// ResultItem implements list.Item for one analyzer result.
type ResultItem struct {
	Analyzer analyzers.Analyzer
	Result   sched.Result[analyzers.Diagnostics]
}

func (i ResultItem) FilterValue() string { return i.Analyzer.Name }
func (i ResultItem) Title() string       { return i.Analyzer.Name }
func (i ResultItem) Description() string {
	return fmt.Sprintf("%s • %s", formatOutcome(i.Result.Kind()), i.Analyzer.Title)
}

func formatOutcome(k sched.Kind) string {
	label := report.Mark(k) + " " + k.String()
	switch k {
	case sched.KindNone:
		return outcomeOK.Render(report.Mark(k) + " schedulable")
	case sched.KindNotSchedulable:
		return outcomeNegative.Render(label)
	case sched.KindPrecondition:
		return outcomePrecondition.Render(label)
	default:
		return outcomeError.Render(label)
	}
}

type evaluatedMsg struct {
	evaluation *Evaluation
}

type cmdResultMsg struct {
	message string
	rerun   bool
}

type errMsg struct {
	err error
}
