// Package report renders battery and design outcomes for the terminal,
// styled with lipgloss, or as JSON for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

var (
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	primaryColor = lipgloss.Color("#7C3AED")
)

// styles are bound to a renderer so that colors follow the writer, not
// the process stdout.
type styles struct {
	title, label, muted  lipgloss.Style
	ok, negative, failed lipgloss.Style
	skipped              lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(primaryColor),
		label:    r.NewStyle().Bold(true),
		muted:    r.NewStyle().Foreground(mutedColor),
		ok:       r.NewStyle().Foreground(successColor).Bold(true),
		negative: r.NewStyle().Foreground(errorColor).Bold(true),
		failed:   r.NewStyle().Foreground(errorColor),
		skipped:  r.NewStyle().Foreground(warningColor),
	}
}

// Mark is the one-character outcome symbol of a kind.
func Mark(k sched.Kind) string {
	switch k {
	case sched.KindNone:
		return "✓"
	case sched.KindNotSchedulable, sched.KindInfeasible:
		return "✗"
	case sched.KindPrecondition:
		return "-"
	default:
		return "!"
	}
}

func (s styles) kind(k sched.Kind) lipgloss.Style {
	switch k {
	case sched.KindNone:
		return s.ok
	case sched.KindNotSchedulable, sched.KindInfeasible:
		return s.negative
	case sched.KindPrecondition:
		return s.skipped
	default:
		return s.failed
	}
}

// Duration formats t in the largest unit that divides it, in a form
// models.ParseTime reads back.
func Duration(t models.Time) string {
	switch {
	case t == 0:
		return "0"
	case t%models.Second == 0:
		return fmt.Sprintf("%ds", int64(t/models.Second))
	case t%models.Millisecond == 0:
		return fmt.Sprintf("%dms", int64(t/models.Millisecond))
	case t%models.Microsecond == 0:
		return fmt.Sprintf("%dus", int64(t/models.Microsecond))
	}
	return fmt.Sprintf("%dns", int64(t))
}

// Model formats a resource interface with readable times.
func Model(m resource.Model) string {
	if m == nil {
		return "none"
	}
	mpr := m.MPR()
	if _, ok := m.(resource.PeriodicResourceModel); ok {
		return fmt.Sprintf("PR{Θ=%s, Π=%s}", Duration(mpr.Resource), Duration(mpr.Period))
	}
	return fmt.Sprintf("MPR{Θ=%s, Π=%s, m'=%d}", Duration(mpr.Resource), Duration(mpr.Period), mpr.Concurrency)
}

func platform(p analyzers.Platform) string {
	if p.Model != nil {
		return Model(p.Model)
	}
	return fmt.Sprintf("%d processor(s)", p.Processors)
}

// Summary describes a task set in one line.
func Summary(ts models.TaskSet) string {
	return fmt.Sprintf("%d tasks · U=%s · density=%s",
		len(ts), ts.TotalUtilization().FloatString(4), ts.TotalDensity().FloatString(4))
}

// Battery writes the outcome of a battery run.
func Battery(w io.Writer, rep *analyzers.Report, ts models.TaskSet, p analyzers.Platform) error {
	s := newStyles(w)
	var b strings.Builder

	title := "rtcheck"
	if rep.Family != "" {
		title += " · " + string(rep.Family)
	}
	fmt.Fprintf(&b, "%s on %s\n", s.title.Render(title), platform(p))
	fmt.Fprintf(&b, "%s\n\n", s.muted.Render(Summary(ts)))

	width := 0
	for _, res := range rep.Results {
		width = max(width, len(res.Analyzer))
	}
	for _, res := range rep.Results {
		k := res.Kind()
		outcome := k.String()
		if k == sched.KindNone {
			outcome = "schedulable"
		}
		line := fmt.Sprintf("%s %-*s  %s", Mark(k), width, res.Analyzer, outcome)
		if res.Err != nil {
			line += ": " + res.Err.Error()
		}
		b.WriteString(s.kind(k).Render(line))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	err := rep.Err()
	verdict := "SCHEDULABLE"
	switch sched.KindOf(err) {
	case sched.KindNone:
		verdict += " (" + rep.Passed.Analyzer + ")"
	case sched.KindNotSchedulable:
		verdict = "NOT SCHEDULABLE"
	default:
		verdict = "UNDECIDED: " + err.Error()
	}
	fmt.Fprintf(&b, "%s %s\n", s.label.Render("Verdict:"), s.kind(sched.KindOf(err)).Render(verdict))

	if rep.Passed != nil && len(rep.Passed.Value.ResponseTimes) > 0 {
		b.WriteString(s.label.Render("Response times:"))
		for i, r := range rep.Passed.Value.ResponseTimes {
			fmt.Fprintf(&b, " τ%d=%s", i, Duration(r))
		}
		b.WriteByte('\n')
	}

	_, werr := io.WriteString(w, b.String())
	return werr
}

// DesignOutcome pairs a design result with its request for rendering.
type DesignOutcome struct {
	Result   sched.DesignResult[resource.MultiprocessorResourceModel]
	Periodic bool
}

// Design writes the outcome of an interface synthesis.
func Design(w io.Writer, out DesignOutcome, ts models.TaskSet) error {
	s := newStyles(w)
	var b strings.Builder

	res := out.Result
	fmt.Fprintf(&b, "%s\n", s.title.Render("rtcheck · design · "+res.Designer))
	fmt.Fprintf(&b, "%s\n\n", s.muted.Render(Summary(ts)))

	k := res.Kind()
	if k != sched.KindNone {
		fmt.Fprintf(&b, "%s\n", s.kind(k).Render(Mark(k)+" "+k.String()+": "+res.Err.Error()))
	} else {
		var model resource.Model = res.Value
		if out.Periodic {
			model = resource.PeriodicResourceModel{Resource: res.Value.Resource, Period: res.Value.Period}
		}
		fmt.Fprintf(&b, "%s %s\n", s.ok.Render(Mark(k)+" interface"), Model(model))
		fmt.Fprintf(&b, "%s %s\n", s.label.Render("bandwidth:"), res.Value.Bandwidth().FloatString(4))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Catalog writes the analyzers and designers as an aligned table.
func Catalog(w io.Writer, list []analyzers.Analyzer, designers []analyzers.Designer) error {
	s := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", s.title.Render("Analyzers"))
	nameWidth := len("NAME")
	for _, a := range list {
		nameWidth = max(nameWidth, len(a.Name))
	}
	for _, d := range designers {
		nameWidth = max(nameWidth, len(d.Name))
	}
	header := fmt.Sprintf("%-*s  %-10s  %8s  %s", nameWidth, "NAME", "FAMILY", "PRIORITY", "TITLE")
	b.WriteString(s.label.Render(header) + "\n")
	for _, a := range list {
		line := fmt.Sprintf("%-*s  %-10s  %8d  %s", nameWidth, a.Name, a.Family, a.Priority, a.Title)
		if !a.Enabled {
			line = s.muted.Render(line + " (disabled)")
		}
		b.WriteString(line + "\n")
	}

	if len(designers) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.title.Render("Designers"))
		b.WriteString(s.label.Render(fmt.Sprintf("%-*s  %-10s  %s", nameWidth, "NAME", "FAMILY", "TITLE")) + "\n")
		for _, d := range designers {
			fmt.Fprintf(&b, "%-*s  %-10s  %s\n", nameWidth, d.Name, d.Family, d.Title)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ResultJSON is the machine-readable form of one analyzer result.
type ResultJSON struct {
	Analyzer      string        `json:"analyzer"`
	Outcome       string        `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	ResponseTimes []models.Time `json:"response_times,omitempty"`
}

// BatteryJSON is the machine-readable form of a battery run.
type BatteryJSON struct {
	Family   string       `json:"family,omitempty"`
	Platform string       `json:"platform"`
	Verdict  string       `json:"verdict"`
	Passed   string       `json:"passed,omitempty"`
	Error    string       `json:"error,omitempty"`
	Results  []ResultJSON `json:"results"`
}

// NewBatteryJSON converts a report.
func NewBatteryJSON(rep *analyzers.Report, p analyzers.Platform) BatteryJSON {
	out := BatteryJSON{
		Family:   string(rep.Family),
		Platform: platform(p),
		Results:  make([]ResultJSON, 0, len(rep.Results)),
	}
	err := rep.Err()
	out.Verdict = sched.KindOf(err).String()
	if err != nil {
		out.Error = err.Error()
	}
	if rep.Passed != nil {
		out.Passed = rep.Passed.Analyzer
	}
	for _, res := range rep.Results {
		r := ResultJSON{
			Analyzer:      res.Analyzer,
			Outcome:       res.Kind().String(),
			ResponseTimes: res.Value.ResponseTimes,
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		out.Results = append(out.Results, r)
	}
	return out
}

// DesignJSON is the machine-readable form of a design outcome.
type DesignJSON struct {
	Designer    string      `json:"designer"`
	Outcome     string      `json:"outcome"`
	Error       string      `json:"error,omitempty"`
	Resource    models.Time `json:"resource,omitempty"`
	Period      models.Time `json:"period,omitempty"`
	Concurrency int64       `json:"concurrency,omitempty"`
}

// NewDesignJSON converts a design result.
func NewDesignJSON(res sched.DesignResult[resource.MultiprocessorResourceModel]) DesignJSON {
	out := DesignJSON{Designer: res.Designer, Outcome: res.Kind().String()}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}
	out.Resource = res.Value.Resource
	out.Period = res.Value.Period
	out.Concurrency = res.Value.Concurrency
	return out
}

// JSON writes v indented.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
