package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// Session holds what the browser analyzes: one task set, a platform and
// the family whose analyzers are listed.
type Session struct {
	registry *analyzers.Registry
	logger   *slog.Logger
	tasks    models.TaskSet
	family   analyzers.Family
	platform analyzers.Platform
}

// NewSession creates a session over the default registry.
func NewSession(ts models.TaskSet, family analyzers.Family, p analyzers.Platform, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		registry: analyzers.DefaultRegistry(),
		logger:   logger,
		tasks:    ts,
		family:   family,
		platform: p,
	}
}

// Evaluation is every analyzer of the family run on the session input,
// plus the verdict the battery reaches.
type Evaluation struct {
	Family   analyzers.Family
	Platform analyzers.Platform
	Items    []ResultItem
	Verdict  error
	Passed   string
}

// Evaluate runs each analyzer of the family. Unlike a battery it does not
// stop at the first pass, so every result can be browsed. An analyzer
// failure ends up in Verdict.
func (s *Session) Evaluate(ctx context.Context) (*Evaluation, error) {
	ev := &Evaluation{Family: s.family, Platform: s.platform}
	for _, a := range s.registry.Battery(s.family) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev.Items = append(ev.Items, ResultItem{
			Analyzer: a,
			Result:   a.Analyze(s.tasks, s.platform),
		})
	}

	report, err := analyzers.NewRunner(s.registry, s.logger).Run(ctx, s.family, s.tasks, s.platform)
	switch {
	case err != nil:
		ev.Verdict = err
	case report.Passed != nil:
		ev.Passed = report.Passed.Analyzer
	default:
		ev.Verdict = report.Err()
	}
	return ev, nil
}

// Tasks returns the task set under analysis.
func (s *Session) Tasks() models.TaskSet { return s.tasks }

// Family returns the family whose analyzers are listed.
func (s *Session) Family() analyzers.Family { return s.family }

// SetFamily switches the listed family.
func (s *Session) SetFamily(name string) error {
	f, err := analyzers.ParseFamily(name)
	if err != nil {
		return err
	}
	s.family = f
	return nil
}

// SetProcessors sets the processor count of flat analyses.
func (s *Session) SetProcessors(m int64) error {
	if err := analyzers.ValidateProcessors(m); err != nil {
		return err
	}
	s.platform.Processors = m
	return nil
}

// SetModel sets the resource interface of hierarchical analyses. A zero
// concurrency selects the periodic resource model.
func (s *Session) SetModel(budget, period models.Time, concurrency int64) error {
	var model resource.Model
	if concurrency == 0 {
		model = resource.PeriodicResourceModel{Resource: budget, Period: period}
	} else {
		model = resource.MultiprocessorResourceModel{Resource: budget, Period: period, Concurrency: concurrency}
	}
	if err := model.Validate(); err != nil {
		return err
	}
	s.platform.Model = model
	return nil
}

// Describe summarizes the verdict of an evaluation in one line.
func (ev *Evaluation) Describe() string {
	switch sched.KindOf(ev.Verdict) {
	case sched.KindNone:
		return fmt.Sprintf("schedulable by %s", ev.Passed)
	case sched.KindNotSchedulable:
		return "not schedulable by any analyzer"
	default:
		return fmt.Sprintf("undecided: %v", ev.Verdict)
	}
}
