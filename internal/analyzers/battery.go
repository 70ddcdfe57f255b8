package analyzers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/sched"
)

// Report is the outcome of a battery run.
type Report struct {
	Family  Family                      `json:"family,omitempty"`
	Results []sched.Result[Diagnostics] `json:"results"`
	Passed  *sched.Result[Diagnostics]  `json:"-"`
}

// Err is the verdict of the run: nil when some analyzer accepted the task
// set, a not-schedulable error when at least one analyzer ran to a
// negative verdict, and a precondition error when none applied.
func (r *Report) Err() error {
	if r.Passed != nil {
		return nil
	}
	var precondition error
	for _, res := range r.Results {
		switch res.Kind() {
		case sched.KindNotSchedulable:
			return res.Err
		case sched.KindPrecondition:
			if precondition == nil {
				precondition = res.Err
			}
		}
	}
	if precondition != nil {
		return fmt.Errorf("no applicable analyzer: %w", precondition)
	}
	return sched.Precondition("no analyzer to run")
}

// Runner executes batteries from a registry.
type Runner struct {
	registry  *Registry
	logger    *slog.Logger
	overrides []string
}

// NewRunner creates a battery runner. A nil registry selects the whole
// catalog.
func NewRunner(reg *Registry, logger *slog.Logger) *Runner {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: reg, logger: logger}
}

// Override returns a runner that executes the named analyzers, in order,
// instead of the family battery.
func (r *Runner) Override(names ...string) *Runner {
	return &Runner{
		registry:  r.registry,
		logger:    r.logger,
		overrides: append([]string(nil), names...),
	}
}

// Run executes the analyzers of family in priority order until one
// accepts the task set. Precondition failures and negative verdicts move
// on to the next analyzer; any other error aborts the run.
func (r *Runner) Run(ctx context.Context, family Family, ts models.TaskSet, p Platform) (*Report, error) {
	battery, err := r.analyzers(family)
	if err != nil {
		return nil, err
	}

	report := &Report{Family: family}
	if len(r.overrides) > 0 {
		report.Family = ""
	}
	for _, a := range battery {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := a.Analyze(ts, p)
		report.Results = append(report.Results, res)
		r.logger.Debug("analyzer finished", "analyzer", a.Name, "family", string(a.Family), "outcome", res.Kind().String())

		switch res.Kind() {
		case sched.KindNone:
			report.Passed = &report.Results[len(report.Results)-1]
			r.logger.Info("task set schedulable", "analyzer", a.Name, "tasks", len(ts), "platform", p.String())
			return report, nil
		case sched.KindNotSchedulable, sched.KindPrecondition:
			continue
		default:
			r.logger.Error("analyzer failed", "analyzer", a.Name, "error", res.Err)
			return report, fmt.Errorf("%s: %w", a.Name, res.Err)
		}
	}
	r.logger.Info("no analyzer accepted the task set", "family", string(family), "ran", len(report.Results))
	return report, nil
}

func (r *Runner) analyzers(family Family) ([]Analyzer, error) {
	if len(r.overrides) == 0 {
		return r.registry.Battery(family), nil
	}
	list := make([]Analyzer, 0, len(r.overrides))
	for _, name := range r.overrides {
		a, err := r.registry.Get(name)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}
