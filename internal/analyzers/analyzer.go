// Package analyzers catalogs the published schedulability tests and
// interface designers, keeps them in a named registry and runs them in
// short-circuiting batteries.
package analyzers

import (
	"errors"
	"fmt"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

var (
	ErrNoProcessors      = errors.New("platform needs at least one processor")
	ErrTooManyProcessors = fmt.Errorf("platform supports at most %d processors", resource.MaxConcurrency)
)

// ValidateProcessors checks a processor count of a flat platform.
func ValidateProcessors(m int64) error {
	switch {
	case m < 1:
		return ErrNoProcessors
	case m > resource.MaxConcurrency:
		return fmt.Errorf("%w: got %d", ErrTooManyProcessors, m)
	}
	return nil
}

// Family groups analyzers by policy and platform. Each family is also a
// battery.
type Family string

const (
	FamilyUniprocessorEDF Family = "up-edf"
	FamilyUniprocessorFP  Family = "up-fp"
	FamilyGlobalEDF       Family = "global-edf"
	FamilyGlobalFP        Family = "global-fp"
	FamilyHierarchicalEDF Family = "hier-edf"
	FamilyHierarchicalFP  Family = "hier-fp"
)

// Families lists every family in display order.
var Families = []Family{
	FamilyUniprocessorEDF,
	FamilyUniprocessorFP,
	FamilyGlobalEDF,
	FamilyGlobalFP,
	FamilyHierarchicalEDF,
	FamilyHierarchicalFP,
}

// ParseFamily resolves a family name.
func ParseFamily(s string) (Family, error) {
	for _, f := range Families {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown algorithm family %q", s)
}

// Hierarchical reports whether analyzers of the family need a resource model.
func (f Family) Hierarchical() bool {
	return f == FamilyHierarchicalEDF || f == FamilyHierarchicalFP
}

// Platform is what the task set runs on: a number of identical processors
// for flat analyses, or a resource interface for hierarchical ones.
type Platform struct {
	Processors int64
	Model      resource.Model
}

func (p Platform) String() string {
	if p.Model != nil {
		return p.Model.String()
	}
	return fmt.Sprintf("%d processor(s)", p.Processors)
}

// Diagnostics carries what an analyzer learned besides the verdict.
type Diagnostics struct {
	ResponseTimes []models.Time `json:"response_times,omitempty"`
}

// Check is a precondition on a task set and platform.
type Check func(ts models.TaskSet, p Platform) error

// Analyzer describes one published test.
type Analyzer struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Family   Family `json:"family"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`

	Precondition Check                                                    `json:"-"`
	Run          func(ts models.TaskSet, p Platform) (Diagnostics, error) `json:"-"`
}

// Analyze validates the input, checks preconditions and runs the test.
func (a Analyzer) Analyze(ts models.TaskSet, p Platform) sched.Result[Diagnostics] {
	if err := ts.Validate(); err != nil {
		return sched.NewResult(a.Name, Diagnostics{}, err)
	}
	if err := a.checkPlatform(p); err != nil {
		return sched.NewResult(a.Name, Diagnostics{}, err)
	}
	if a.Precondition != nil {
		if err := a.Precondition(ts, p); err != nil {
			return sched.NewResult(a.Name, Diagnostics{}, err)
		}
	}
	diag, err := a.Run(ts, p)
	return sched.NewResult(a.Name, diag, err)
}

func (a Analyzer) checkPlatform(p Platform) error {
	if a.Family.Hierarchical() {
		if p.Model == nil {
			return sched.ErrResourceModel
		}
		return p.Model.Validate()
	}
	return ValidateProcessors(p.Processors)
}

// all chains checks, reporting the first failure.
func all(checks ...Check) Check {
	return func(ts models.TaskSet, p Platform) error {
		for _, c := range checks {
			if err := c(ts, p); err != nil {
				return err
			}
		}
		return nil
	}
}

func implicitDeadlines(ts models.TaskSet, _ Platform) error {
	if !ts.ImplicitDeadlines() {
		return sched.ErrImplicitDeadlines
	}
	return nil
}

func constrainedDeadlines(ts models.TaskSet, _ Platform) error {
	if !ts.ConstrainedDeadlines() {
		return sched.ErrConstrainedDeadlines
	}
	return nil
}

func sortedByPeriod(ts models.TaskSet, _ Platform) error {
	if !ts.SortedByPeriod() {
		return sched.ErrSortedByPeriod
	}
	return nil
}

func sortedByDeadline(ts models.TaskSet, _ Platform) error {
	if !ts.SortedByDeadline() {
		return sched.ErrSortedByDeadline
	}
	return nil
}

func singleProcessor(_ models.TaskSet, p Platform) error {
	if p.Processors != 1 {
		return sched.ErrSingleProcessor
	}
	return nil
}

// singleServer accepts PR models and MPR models with concurrency one.
func singleServer(_ models.TaskSet, p Platform) error {
	if p.Model.MPR().Concurrency != 1 {
		return sched.Precondition("analysis requires a single-processor resource model, got %s", p.Model)
	}
	return nil
}

// periodic views the platform model as a PR model. Callers check
// singleServer first.
func periodic(p Platform) resource.PeriodicResourceModel {
	mpr := p.Model.MPR()
	return resource.NewPR(int64(mpr.Resource), int64(mpr.Period))
}

// missedDeadline is the not-schedulable error of response-time tests.
func missedDeadline(k int, r, deadline models.Time) error {
	return sched.NotSchedulable("task %d: response time %d exceeds deadline %d", k, int64(r), int64(deadline))
}
