package analyzers

import (
	"context"
	"log/slog"

	"github.com/fentz26/rtcheck/internal/design"
	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// Designer synthesizes the cheapest interface under which one published
// test accepts a task set.
type Designer struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Family Family `json:"family"`
	// Periodic designers search single-processor interfaces only.
	Periodic bool `json:"periodic"`

	Precondition Check `json:"-"`
	// Budget is the closed-form budget through the linear supply bound.
	Budget design.LinearProblem `json:"-"`
	// Exact validates every budget the designer returns.
	Exact engine.Test `json:"-"`
	// BandwidthGap makes the smallest budget keep the bandwidth gap the
	// exact test needs for finite arrival bounds.
	BandwidthGap bool `json:"-"`
}

// DesignRequest is the search space and method of one synthesis.
type DesignRequest struct {
	Bounds   design.Bounds
	Strategy design.Strategy
	// Step enables the stepped search below the linear budget. Zero keeps
	// the linear budget.
	Step   models.Time
	Config *design.Config
}

// Synthesize searches the bounds for the interface with the smallest
// budget.
func (d Designer) Synthesize(ctx context.Context, ts models.TaskSet, req DesignRequest) sched.DesignResult[resource.MultiprocessorResourceModel] {
	model, err := d.synthesize(ctx, ts, req)
	return sched.NewDesignResult(d.Name, model, err)
}

func (d Designer) synthesize(ctx context.Context, ts models.TaskSet, req DesignRequest) (resource.MultiprocessorResourceModel, error) {
	var none resource.MultiprocessorResourceModel
	if err := ts.Validate(); err != nil {
		return none, err
	}
	if d.Precondition != nil {
		if err := d.Precondition(ts, Platform{}); err != nil {
			return none, err
		}
	}
	if req.Step < 0 {
		return none, design.ErrInvalidStep
	}

	periods, err := req.Bounds.Periods.Values()
	if err != nil {
		return none, err
	}
	conc := design.ConcurrencyRange{Min: 1, Max: 1}
	if !d.Periodic {
		if conc, err = design.ConcurrencyBounds(ts, req.Bounds.Concurrency); err != nil {
			return none, err
		}
	}

	log := slog.Default()
	if req.Config != nil && req.Config.Logger != nil {
		log = req.Config.Logger
	}
	log.Info("designing interface", "designer", d.Name, "tasks", len(ts),
		"periods", len(periods), "concurrency_min", conc.Min, "concurrency_max", conc.Max,
		"strategy", req.Strategy.String(), "step", int64(req.Step))

	model, err := design.SearchPeriod(ctx, ts, periods, conc, req.Strategy, d.budget(req.Step), req.Config)
	if err != nil {
		log.Info("design failed", "designer", d.Name, "error", err)
		return none, err
	}
	log.Info("interface found", "designer", d.Name, "model", model.String())
	return model, nil
}

// budget inverts the linear bound and validates the result with the
// exact test, raising it when the test rejects it. With a positive step it
// first walks up from the utilization budget looking for a smaller one
// the exact test accepts.
func (d Designer) budget(step models.Time) design.ResourceFunc {
	return func(ctx context.Context, ts models.TaskSet, cand design.Candidate) (models.Time, error) {
		upper, err := design.LinearInversion(ctx, ts, cand, d.Budget)
		if err != nil || d.Exact == nil {
			return upper, err
		}
		check := func(m resource.MultiprocessorResourceModel) error {
			return engine.IsSchedulable(ts, d.model(m), d.Exact)
		}
		lower := design.UtilizationBudget(ts, cand.Period)
		if d.BandwidthGap {
			lower = design.GapBudget(ts, cand.Period)
		}
		upper = max(upper, lower)
		if upper > cand.Capacity() {
			return upper, nil
		}
		if step == 0 {
			return design.RaiseBudget(ctx, cand, upper, check)
		}
		r, err := design.SteppedSearch(ctx, cand, design.UtilizationBudget(ts, cand.Period), upper, step, check)
		if sched.KindOf(err) != sched.KindInfeasible {
			return r, err
		}
		return design.RaiseBudget(ctx, cand, upper+1, check)
	}
}

func (d Designer) model(m resource.MultiprocessorResourceModel) resource.Model {
	if d.Periodic {
		return resource.PeriodicResourceModel{Resource: m.Resource, Period: m.Period}
	}
	return m
}

func designerCatalog() []Designer {
	return []Designer{
		{
			Name:         "mpr-edf-sel09",
			Title:        "MPR Model, EDF (Shin, Easwaran, Lee 2009)",
			Family:       FamilyHierarchicalEDF,
			Precondition: constrainedDeadlines,
			Budget:       selProblem(),
			Exact:        selTest{filtered: true},
			BandwidthGap: true,
		},
		{
			Name:         "mpr-edf-bcl09",
			Title:        "MPR Model, EDF (derived from Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyHierarchicalEDF,
			Precondition: constrainedDeadlines,
			Budget:       bclProblem(bclTest{interferes: others, edf: true}),
			Exact:        bclTest{interferes: others, edf: true},
		},
		{
			Name:         "mpr-fp-bcl09",
			Title:        "MPR Model, FP (derived from Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyHierarchicalFP,
			Precondition: constrainedDeadlines,
			Budget:       bclProblem(bclTest{interferes: higherPriority}),
			Exact:        bclTest{interferes: higherPriority},
		},
		{
			Name:         "pr-edf-sl03",
			Title:        "Periodic Resource Model, EDF (Shin & Lee 2003)",
			Family:       FamilyHierarchicalEDF,
			Periodic:     true,
			Precondition: implicitDeadlines,
			Budget:       prEDFProblem(),
			Exact:        prEDFTest{filtered: true},
		},
	}
}

// selProblem checks every arrival up to one capacity m·Π. Only the
// demand-side steps matter since the linear supply is strictly increasing.
func selProblem() design.LinearProblem {
	return design.LinearProblem{
		Demand: func(ts models.TaskSet, k int, cand design.Candidate, a models.Time) models.Time {
			return selTest{}.Demand(ts, k, cand.Model(0), a)
		},
		Instants: func(ts models.TaskSet, k int, cand design.Candidate) (engine.Instants, error) {
			return engine.Range(cand.Capacity()).Filter(func(a models.Time) bool {
				return selChanges(ts, k, a)
			}), nil
		},
	}
}

func bclProblem(test bclTest) design.LinearProblem {
	return design.LinearProblem{
		Demand: func(ts models.TaskSet, k int, cand design.Candidate, a models.Time) models.Time {
			return test.Demand(ts, k, cand.Model(0), a)
		},
		Instants: func(models.TaskSet, int, design.Candidate) (engine.Instants, error) {
			return engine.Once(0), nil
		},
	}
}

// prEDFProblem checks the release instants of the first hyperperiods. The
// linear supply grows at least as fast as the demand, so later instants
// repeat earlier ones with more slack.
func prEDFProblem() design.LinearProblem {
	return design.LinearProblem{
		Demand: func(ts models.TaskSet, k int, cand design.Candidate, a models.Time) models.Time {
			return prEDFTest{}.Demand(ts, k, cand.Model(0), a)
		},
		Instants: func(ts models.TaskSet, k int, _ design.Candidate) (engine.Instants, error) {
			if k != minDeadlineTask(ts) {
				return engine.None(), nil
			}
			h, err := ts.Hyperperiod()
			if err != nil {
				return nil, err
			}
			upper, err := engine.ArrivalBound(rat(h.SatMul(2) - ts[k].Deadline))
			if err != nil {
				return nil, err
			}
			return engine.Range(upper).Filter(func(a models.Time) bool { return prEDFSteps(ts, k, a) }), nil
		},
		Invert: func(required, interval models.Time, cand design.Candidate) (models.Time, error) {
			return resource.PRResourceFromLinearSupply(required, interval, cand.Period)
		},
	}
}
