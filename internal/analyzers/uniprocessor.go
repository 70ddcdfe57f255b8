package analyzers

import (
	"math"
	"math/big"

	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/sched"
)

func uniprocessorAnalyzers() []Analyzer {
	return []Analyzer{
		{
			Name:         "edf-ll73",
			Title:        "Earliest Deadline First (Liu & Layland 1973)",
			Family:       FamilyUniprocessorEDF,
			Priority:     100,
			Precondition: all(singleProcessor, implicitDeadlines),
			Run:          runEDFUtilization,
		},
		{
			Name:         "rm-ll73-simple",
			Title:        "Fixed Priority RM, ln 2 bound (Liu & Layland 1973)",
			Family:       FamilyUniprocessorFP,
			Priority:     100,
			Precondition: all(singleProcessor, implicitDeadlines, sortedByPeriod),
			Run:          runRMLn2,
		},
		{
			Name:         "rm-ll73",
			Title:        "Fixed Priority RM (Liu & Layland 1973)",
			Family:       FamilyUniprocessorFP,
			Priority:     90,
			Precondition: all(singleProcessor, implicitDeadlines, sortedByPeriod),
			Run:          runRMBound,
		},
		{
			Name:         "rm-bbb01",
			Title:        "Fixed Priority RM Hyperbolic (Bini, Buttazzo, Buttazzo 2001)",
			Family:       FamilyUniprocessorFP,
			Priority:     80,
			Precondition: all(singleProcessor, implicitDeadlines, sortedByPeriod),
			Run:          runHyperbolic,
		},
		{
			Name:         "dm-lw82-pessimistic",
			Title:        "Fixed Priority DM, pessimistic (Leung & Whitehead 1982)",
			Family:       FamilyUniprocessorFP,
			Priority:     70,
			Precondition: all(singleProcessor, constrainedDeadlines, sortedByDeadline),
			Run:          runDMPessimistic,
		},
		{
			Name:         "dm-lw82",
			Title:        "Fixed Priority DM, response time (Leung & Whitehead 1982)",
			Family:       FamilyUniprocessorFP,
			Priority:     60,
			Precondition: all(singleProcessor, constrainedDeadlines, sortedByDeadline),
			Run:          runDMResponseTime,
		},
		{
			Name:         "rta-jp86",
			Title:        "Response Time Analysis (Joseph & Pandya 1986)",
			Family:       FamilyUniprocessorFP,
			Priority:     50,
			Precondition: all(singleProcessor, constrainedDeadlines, processingLoad),
			Run:          runJosephPandya,
		},
	}
}

func runEDFUtilization(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	u := ts.TotalUtilization()
	return Diagnostics{}, sched.Verdict(u.Cmp(big.NewRat(1, 1)) <= 0,
		"utilization %s exceeds 1", u.FloatString(4))
}

func runRMLn2(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	u := models.Float(ts.TotalUtilization())
	return Diagnostics{}, sched.Verdict(u <= math.Ln2, "utilization %.4f exceeds ln 2", u)
}

func runRMBound(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	if len(ts) == 0 {
		return Diagnostics{}, nil
	}
	n := float64(len(ts))
	bound := n * (math.Pow(2, 1/n) - 1)
	u := models.Float(ts.TotalUtilization())
	return Diagnostics{}, sched.Verdict(u <= bound, "utilization %.4f exceeds bound %.4f", u, bound)
}

func runHyperbolic(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	one := big.NewRat(1, 1)
	product := big.NewRat(1, 1)
	for _, task := range ts {
		product.Mul(product, new(big.Rat).Add(task.Utilization(), one))
	}
	return Diagnostics{}, sched.Verdict(product.Cmp(big.NewRat(2, 1)) <= 0,
		"utilization product %s exceeds 2", product.FloatString(4))
}

func runDMPessimistic(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	for k, task := range ts {
		demand := models.SatAdd(task.WCET, fpInterference(ts[:k], task.Deadline))
		if demand > task.Deadline {
			return Diagnostics{}, sched.NotSchedulable("task %d: demand %d exceeds deadline %d",
				k, int64(demand), int64(task.Deadline))
		}
	}
	return Diagnostics{}, nil
}

// fpResponseTime is the uniprocessor fixed-priority response-time
// recurrence of task k.
func fpResponseTime(ts models.TaskSet, k int, limit models.Time) (models.Time, bool) {
	return engine.ResponseTime(ts[k], limit, func(x models.Time) models.Time {
		return models.SatAdd(ts[k].WCET, fpInterference(ts[:k], x))
	})
}

func runDMResponseTime(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	var diag Diagnostics
	for k, task := range ts {
		r, ok := fpResponseTime(ts, k, task.Deadline)
		if !ok {
			return diag, missedDeadline(k, r, task.Deadline)
		}
		diag.ResponseTimes = append(diag.ResponseTimes, r)
	}
	return diag, nil
}

// processingLoad requires the work released over a hyperperiod to fit in
// it, which bounds every response time by the hyperperiod.
func processingLoad(ts models.TaskSet, _ Platform) error {
	h, err := ts.Hyperperiod()
	if err != nil {
		return err
	}
	if load := fpInterference(ts, h); load >= h {
		return sched.Precondition("processing load %d over hyperperiod %d is not below it", int64(load), int64(h))
	}
	return nil
}

// runJosephPandya computes every response time, so the diagnostics also
// cover tasks after the first deadline miss.
func runJosephPandya(ts models.TaskSet, _ Platform) (Diagnostics, error) {
	h, err := ts.Hyperperiod()
	if err != nil {
		return Diagnostics{}, err
	}

	var (
		diag  Diagnostics
		first error
	)
	for k, task := range ts {
		r, ok := fpResponseTime(ts, k, h)
		if !ok {
			return diag, missedDeadline(k, r, task.Deadline)
		}
		diag.ResponseTimes = append(diag.ResponseTimes, r)
		if r > task.Deadline && first == nil {
			first = missedDeadline(k, r, task.Deadline)
		}
	}
	return diag, first
}
