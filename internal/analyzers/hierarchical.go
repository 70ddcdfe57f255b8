package analyzers

import (
	"math/big"

	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

func hierarchicalAnalyzers() []Analyzer {
	return []Analyzer{
		{
			Name:         "pr-edf-sl03",
			Title:        "Periodic Resource Model, EDF (Shin & Lee 2003)",
			Family:       FamilyHierarchicalEDF,
			Priority:     100,
			Precondition: all(singleServer, implicitDeadlines),
			Run:          runEngine(prEDFTest{filtered: true}),
		},
		{
			Name:         "pr-edf-sl03-simple",
			Title:        "Periodic Resource Model, EDF, every interval (Shin & Lee 2003)",
			Family:       FamilyHierarchicalEDF,
			Priority:     10,
			Precondition: all(singleServer, implicitDeadlines),
			Run:          runEngine(prEDFTest{}),
		},
		{
			Name:         "mpr-edf-bcl09",
			Title:        "MPR Model, EDF (derived from Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyHierarchicalEDF,
			Priority:     90,
			Precondition: constrainedDeadlines,
			Run:          runEngine(bclTest{interferes: others, edf: true}),
		},
		{
			Name:         "mpr-edf-sel09",
			Title:        "MPR Model, EDF (Shin, Easwaran, Lee 2009)",
			Family:       FamilyHierarchicalEDF,
			Priority:     80,
			Precondition: constrainedDeadlines,
			Run:          runEngine(selTest{filtered: true}),
		},
		{
			Name:         "mpr-edf-sel09-simple",
			Title:        "MPR Model, EDF, every arrival (Shin, Easwaran, Lee 2009)",
			Family:       FamilyHierarchicalEDF,
			Priority:     5,
			Precondition: constrainedDeadlines,
			Run:          runEngine(selTest{}),
		},
		{
			Name:         "pr-fp-sl03",
			Title:        "Periodic Resource Model, FP (Shin & Lee 2003)",
			Family:       FamilyHierarchicalFP,
			Priority:     100,
			Precondition: all(singleServer, constrainedDeadlines),
			Run:          runPRFixedPriority,
		},
		{
			Name:         "pr-fp-server-delay",
			Title:        "Periodic Resource Model, FP with server delay",
			Family:       FamilyHierarchicalFP,
			Priority:     90,
			Precondition: all(singleServer, constrainedDeadlines),
			Run:          runPRServerDelay,
		},
		{
			Name:         "mpr-fp-bcl09",
			Title:        "MPR Model, FP (derived from Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyHierarchicalFP,
			Priority:     80,
			Precondition: constrainedDeadlines,
			Run:          runEngine(bclTest{interferes: higherPriority}),
		},
		{
			Name:         "mpr-fp-rta-servers",
			Title:        "MPR Model, FP response time over periodic servers",
			Family:       FamilyHierarchicalFP,
			Priority:     70,
			Precondition: constrainedDeadlines,
			Run:          runMPRServers,
		},
	}
}

func runEngine(test engine.Test) func(models.TaskSet, Platform) (Diagnostics, error) {
	return func(ts models.TaskSet, p Platform) (Diagnostics, error) {
		return Diagnostics{}, engine.IsSchedulable(ts, p.Model, test)
	}
}

// Periodic resource, EDF: the processor demand of the whole set in every
// interval t must fit the supply. The engine checks it through the task
// with the smallest deadline; every other task yields no instant.

type prEDFTest struct {
	filtered bool
}

func (prEDFTest) Demand(ts models.TaskSet, k int, _ resource.Model, a models.Time) models.Time {
	t := a + ts[k].Deadline
	var sum models.Time
	for _, task := range ts {
		sum = models.SatAdd(sum, dbf(task, t))
	}
	return sum
}

func (p prEDFTest) CriticalInstants(ts models.TaskSet, k int, model resource.Model) (engine.Instants, error) {
	if k != minDeadlineTask(ts) {
		return engine.None(), nil
	}
	if u := ts.TotalUtilization(); u.Cmp(model.Bandwidth()) > 0 {
		return nil, sched.NotSchedulable("utilization %s exceeds bandwidth %s",
			u.FloatString(4), model.Bandwidth().FloatString(4))
	}

	// Past one period plus lcm(H, Π) the slack only grows by a whole
	// lcm(H, Π)(U_Γ − U_T) per repetition.
	h, err := ts.Hyperperiod()
	if err != nil {
		return nil, err
	}
	period := model.MPR().Period
	l, err := models.LCM(h, period)
	if err != nil {
		return nil, err
	}
	upper, err := engine.ArrivalBound(rat(models.SatAdd(l, period) - ts[k].Deadline))
	if err != nil {
		return nil, err
	}

	instants := engine.Range(upper)
	if p.filtered {
		instants = instants.Filter(func(a models.Time) bool { return prEDFSteps(ts, k, a) })
	}
	return instants, nil
}

// prEDFSteps reports whether the demand steps at arrival a, that is
// whether a + D_k is a release of some task.
func prEDFSteps(ts models.TaskSet, k int, a models.Time) bool {
	if a == 0 {
		return true
	}
	t := a + ts[k].Deadline
	for _, task := range ts {
		if t.Mod(task.Period) == 0 {
			return true
		}
	}
	return false
}

func minDeadlineTask(ts models.TaskSet) int {
	best := 0
	for i, task := range ts {
		if task.Deadline < ts[best].Deadline {
			best = i
		}
	}
	return best
}

// Periodic resource, fixed priority.

func runPRFixedPriority(ts models.TaskSet, p Platform) (Diagnostics, error) {
	pr := periodic(p)
	return responseTimes(ts, func(k int) func(models.Time) models.Time {
		return func(x models.Time) models.Time {
			return pr.IntervalFromSupply(models.SatAdd(ts[k].WCET, fpInterference(ts[:k], x)))
		}
	})
}

func runPRServerDelay(ts models.TaskSet, p Platform) (Diagnostics, error) {
	pr := periodic(p)
	return responseTimes(ts, func(k int) func(models.Time) models.Time {
		return func(x models.Time) models.Time {
			r := models.SatAdd(ts[k].WCET, fpInterference(ts[:k], x))
			return models.SatAdd(r, serverDelay(x, pr.Resource, pr.Period))
		}
	})
}

// serverDelay bounds the time a periodic server with the given budget is
// unavailable within a window of length x.
func serverDelay(x, budget, period models.Time) models.Time {
	return jobs(models.SatAdd(x, budget).DivCeil(period), period-budget)
}

// responseTimes solves the recurrence of every task in priority order and
// stops at the first deadline miss.
func responseTimes(ts models.TaskSet, recurrence func(k int) func(models.Time) models.Time) (Diagnostics, error) {
	var diag Diagnostics
	for k, task := range ts {
		r, ok := engine.ResponseTime(task, task.Deadline, recurrence(k))
		if !ok {
			return diag, missedDeadline(k, r, task.Deadline)
		}
		diag.ResponseTimes = append(diag.ResponseTimes, r)
	}
	return diag, nil
}

// MPR model, global FP over the periodic servers that implement the
// interface. A missing server slot never supplies, so it delays a full
// period every period.
func runMPRServers(ts models.TaskSet, p Platform) (Diagnostics, error) {
	mpr := p.Model.MPR()
	servers := mpr.ToPeriodicTasks()
	idle := mpr.Concurrency - int64(len(servers))
	return responseTimes(ts, func(k int) func(models.Time) models.Time {
		return func(x models.Time) models.Time {
			var load models.Time
			for _, task := range ts[:k] {
				load = models.SatAdd(load, models.SatAdd(jobs(x.DivCeil(task.Period), task.WCET), task.WCET))
			}
			for _, server := range servers {
				load = models.SatAdd(load, serverDelay(x, server.WCET, server.Period))
			}
			load = models.SatAdd(load, jobs(x.DivCeil(mpr.Period), mpr.Period).SatMul(idle))
			return models.SatAdd(ts[k].WCET, models.Time(load.DivFloor(models.Time(mpr.Concurrency))))
		}
	})
}

// MPR model, BCL09 interference bounds against the MPR supply at the
// deadline of every task.

type bclTest struct {
	interferes func(i, k int) bool
	edf        bool
}

func (b bclTest) Demand(ts models.TaskSet, k int, model resource.Model, _ models.Time) models.Time {
	task := ts[k]
	value := func(i, k int) models.Time { return bclWorkload(task.Deadline, ts[i]) }
	if b.edf {
		value = func(i, k int) models.Time { return bclEDFInterference(ts[i], task) }
	}
	var sum models.Time
	for i := range ts {
		if b.interferes(i, k) {
			sum = models.SatAdd(sum, min(value(i, k), task.Laxity()+1))
		}
	}
	return models.SatAdd(sum, task.WCET.SatMul(model.MPR().Concurrency))
}

func (bclTest) CriticalInstants(models.TaskSet, int, resource.Model) (engine.Instants, error) {
	return engine.Once(0), nil
}

// MPR model, global EDF (Shin, Easwaran, Lee 2009).

type selTest struct {
	filtered bool
}

// selWorkload is the work of jobs of task with deadlines inside a window
// of length t whose end is a deadline of the analyzed job, with and
// without the carry-in job.
func selWorkload(task models.Task, t models.Time) (hat, flat models.Time) {
	n := (t + task.Period - task.Deadline).DivFloor(task.Period)
	hat = jobs(n, task.WCET)
	carry := min(task.WCET, max(0, t-task.Period.Mul(n)))
	return hat, models.SatAdd(hat, carry)
}

func (selTest) Demand(ts models.TaskSet, k int, model resource.Model, a models.Time) models.Time {
	m := model.MPR().Concurrency
	task := ts[k]
	t := a + task.Deadline
	hat := make([]models.Time, len(ts))
	flat := make([]models.Time, len(ts))
	for i, other := range ts {
		w, w2 := selWorkload(other, t)
		if i == k {
			hat[i], flat[i] = min(w-task.WCET, a), min(w2-task.WCET, a)
		} else {
			hat[i], flat[i] = min(w, t-task.WCET), min(w2, t-task.WCET)
		}
	}
	var sum models.Time
	for _, v := range hat {
		sum = models.SatAdd(sum, v)
	}
	sum = models.SatAdd(sum, topDifferences(flat, hat, int(m-1)))
	return models.SatAdd(sum, task.WCET.SatMul(m))
}

func (s selTest) CriticalInstants(ts models.TaskSet, k int, model resource.Model) (engine.Instants, error) {
	mpr := model.MPR()
	gap, err := engine.CheckBandwidthGap(mpr.Bandwidth(), ts.TotalUtilization())
	if err != nil {
		return nil, err
	}
	upper, err := engine.ArrivalBound(selArrivalBound(ts, k, mpr, gap))
	if err != nil {
		return nil, err
	}
	instants := engine.Range(upper)
	if s.filtered {
		instants = instants.Filter(func(a models.Time) bool { return selChanges(ts, k, a) })
	}
	return instants, nil
}

// selArrivalBound is the last arrival offset at which the demand of task
// k can exceed the supply of mpr:
//
//	(Σ_{m-1} C − m C_k − D_k gap + Σ (T_i − D_i) U_i + Θ(2 − 2Θ/(mΠ))) / gap
func selArrivalBound(ts models.TaskSet, k int, mpr resource.MultiprocessorResourceModel, gap *big.Rat) *big.Rat {
	task := ts[k]
	m := mpr.Concurrency
	num := rat(ts.LargestWCETs(int(m - 1)))
	num.Sub(num, new(big.Rat).Mul(rat(task.WCET), big.NewRat(m, 1)))
	num.Sub(num, new(big.Rat).Mul(rat(task.Deadline), gap))
	for _, other := range ts {
		num.Add(num, new(big.Rat).Mul(rat(other.Period-other.Deadline), other.Utilization()))
	}
	share := new(big.Rat).Mul(mpr.Bandwidth(), big.NewRat(2, m))
	num.Add(num, new(big.Rat).Mul(rat(mpr.Resource), share.Sub(big.NewRat(2, 1), share)))
	return num.Quo(num, gap)
}

// selChanges reports whether the demand at arrival a may exceed the demand
// at a-1: a job-count step, a growing carry-in or a clamp that still binds.
func selChanges(ts models.TaskSet, k int, a models.Time) bool {
	if a == 0 {
		return true
	}
	task := ts[k]
	t := a + task.Deadline
	for i, other := range ts {
		shifted := t + other.Period - other.Deadline
		if shifted.Mod(other.Period) == 0 {
			return true
		}
		n := shifted.DivFloor(other.Period)
		if u := t - other.Period.Mul(n); u >= 1 && u <= other.WCET {
			return true
		}
		_, w2 := selWorkload(other, t)
		if i == k {
			if a-1 < w2-task.WCET {
				return true
			}
		} else if t-task.WCET-1 < w2 {
			return true
		}
	}
	return false
}
