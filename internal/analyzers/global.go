package analyzers

import (
	"math/big"

	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

func globalAnalyzers() []Analyzer {
	return []Analyzer{
		{
			Name:         "gfb03",
			Title:        "Global EDF density bound (Goossens, Funk, Baruah 2003)",
			Family:       FamilyGlobalEDF,
			Priority:     100,
			Precondition: constrainedDeadlines,
			Run:          runGFB,
		},
		{
			Name:         "bak03",
			Title:        "Global EDF (Baker 2003)",
			Family:       FamilyGlobalEDF,
			Priority:     90,
			Precondition: constrainedDeadlines,
			Run:          runBaker,
		},
		{
			Name:         "bcl05-edf",
			Title:        "Global EDF (Bertogna, Cirinei, Lipari 2005)",
			Family:       FamilyGlobalEDF,
			Priority:     80,
			Precondition: constrainedDeadlines,
			Run:          runBCL05EDF,
		},
		{
			Name:         "bcl09-edf",
			Title:        "Global EDF (Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyGlobalEDF,
			Priority:     70,
			Precondition: constrainedDeadlines,
			Run:          runBCL09EDF,
		},
		{
			Name:         "baruah07",
			Title:        "Global EDF (Baruah 2007)",
			Family:       FamilyGlobalEDF,
			Priority:     60,
			Precondition: constrainedDeadlines,
			Run:          runBaruah(true),
		},
		{
			Name:         "baruah07-simple",
			Title:        "Global EDF, every arrival (Baruah 2007)",
			Family:       FamilyGlobalEDF,
			Priority:     10,
			Precondition: constrainedDeadlines,
			Run:          runBaruah(false),
		},
		{
			Name:         "bcl05-dm",
			Title:        "Global FP DM density bound (Bertogna, Cirinei, Lipari 2005)",
			Family:       FamilyGlobalFP,
			Priority:     100,
			Precondition: all(constrainedDeadlines, sortedByDeadline),
			Run:          runBCL05DM,
		},
		{
			Name:         "bcl09-fp",
			Title:        "Global FP (Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyGlobalFP,
			Priority:     90,
			Precondition: constrainedDeadlines,
			Run:          runBCL09FP,
		},
		{
			Name:         "guan09-rta-lc",
			Title:        "Global FP response time, limited carry-in (Guan, Stigge, Yi, Yu 2009)",
			Family:       FamilyGlobalFP,
			Priority:     80,
			Precondition: constrainedDeadlines,
			Run:          runGuanRTA,
		},
		{
			Name:         "bcl09-wc",
			Title:        "Any work-conserving scheduler (Bertogna, Cirinei, Lipari 2009)",
			Family:       FamilyGlobalFP,
			Priority:     70,
			Precondition: constrainedDeadlines,
			Run:          runBCL09WorkConserving,
		},
	}
}

func processors(p Platform) *big.Rat { return big.NewRat(p.Processors, 1) }

// runGFB checks d_tot <= m - (m-1) d_max.
func runGFB(ts models.TaskSet, p Platform) (Diagnostics, error) {
	m := processors(p)
	dMax := ts.MaxDensity()
	bound := new(big.Rat).Sub(m, new(big.Rat).Mul(new(big.Rat).Sub(m, big.NewRat(1, 1)), dMax))
	dTot := ts.TotalDensity()
	return Diagnostics{}, sched.Verdict(dTot.Cmp(bound) <= 0,
		"total density %s exceeds %s", dTot.FloatString(4), bound.FloatString(4))
}

func runBaker(ts models.TaskSet, p Platform) (Diagnostics, error) {
	one := big.NewRat(1, 1)
	m := processors(p)
	for k, task := range ts {
		lambda := task.Density()
		sum := new(big.Rat)
		for _, other := range ts {
			u := other.Utilization()
			slack := models.Ratio(other.Period-other.Deadline, task.Deadline)
			beta := new(big.Rat).Mul(u, new(big.Rat).Add(one, slack))
			if lambda.Cmp(u) < 0 {
				excess := new(big.Rat).Sub(rat(other.WCET),
					new(big.Rat).Mul(lambda, rat(other.Period)))
				beta.Add(beta, excess.Quo(excess, rat(task.Deadline)))
			}
			if beta.Cmp(one) > 0 {
				beta = one
			}
			sum.Add(sum, beta)
		}

		// m(1 - λ) + λ
		bound := new(big.Rat).Mul(m, new(big.Rat).Sub(one, lambda))
		bound.Add(bound, lambda)
		if sum.Cmp(bound) > 0 {
			return Diagnostics{}, sched.NotSchedulable("task %d: load %s exceeds %s",
				k, sum.FloatString(4), bound.FloatString(4))
		}
	}
	return Diagnostics{}, nil
}

func runBCL05EDF(ts models.TaskSet, p Platform) (Diagnostics, error) {
	one := big.NewRat(1, 1)
	m := processors(p)
	for k, task := range ts {
		room := new(big.Rat).Sub(one, task.Density())
		sum := new(big.Rat)
		inRange := false
		for i, other := range ts {
			if i == k {
				continue
			}
			n := (task.Deadline-other.Deadline).DivFloor(other.Period) + 1
			carry := min(other.WCET, max(0, task.Deadline-other.Period.Mul(n)))
			beta := models.Ratio(models.SatAdd(jobs(n, other.WCET), carry), task.Deadline)
			if beta.Sign() > 0 && beta.Cmp(room) <= 0 {
				inRange = true
			}
			if beta.Cmp(room) > 0 {
				beta = room
			}
			sum.Add(sum, beta)
		}

		bound := new(big.Rat).Mul(m, room)
		c := sum.Cmp(bound)
		if c > 0 || (c == 0 && !inRange) {
			return Diagnostics{}, sched.NotSchedulable("task %d: interference %s reaches %s",
				k, sum.FloatString(4), bound.FloatString(4))
		}
	}
	return Diagnostics{}, nil
}

// laxityTest checks, for every task k, that the interference of the tasks
// selected by interferes, each capped at laxity+1, stays below (or, when
// inclusive, at most) m(laxity+1).
func laxityTest(ts models.TaskSet, p Platform, interferes func(i, k int) bool,
	interference func(i, k int) models.Time, inclusive bool) error {
	for k, task := range ts {
		capped := task.Laxity() + 1
		var sum models.Time
		for i := range ts {
			if interferes(i, k) {
				sum = models.SatAdd(sum, min(interference(i, k), capped))
			}
		}
		bound := capped.Mul(p.Processors)
		if sum > bound || (sum == bound && !inclusive) {
			return sched.NotSchedulable("task %d: interference %d reaches %d", k, int64(sum), int64(bound))
		}
	}
	return nil
}

func others(i, k int) bool         { return i != k }
func higherPriority(i, k int) bool { return i < k }

func runBCL09EDF(ts models.TaskSet, p Platform) (Diagnostics, error) {
	return Diagnostics{}, laxityTest(ts, p, others, func(i, k int) models.Time {
		return bclEDFInterference(ts[i], ts[k])
	}, false)
}

func runBCL09FP(ts models.TaskSet, p Platform) (Diagnostics, error) {
	return Diagnostics{}, laxityTest(ts, p, higherPriority, func(i, k int) models.Time {
		return bclWorkload(ts[k].Deadline, ts[i])
	}, false)
}

func runBCL09WorkConserving(ts models.TaskSet, p Platform) (Diagnostics, error) {
	return Diagnostics{}, laxityTest(ts, p, others, func(i, k int) models.Time {
		return bclWorkload(ts[k].Deadline, ts[i])
	}, true)
}

// runBCL05DM checks d_tot <= (m/2)(1 - d_max) + d_max.
func runBCL05DM(ts models.TaskSet, p Platform) (Diagnostics, error) {
	one := big.NewRat(1, 1)
	dMax := ts.MaxDensity()
	bound := new(big.Rat).Mul(big.NewRat(p.Processors, 2), new(big.Rat).Sub(one, dMax))
	bound.Add(bound, dMax)
	dTot := ts.TotalDensity()
	return Diagnostics{}, sched.Verdict(dTot.Cmp(bound) <= 0,
		"total density %s exceeds %s", dTot.FloatString(4), bound.FloatString(4))
}

// Limited carry-in response time analysis.

func guanCarryIn(x models.Time, task models.Task, r models.Time) models.Time {
	work := max(0, x-task.WCET)
	tail := min(max(work.Mod(task.Period)-(task.Period-r), 0), max(task.WCET-1, 0))
	return models.SatAdd(models.SatAdd(jobs(work.DivFloor(task.Period), task.WCET), task.WCET), tail)
}

func guanRTA(ts models.TaskSet, k int, m int64, responses []models.Time) func(models.Time) models.Time {
	task := ts[k]
	return func(x models.Time) models.Time {
		limit := max(x-task.WCET+1, 0)
		nc := make([]models.Time, k)
		ci := make([]models.Time, k)
		var sum models.Time
		for i := 0; i < k; i++ {
			nc[i] = min(max(nonCarryInWorkload(x, ts[i]), 0), limit)
			ci[i] = min(max(guanCarryIn(x, ts[i], responses[i]), 0), limit)
			sum = models.SatAdd(sum, nc[i])
		}
		sum = models.SatAdd(sum, topDifferences(ci, nc, int(m-1)))
		return models.SatAdd(models.Time(sum.DivFloor(models.Time(m))), task.WCET)
	}
}

func runGuanRTA(ts models.TaskSet, p Platform) (Diagnostics, error) {
	var diag Diagnostics
	for k, task := range ts {
		r, ok := engine.ResponseTime(task, task.Deadline, guanRTA(ts, k, p.Processors, diag.ResponseTimes))
		if !ok {
			return diag, missedDeadline(k, r, task.Deadline)
		}
		diag.ResponseTimes = append(diag.ResponseTimes, r)
	}
	return diag, nil
}

// Baruah 2007, checked on the generic engine over a dedicated platform.

type baruahTest struct {
	processors int64
	filtered   bool
}

func baruahDemandTerms(ts models.TaskSet, k int, a models.Time) (hat, flat []models.Time) {
	task := ts[k]
	t := a + task.Deadline
	hat = make([]models.Time, len(ts))
	flat = make([]models.Time, len(ts))
	for i, other := range ts {
		d1, d2 := dbf(other, t), nonCarryInWorkload(t, other)
		if i == k {
			hat[i], flat[i] = min(d1-task.WCET, a), min(d2-task.WCET, a)
		} else {
			hat[i], flat[i] = min(d1, t-task.WCET), min(d2, t-task.WCET)
		}
	}
	return hat, flat
}

func (b baruahTest) Demand(ts models.TaskSet, k int, _ resource.Model, a models.Time) models.Time {
	hat, flat := baruahDemandTerms(ts, k, a)
	var sum models.Time
	for _, v := range hat {
		sum = models.SatAdd(sum, v)
	}
	sum = models.SatAdd(sum, topDifferences(flat, hat, int(b.processors-1)))
	return models.SatAdd(sum, ts[k].WCET.SatMul(b.processors))
}

func (b baruahTest) CriticalInstants(ts models.TaskSet, k int, _ resource.Model) (engine.Instants, error) {
	m := big.NewRat(b.processors, 1)
	gap, err := engine.CheckBandwidthGap(m, ts.TotalUtilization())
	if err != nil {
		return nil, err
	}

	task := ts[k]
	// (Σ_{m-1} C - D_k(m - U) + Σ (T_i - D_i) U_i + m C_k) / (m - U)
	num := rat(ts.LargestWCETs(int(b.processors - 1)))
	num.Sub(num, new(big.Rat).Mul(rat(task.Deadline), gap))
	for _, other := range ts {
		num.Add(num, new(big.Rat).Mul(rat(other.Period-other.Deadline), other.Utilization()))
	}
	num.Add(num, new(big.Rat).Mul(rat(task.WCET), big.NewRat(b.processors, 1)))
	upper, err := engine.ArrivalBound(num.Quo(num, gap))
	if err != nil {
		return nil, err
	}

	instants := engine.Range(upper)
	if b.filtered {
		instants = instants.Filter(func(a models.Time) bool { return baruahChanges(ts, k, a) })
	}
	return instants, nil
}

// baruahChanges reports whether the demand at arrival a may exceed the
// demand at a-1: a DBF step, a carry-in window or a clamp that still binds.
func baruahChanges(ts models.TaskSet, k int, a models.Time) bool {
	if a == 0 {
		return true
	}
	task := ts[k]
	t := a + task.Deadline
	for i, other := range ts {
		if t >= other.Deadline && (t-other.Deadline).Mod(other.Period) == 0 {
			return true
		}
		if r := t.Mod(other.Period); r >= 1 && r <= other.WCET {
			return true
		}
		w := nonCarryInWorkload(t, other)
		if i == k {
			if a-1 < w-task.WCET {
				return true
			}
		} else if t-task.WCET-1 < w {
			return true
		}
	}
	return false
}

func runBaruah(filtered bool) func(models.TaskSet, Platform) (Diagnostics, error) {
	return func(ts models.TaskSet, p Platform) (Diagnostics, error) {
		test := baruahTest{processors: p.Processors, filtered: filtered}
		return Diagnostics{}, engine.IsSchedulable(ts, resource.Dedicated(p.Processors), test)
	}
}
