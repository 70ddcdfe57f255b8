package analyzers

import (
	"math/big"

	"github.com/fentz26/rtcheck/internal/models"
)

// Workload helpers shared by the catalog. All of them saturate at
// models.MaxTime instead of overflowing, so oversized inputs fail the
// comparison they feed instead of wrapping around.

// jobs returns n·c, zero for a non-positive count.
func jobs(n int64, c models.Time) models.Time {
	if n <= 0 {
		return 0
	}
	return c.SatMul(n)
}

// dbf is the demand bound function: the work of jobs released and due
// within an interval of length t.
func dbf(task models.Task, t models.Time) models.Time {
	if t < task.Deadline {
		return 0
	}
	return jobs((t-task.Deadline).DivFloor(task.Period)+1, task.WCET)
}

// nonCarryInWorkload is the largest work a task can execute in a window
// of length x that starts with a job release.
func nonCarryInWorkload(x models.Time, task models.Task) models.Time {
	return models.SatAdd(jobs(x.DivFloor(task.Period), task.WCET), min(task.WCET, x.Mod(task.Period)))
}

// fpInterference is the preemption a job suffers from hp within a window
// of length x when every higher-priority task releases synchronously.
func fpInterference(hp models.TaskSet, x models.Time) models.Time {
	var sum models.Time
	for _, task := range hp {
		sum = models.SatAdd(sum, jobs(x.DivCeil(task.Period), task.WCET))
	}
	return sum
}

// bclWorkload bounds the work of task within a window of length t under a
// work-conserving global scheduler, assuming every job of the task
// completes no later than its deadline.
func bclWorkload(t models.Time, task models.Task) models.Time {
	span := t + task.Laxity()
	n := span.DivFloor(task.Period)
	return models.SatAdd(jobs(n, task.WCET), min(task.WCET, span-task.Period.Mul(n)))
}

// bclEDFInterference bounds the interference task i can cause on a job of
// task k under global EDF.
func bclEDFInterference(i, k models.Task) models.Time {
	n := k.Deadline.DivFloor(i.Period)
	return models.SatAdd(jobs(n, i.WCET), min(i.WCET, k.Deadline-i.Period.Mul(n)))
}

// clampedSum sums min(value, limit) over the tasks selected by keep.
func clampedSum(ts models.TaskSet, keep func(i int) bool, value func(task models.Task) models.Time, limit models.Time) models.Time {
	var sum models.Time
	for i, task := range ts {
		if keep(i) {
			sum = models.SatAdd(sum, min(value(task), limit))
		}
	}
	return sum
}

// topDifferences returns the sum of the n largest flat[i] − hat[i].
func topDifferences(flat, hat []models.Time, n int) models.Time {
	diffs := make([]models.Time, len(flat))
	for i := range flat {
		diffs[i] = flat[i] - hat[i]
	}
	return models.SumLargest(diffs, n)
}

func rat(t models.Time) *big.Rat { return new(big.Rat).SetInt64(int64(t)) }
