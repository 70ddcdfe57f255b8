// Package engine is the policy-agnostic core shared by the published tests:
// a demand-versus-supply checker over critical instants and a monotone
// fixpoint solver for response-time analysis.
package engine

import (
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// Test plugs a published analysis into the checker.
type Test interface {
	// Demand is the worst-case demand of task k and its interference over
	// the window ending at arrival + D_k.
	Demand(ts models.TaskSet, k int, model resource.Model, arrival models.Time) models.Time
	// CriticalInstants returns the arrival offsets to check for task k.
	CriticalInstants(ts models.TaskSet, k int, model resource.Model) (Instants, error)
}

// IsSchedulable checks demand(a) <= sbf(a + D_k) for every task k, in index
// order, and every critical instant a. It stops at the first violation.
func IsSchedulable(ts models.TaskSet, model resource.Model, test Test) error {
	for k, task := range ts {
		instants, err := test.CriticalInstants(ts, k, model)
		if err != nil {
			return err
		}

		var violation error
		instants(func(a models.Time) bool {
			demand := test.Demand(ts, k, model, a)
			supply := model.SupplyBound(a + task.Deadline)
			if demand > supply {
				violation = sched.NotSchedulable("task %d at arrival %d: demand %d exceeds supply %d",
					k, int64(a), int64(demand), int64(supply))
				return false
			}
			return true
		})
		if violation != nil {
			return violation
		}
	}
	return nil
}
