package design

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// ResourceFunc returns the smallest feasible budget for one candidate.
type ResourceFunc func(ctx context.Context, ts models.TaskSet, cand Candidate) (models.Time, error)

// SearchResource completes cand with the budget computed by fn. A budget
// above the candidate capacity is infeasible.
func SearchResource(ctx context.Context, ts models.TaskSet, cand Candidate, fn ResourceFunc) (resource.MultiprocessorResourceModel, error) {
	if err := ctx.Err(); err != nil {
		return resource.MultiprocessorResourceModel{}, err
	}
	budget, err := fn(ctx, ts, cand)
	if err != nil {
		return resource.MultiprocessorResourceModel{}, err
	}
	if budget > cand.Capacity() {
		return resource.MultiprocessorResourceModel{}, sched.Infeasible("%s: budget %d exceeds capacity %d",
			cand, int64(budget), int64(cand.Capacity()))
	}
	return cand.Model(budget), nil
}

// LinearProblem describes a test whose demand is compared against the
// linear supply bound, so the budget can be computed in closed form.
type LinearProblem struct {
	// Demand of task k for an arrival offset a.
	Demand func(ts models.TaskSet, k int, cand Candidate, a models.Time) models.Time
	// Instants to evaluate for task k.
	Instants func(ts models.TaskSet, k int, cand Candidate) (engine.Instants, error)
	// Invert returns the smallest budget supplying required over interval.
	// Nil selects the multiprocessor linear bound.
	Invert func(required, interval models.Time, cand Candidate) (models.Time, error)
}

func invertMPR(required, interval models.Time, cand Candidate) (models.Time, error) {
	return resource.ResourceFromLinearSupply(required, interval, cand.Period, cand.Concurrency)
}

// LinearInversion inverts the demand of every task at every instant
// through the linear supply bound and keeps the largest budget.
func LinearInversion(ctx context.Context, ts models.TaskSet, cand Candidate, prob LinearProblem) (models.Time, error) {
	invert := prob.Invert
	if invert == nil {
		invert = invertMPR
	}
	capacity := cand.Capacity()

	var best models.Time
	for k, task := range ts {
		instants, err := prob.Instants(ts, k, cand)
		if err != nil {
			return 0, err
		}

		var (
			failure error
			n       int
		)
		instants(func(a models.Time) bool {
			n++
			if n%4096 == 0 {
				if failure = ctx.Err(); failure != nil {
					return false
				}
			}
			budget, err := invert(prob.Demand(ts, k, cand, a), a+task.Deadline, cand)
			if err != nil {
				failure = err
				return false
			}
			if budget > capacity {
				failure = sched.Infeasible("%s: task %d at arrival %d needs budget %d above capacity %d",
					cand, k, int64(a), int64(budget), int64(capacity))
				return false
			}
			best = max(best, budget)
			return true
		})
		if failure != nil {
			return 0, failure
		}
	}
	return best, nil
}

// SteppedSearch tries budgets lower, lower+step, ... below upper, then
// upper itself, and returns the first one check accepts. When none passes
// the candidate is infeasible in that range. A failing check counts as a
// rejection; only context errors abort.
func SteppedSearch(ctx context.Context, cand Candidate, lower, upper, step models.Time,
	check func(resource.MultiprocessorResourceModel) error) (models.Time, error) {
	if step <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStep, int64(step))
	}
	for r := max(lower, 0); r < upper; r = models.SatAdd(r, step) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if check(cand.Model(r)) == nil {
			return r, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := check(cand.Model(upper)); err != nil {
		return 0, sched.Infeasible("%s: no budget in [%d, %d] passes: %v", cand, int64(lower), int64(upper), err)
	}
	return upper, nil
}

// RaiseBudget returns the first budget from, from+1, from+3, from+7, ...
// that check accepts, ending with the candidate capacity. Budgets above
// the capacity are returned unchecked for SearchResource to reject.
func RaiseBudget(ctx context.Context, cand Candidate, from models.Time,
	check func(resource.MultiprocessorResourceModel) error) (models.Time, error) {
	capacity := cand.Capacity()
	if from > capacity {
		return from, nil
	}
	r, delta := max(from, 0), models.Time(1)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := check(cand.Model(r))
		if err == nil {
			return r, nil
		}
		if r == capacity {
			return 0, sched.Infeasible("%s: no budget in [%d, %d] passes: %v", cand, int64(from), int64(capacity), err)
		}
		r = min(models.SatAdd(r, delta), capacity)
		delta = delta.SatMul(2)
	}
}

// aborts reports whether err stops the whole search instead of ruling out
// a single candidate.
func aborts(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		sched.KindOf(err) == sched.KindPrecondition
}
