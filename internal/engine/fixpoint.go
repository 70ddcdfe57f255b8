package engine

import "github.com/fentz26/rtcheck/internal/models"

// Fixpoint iterates x = f(x) starting from init. It returns (x, true) once
// f(x) == x, or (f(x), false) as soon as f(x) exceeds limit. f must be
// non-decreasing; the solver does not check it.
func Fixpoint(init, limit models.Time, f func(models.Time) models.Time) (models.Time, bool) {
	x := init
	for {
		next := f(x)
		if next > limit {
			return next, false
		}
		if next == x {
			return x, true
		}
		x = next
	}
}

// ResponseTime solves the response-time recurrence of task starting from
// its WCET.
func ResponseTime(task models.Task, limit models.Time, f func(models.Time) models.Time) (models.Time, bool) {
	return Fixpoint(task.WCET, limit, f)
}
