// Package sched holds the outcome taxonomy shared by analyzers and
// designers: schedulable, not schedulable, precondition failure and
// everything else.
package sched

import (
	"errors"
	"fmt"
)

// Sentinel errors for analysis outcomes.
var (
	ErrNotSchedulable = errors.New("not schedulable")
	ErrPrecondition   = errors.New("precondition failed")
	ErrInfeasible     = errors.New("no feasible interface")
)

// Standard precondition messages.
var (
	ErrImplicitDeadlines    = fmt.Errorf("%w: taskset must have implicit deadlines", ErrPrecondition)
	ErrConstrainedDeadlines = fmt.Errorf("%w: taskset must have constrained deadlines", ErrPrecondition)
	ErrSortedByPeriod       = fmt.Errorf("%w: taskset must be sorted by period", ErrPrecondition)
	ErrSortedByDeadline     = fmt.Errorf("%w: taskset must be sorted by deadline", ErrPrecondition)
	ErrSingleProcessor      = fmt.Errorf("%w: analysis requires exactly one processor", ErrPrecondition)
	ErrResourceModel        = fmt.Errorf("%w: analysis requires a resource model", ErrPrecondition)
)

// Kind classifies an analysis error.
type Kind int

const (
	KindNone Kind = iota
	KindNotSchedulable
	KindPrecondition
	KindInfeasible
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNotSchedulable:
		return "not schedulable"
	case KindPrecondition:
		return "precondition"
	case KindInfeasible:
		return "infeasible"
	default:
		return "error"
	}
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrNotSchedulable):
		return KindNotSchedulable
	case errors.Is(err, ErrInfeasible):
		return KindInfeasible
	default:
		return KindOther
	}
}

// NotSchedulable returns a not-schedulable error with a formatted reason.
func NotSchedulable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotSchedulable, fmt.Sprintf(format, args...))
}

// Precondition returns a precondition error with a formatted reason.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// Infeasible returns an infeasible-design error with a formatted reason.
func Infeasible(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInfeasible, fmt.Sprintf(format, args...))
}

// Verdict turns a boolean test outcome into an error.
func Verdict(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return NotSchedulable(format, args...)
}
