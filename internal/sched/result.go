package sched

import "fmt"

// Result is the outcome of a schedulability analysis. A nil Err means the
// task set was proven schedulable and Value carries the diagnostics.
type Result[T any] struct {
	Analyzer string
	Value    T
	Err      error
}

// NewResult classifies err for analyzer.
func NewResult[T any](analyzer string, value T, err error) Result[T] {
	return Result[T]{Analyzer: analyzer, Value: value, Err: err}
}

func (r Result[T]) Kind() Kind                { return KindOf(r.Err) }
func (r Result[T]) IsSchedulable() bool       { return r.Err == nil }
func (r Result[T]) IsNotSchedulable() bool    { return r.Kind() == KindNotSchedulable }
func (r Result[T]) IsPreconditionError() bool { return r.Kind() == KindPrecondition }
func (r Result[T]) IsOtherError() bool        { return r.Kind() == KindOther }

func (r Result[T]) String() string {
	if r.Err == nil {
		return fmt.Sprintf("%s: schedulable", r.Analyzer)
	}
	return fmt.Sprintf("%s: %v", r.Analyzer, r.Err)
}

// DesignResult is the outcome of an interface synthesis. A nil Err means
// Value holds the interface found.
type DesignResult[T any] struct {
	Designer string
	Value    T
	Err      error
}

func NewDesignResult[T any](designer string, value T, err error) DesignResult[T] {
	return DesignResult[T]{Designer: designer, Value: value, Err: err}
}

func (r DesignResult[T]) Kind() Kind                { return KindOf(r.Err) }
func (r DesignResult[T]) IsFound() bool             { return r.Err == nil }
func (r DesignResult[T]) IsInfeasible() bool        { return r.Kind() == KindInfeasible }
func (r DesignResult[T]) IsPreconditionError() bool { return r.Kind() == KindPrecondition }
func (r DesignResult[T]) IsOtherError() bool        { return r.Kind() == KindOther }

// ExitCode maps an outcome to the process exit code: 0 success, 1 proven
// negative (not schedulable or no interface), 2 for everything else.
func ExitCode(err error) int {
	switch KindOf(err) {
	case KindNone:
		return 0
	case KindNotSchedulable, KindInfeasible:
		return 1
	default:
		return 2
	}
}
