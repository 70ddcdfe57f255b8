// Package models defines the core domain types shared by every analysis:
// exact nanosecond time and the sporadic task model.
package models

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

var (
	ErrInvalidTask  = errors.New("invalid task")
	ErrTaskTooLarge = errors.New("task parameter exceeds supported range")
)

// MaxTaskParameter bounds every task parameter (about 13 days) so that
// products of two times always fit the 128-bit intermediates.
const MaxTaskParameter Time = 1 << 50

// Task is a sporadic task: every job needs at most WCET of execution, must
// complete within Deadline of its release, and releases are at least Period
// apart.
type Task struct {
	WCET     Time `json:"wcet" yaml:"wcet"`
	Deadline Time `json:"deadline" yaml:"deadline"`
	Period   Time `json:"period" yaml:"period"`
}

// NewTask builds a task from nanosecond values.
func NewTask(wcet, deadline, period int64) Task {
	return Task{WCET: Time(wcet), Deadline: Time(deadline), Period: Time(period)}
}

// Ratio returns num/den as an exact rational.
func Ratio(num, den Time) *big.Rat {
	return big.NewRat(int64(num), int64(den))
}

func (t Task) Utilization() *big.Rat { return Ratio(t.WCET, t.Period) }
func (t Task) Density() *big.Rat     { return Ratio(t.WCET, t.Deadline) }
func (t Task) Laxity() Time          { return t.Deadline - t.WCET }

func (t Task) HasImplicitDeadline() bool    { return t.Deadline == t.Period }
func (t Task) HasConstrainedDeadline() bool { return t.Deadline <= t.Period }

// Validate checks that all parameters are positive and fit the supported range.
func (t Task) Validate() error {
	if t.WCET <= 0 || t.Deadline <= 0 || t.Period <= 0 {
		return fmt.Errorf("%w: %s: parameters must be positive", ErrInvalidTask, t)
	}
	if t.WCET > MaxTaskParameter || t.Deadline > MaxTaskParameter || t.Period > MaxTaskParameter {
		return fmt.Errorf("%w: %s", ErrTaskTooLarge, t)
	}
	return nil
}

func (t Task) String() string {
	return fmt.Sprintf("(%d, %d, %d)", int64(t.WCET), int64(t.Deadline), int64(t.Period))
}

// TaskSet is an ordered sequence of tasks. For fixed-priority analyses the
// order is the priority order, highest first.
type TaskSet []Task

// Validate checks every task.
func (ts TaskSet) Validate() error {
	for i, t := range ts {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

func (ts TaskSet) TotalUtilization() *big.Rat {
	sum := new(big.Rat)
	for _, t := range ts {
		sum.Add(sum, t.Utilization())
	}
	return sum
}

func (ts TaskSet) TotalDensity() *big.Rat {
	sum := new(big.Rat)
	for _, t := range ts {
		sum.Add(sum, t.Density())
	}
	return sum
}

// MaxDensity returns the largest task density, zero for an empty set.
func (ts TaskSet) MaxDensity() *big.Rat {
	best := new(big.Rat)
	for _, t := range ts {
		if d := t.Density(); d.Cmp(best) > 0 {
			best = d
		}
	}
	return best
}

// MaxUtilization returns the largest task utilization, zero for an empty set.
func (ts TaskSet) MaxUtilization() *big.Rat {
	best := new(big.Rat)
	for _, t := range ts {
		if u := t.Utilization(); u.Cmp(best) > 0 {
			best = u
		}
	}
	return best
}

func (ts TaskSet) TotalWCET() Time {
	var sum Time
	for _, t := range ts {
		sum += t.WCET
	}
	return sum
}

// LargestWCETs returns the sum of the n largest WCETs.
func (ts TaskSet) LargestWCETs(n int) Time {
	wcets := make([]Time, len(ts))
	for i, t := range ts {
		wcets[i] = t.WCET
	}
	return SumLargest(wcets, n)
}

// SumLargest sums the n largest values without modifying values.
func SumLargest(values []Time, n int) Time {
	if n <= 0 {
		return 0
	}
	sorted := append([]Time(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if n > len(sorted) {
		n = len(sorted)
	}
	var sum Time
	for _, v := range sorted[:n] {
		sum += v
	}
	return sum
}

// MinLaxity returns the smallest laxity in the set.
func (ts TaskSet) MinLaxity() Time {
	if len(ts) == 0 {
		return 0
	}
	best := ts[0].Laxity()
	for _, t := range ts[1:] {
		best = min(best, t.Laxity())
	}
	return best
}

func (ts TaskSet) MaxDeadline() Time {
	var best Time
	for _, t := range ts {
		best = max(best, t.Deadline)
	}
	return best
}

func (ts TaskSet) ImplicitDeadlines() bool {
	for _, t := range ts {
		if !t.HasImplicitDeadline() {
			return false
		}
	}
	return true
}

func (ts TaskSet) ConstrainedDeadlines() bool {
	for _, t := range ts {
		if !t.HasConstrainedDeadline() {
			return false
		}
	}
	return true
}

// SortedByPeriod reports whether periods are non-decreasing.
func (ts TaskSet) SortedByPeriod() bool {
	for i := 1; i < len(ts); i++ {
		if ts[i-1].Period > ts[i].Period {
			return false
		}
	}
	return true
}

// SortedByDeadline reports whether deadlines are non-decreasing.
func (ts TaskSet) SortedByDeadline() bool {
	for i := 1; i < len(ts); i++ {
		if ts[i-1].Deadline > ts[i].Deadline {
			return false
		}
	}
	return true
}

// Hyperperiod returns the least common multiple of all periods.
func (ts TaskSet) Hyperperiod() (Time, error) {
	h := Time(1)
	for _, t := range ts {
		var err error
		if h, err = LCM(h, t.Period); err != nil {
			return 0, fmt.Errorf("hyperperiod: %w", err)
		}
	}
	return h, nil
}

// Float converts an exact ratio for display.
func Float(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}
