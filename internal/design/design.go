// Package design synthesizes the cheapest multiprocessor resource interface
// that keeps a task set schedulable. The search runs over three nested
// dimensions: the budget for a fixed period and concurrency, the
// concurrency for a fixed period, and finally the period.
package design

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

var (
	ErrInvalidBounds   = errors.New("invalid search bounds")
	ErrInvalidStep     = errors.New("resource step must be positive")
	ErrTooManyPeriods  = errors.New("period range has too many values")
	ErrUnknownStrategy = errors.New("unknown search strategy")
)

// MaxPeriods caps the number of periods a single search explores.
const MaxPeriods = 1 << 16

// Strategy selects how the concurrency dimension is explored.
type Strategy int

const (
	// Naive tries every concurrency and keeps the smallest budget.
	Naive Strategy = iota
	// MonotoneLinear returns the first concurrency that admits a budget.
	MonotoneLinear
	// MonotoneBinary bisects for the smallest concurrency that admits a
	// budget. It assumes feasibility is monotone in the concurrency.
	MonotoneBinary
)

var strategyNames = map[Strategy]string{
	Naive:          "naive",
	MonotoneLinear: "linear",
	MonotoneBinary: "binary",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy accepts naive, linear or binary.
func ParseStrategy(s string) (Strategy, error) {
	for strategy, name := range strategyNames {
		if strings.EqualFold(s, name) {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Candidate is a point of the (period, concurrency) grid.
type Candidate struct {
	Period      models.Time
	Concurrency int64
}

// Capacity is the largest budget the candidate can hold, m·Π.
func (c Candidate) Capacity() models.Time { return c.Period.SatMul(c.Concurrency) }

// Model completes the candidate with a budget.
func (c Candidate) Model(budget models.Time) resource.MultiprocessorResourceModel {
	return resource.MultiprocessorResourceModel{Resource: budget, Period: c.Period, Concurrency: c.Concurrency}
}

func (c Candidate) String() string {
	return fmt.Sprintf("period=%d concurrency=%d", int64(c.Period), c.Concurrency)
}

// PeriodRange is an inclusive arithmetic progression of periods.
type PeriodRange struct {
	Min  models.Time `yaml:"min" json:"min"`
	Max  models.Time `yaml:"max" json:"max"`
	Step models.Time `yaml:"step" json:"step"`
}

// Values expands the range in increasing order.
func (r PeriodRange) Values() ([]models.Time, error) {
	if r.Min <= 0 || r.Max < r.Min || r.Max > models.MaxTaskParameter {
		return nil, fmt.Errorf("%w: period range [%d, %d]", ErrInvalidBounds, int64(r.Min), int64(r.Max))
	}
	step := r.Step
	if step <= 0 {
		step = 1
	}
	if (r.Max-r.Min)/step >= MaxPeriods {
		return nil, fmt.Errorf("%w: [%d, %d] by %d", ErrTooManyPeriods, int64(r.Min), int64(r.Max), int64(step))
	}
	var values []models.Time
	for p := r.Min; p <= r.Max; p += step {
		values = append(values, p)
		if p > models.MaxTime-step {
			break
		}
	}
	return values, nil
}

// ConcurrencyRange is an inclusive range of processor counts. A zero bound
// is derived from the task set.
type ConcurrencyRange struct {
	Min int64 `yaml:"min" json:"min"`
	Max int64 `yaml:"max" json:"max"`
}

// Bounds is the design space handed to a designer.
type Bounds struct {
	Periods     PeriodRange      `yaml:"periods" json:"periods"`
	Concurrency ConcurrencyRange `yaml:"concurrency" json:"concurrency"`
}

// ConcurrencyBounds fills the unset ends of r. The lower end is the
// smallest processor count whose capacity covers the utilization. The
// upper end gives every task a processor on top of the count that lets
// the tightest task finish within its laxity.
func ConcurrencyBounds(ts models.TaskSet, r ConcurrencyRange) (ConcurrencyRange, error) {
	out := r
	if out.Min <= 0 {
		out.Min = max(1, ceilRat(ts.TotalUtilization()))
	}
	if out.Max <= 0 {
		switch {
		case len(ts) == 0:
			out.Max = out.Min
		case ts.MinLaxity() <= 0:
			return r, sched.Precondition("a task without laxity needs an explicit concurrency upper bound")
		default:
			out.Max = min(ts.TotalWCET().DivCeil(ts.MinLaxity())+int64(len(ts)), resource.MaxConcurrency)
		}
	}
	if out.Max > resource.MaxConcurrency {
		return r, fmt.Errorf("%w: concurrency above %d", ErrInvalidBounds, resource.MaxConcurrency)
	}
	if out.Max < out.Min {
		return r, fmt.Errorf("%w: concurrency range [%d, %d]", ErrInvalidBounds, out.Min, out.Max)
	}
	return out, nil
}

// UtilizationBudget is ⌈U·Π⌉, the smallest budget whose bandwidth covers
// the utilization of ts.
func UtilizationBudget(ts models.TaskSet, period models.Time) models.Time {
	return models.Time(ceilRat(new(big.Rat).Mul(ts.TotalUtilization(), new(big.Rat).SetInt64(int64(period)))))
}

// GapBudget is the smallest budget whose bandwidth exceeds the utilization
// of ts by at least engine.MinBandwidthGap, so arrival bounds stay finite.
func GapBudget(ts models.TaskSet, period models.Time) models.Time {
	share := new(big.Rat).Add(ts.TotalUtilization(), engine.MinBandwidthGap())
	return models.Time(ceilRat(share.Mul(share, new(big.Rat).SetInt64(int64(period)))))
}

func ceilRat(r *big.Rat) int64 {
	q, m := new(big.Int).DivMod(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return int64(models.MaxTime)
	}
	return q.Int64()
}
