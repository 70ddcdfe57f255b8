package engine

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/sched"
)

// MaxInstants caps the arrival-time upper bound of any enumeration.
const MaxInstants models.Time = 1 << 36

var (
	ErrDivergentBound = errors.New("arrival times upperbound tends to infinity")
	ErrIntractable    = errors.New("critical instant enumeration is intractable")
)

// gapThreshold is the smallest bandwidth gap for which arrival bounds are
// enumerated.
var gapThreshold = big.NewRat(1, 100)

// MinBandwidthGap returns the smallest supply − demand bandwidth gap that
// CheckBandwidthGap accepts.
func MinBandwidthGap() *big.Rat { return new(big.Rat).Set(gapThreshold) }

// Instants is a finite, restartable sequence of candidate arrival offsets.
// Calling it again replays the same offsets.
type Instants func(yield func(models.Time) bool)

// Range yields every integer offset in [0, upper]. It is empty for a
// negative upper bound.
func Range(upper models.Time) Instants {
	return func(yield func(models.Time) bool) {
		for a := models.Time(0); a <= upper; a++ {
			if !yield(a) {
				return
			}
		}
	}
}

// Points yields the given offsets in order.
func Points(points ...models.Time) Instants {
	return func(yield func(models.Time) bool) {
		for _, a := range points {
			if !yield(a) {
				return
			}
		}
	}
}

// Once yields a single offset.
func Once(a models.Time) Instants { return Points(a) }

// None yields nothing.
func None() Instants { return Points() }

// Filter keeps only the offsets accepted by keep.
func (s Instants) Filter(keep func(models.Time) bool) Instants {
	return func(yield func(models.Time) bool) {
		s(func(a models.Time) bool {
			if !keep(a) {
				return true
			}
			return yield(a)
		})
	}
}

// Count drains the sequence and returns its length.
func (s Instants) Count() int {
	n := 0
	s(func(models.Time) bool {
		n++
		return true
	})
	return n
}

// CheckBandwidthGap returns supply − demand when it is safe to divide by it.
// A gap smaller than 1/100 in absolute value makes arrival bounds diverge and
// is reported as ErrDivergentBound. A negative gap proves the task set cannot
// be served in the long run.
func CheckBandwidthGap(supply, demand *big.Rat) (*big.Rat, error) {
	gap := new(big.Rat).Sub(supply, demand)
	if new(big.Rat).Abs(gap).Cmp(gapThreshold) < 0 {
		return nil, ErrDivergentBound
	}
	if gap.Sign() < 0 {
		return nil, fmt.Errorf("%w: utilization %s exceeds available bandwidth %s",
			sched.ErrNotSchedulable, demand.FloatString(4), supply.FloatString(4))
	}
	return gap, nil
}

// ArrivalBound converts a rational bound to the last offset to check,
// floored. Negative bounds yield -1 (nothing to check).
func ArrivalBound(bound *big.Rat) (models.Time, error) {
	if bound.Sign() < 0 {
		return -1, nil
	}
	q := new(big.Int).Quo(bound.Num(), bound.Denom())
	if !q.IsInt64() || models.Time(q.Int64()) > MaxInstants {
		return 0, fmt.Errorf("%w: bound %s", ErrIntractable, bound.FloatString(0))
	}
	return models.Time(q.Int64()), nil
}
