// Package resource implements periodic resource interfaces: how much
// execution a periodic server guarantees over any interval, and the inverse
// problem of sizing a server for a required supply.
package resource

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fentz26/rtcheck/internal/models"
)

var (
	ErrNegativeSupply = errors.New("required supply must be non-negative")
	ErrInvalidModel   = errors.New("invalid resource model")
	ErrResourceRange  = errors.New("resource does not fit in int64 nanoseconds")
)

// MaxConcurrency bounds the processors of a model. With periods bounded by
// models.MaxTaskParameter every capacity m·Π fits in int64.
const MaxConcurrency int64 = 1 << 12

// Model is a resource interface as seen by the analyses.
type Model interface {
	// SupplyBound is the exact minimum supply over any interval of length t.
	SupplyBound(t models.Time) models.Time
	// LinearSupplyBound is a linear lower bound of SupplyBound. It is
	// negative for intervals shorter than twice the blackout.
	LinearSupplyBound(t models.Time) models.Time
	// Bandwidth is resource/period.
	Bandwidth() *big.Rat
	// MPR returns the equivalent multiprocessor model.
	MPR() MultiprocessorResourceModel
	Validate() error
	String() string
}

// Slack added to the interval of the multiprocessor linear bound to cover
// the discrete-time rounding of the exact supply.
const mprLinearSlack models.Time = -2

// linearSupply returns floor(Θ·(m·(t − 2Π + ε) + 2Θ) / (m·Π)).
func linearSupply(resource, period models.Time, concurrency int64, t, slack models.Time) models.Time {
	th := big.NewInt(int64(resource))
	b := big.NewInt(int64(t - 2*period + slack))
	b.Mul(b, big.NewInt(concurrency))
	num := new(big.Int).Lsh(th, 1)
	num.Add(num, b)
	num.Mul(num, th)
	den := big.NewInt(concurrency)
	den.Mul(den, big.NewInt(int64(period)))
	// big.Int.Div is Euclidean, i.e. floor for a positive divisor
	q := num.Div(num, den)
	if !q.IsInt64() {
		panic(models.ErrTimeOverflow)
	}
	return models.Time(q.Int64())
}

// invertLinear finds the smallest resource Θ ≥ 0 such that
// floor(N(Θ)/(m·Π)) ≥ required, where N(Θ) = 2Θ² + BΘ and
// B = m·(t − 2Π + ε). For a positive requirement the answer lies right of
// the larger root of N, so the search starts from the vertex.
func invertLinear(required, t, period models.Time, concurrency int64, slack models.Time) (models.Time, error) {
	if required < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegativeSupply, required)
	}
	if period <= 0 || concurrency <= 0 {
		return 0, fmt.Errorf("%w: period %s, concurrency %d", ErrInvalidModel, period, concurrency)
	}
	if required == 0 {
		return 0, nil
	}

	m := big.NewInt(concurrency)
	b := big.NewInt(int64(t - 2*period + slack))
	b.Mul(b, m)
	target := big.NewInt(int64(required))
	target.Mul(target, m)
	target.Mul(target, big.NewInt(int64(period)))

	n := func(th *big.Int) *big.Int {
		v := new(big.Int).Lsh(th, 1)
		v.Add(v, b)
		return v.Mul(v, th)
	}

	// vertex at -B/4, never below zero
	lo := ceilDiv(new(big.Int).Neg(b), 4)
	if lo.Sign() < 0 {
		lo.SetInt64(0)
	}

	disc := new(big.Int).Mul(b, b)
	disc.Add(disc, new(big.Int).Lsh(target, 3))
	root := new(big.Int).Sqrt(disc)
	th := ceilDiv(root.Sub(root, b), 4)
	if th.Cmp(lo) < 0 {
		th.Set(lo)
	}

	one := big.NewInt(1)
	for n(th).Cmp(target) < 0 {
		th.Add(th, one)
	}
	for th.Cmp(lo) > 0 {
		prev := new(big.Int).Sub(th, one)
		if n(prev).Cmp(target) < 0 {
			break
		}
		th = prev
	}

	if !th.IsInt64() {
		return 0, ErrResourceRange
	}
	return models.Time(th.Int64()), nil
}

// ceilDiv returns ceil(a/d) for d > 0.
func ceilDiv(a *big.Int, d int64) *big.Int {
	q := new(big.Int).Neg(a)
	q.Div(q, big.NewInt(d))
	return q.Neg(q)
}
