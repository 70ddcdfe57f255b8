package resource

import (
	"fmt"
	"math/big"

	"github.com/fentz26/rtcheck/internal/models"
)

// PeriodicResourceModel delivers Resource units of execution on one
// processor every Period.
type PeriodicResourceModel struct {
	Resource models.Time `json:"resource" yaml:"resource"`
	Period   models.Time `json:"period" yaml:"period"`
}

// NewPR builds a periodic resource model from nanosecond values.
func NewPR(resource, period int64) PeriodicResourceModel {
	return PeriodicResourceModel{Resource: models.Time(resource), Period: models.Time(period)}
}

func (m PeriodicResourceModel) Validate() error {
	if m.Period <= 0 || m.Resource < 0 || m.Resource > m.Period {
		return fmt.Errorf("%w: %s: need 0 <= resource <= period", ErrInvalidModel, m)
	}
	if m.Period > models.MaxTaskParameter {
		return fmt.Errorf("%w: %s: period above %s", ErrInvalidModel, m, models.MaxTaskParameter)
	}
	return nil
}

func (m PeriodicResourceModel) Feasible() bool { return m.Validate() == nil }

func (m PeriodicResourceModel) Bandwidth() *big.Rat { return models.Ratio(m.Resource, m.Period) }

func (m PeriodicResourceModel) MPR() MultiprocessorResourceModel {
	return MultiprocessorResourceModel{Resource: m.Resource, Period: m.Period, Concurrency: 1}
}

func (m PeriodicResourceModel) String() string {
	return fmt.Sprintf("PR(resource=%d, period=%d)", int64(m.Resource), int64(m.Period))
}

// SupplyBound is the Shin-Lee supply bound:
// sbf(t) = k·Θ + max(0, t − 2(Π−Θ) − k·Π) with k = floor((t − (Π−Θ))/Π).
func (m PeriodicResourceModel) SupplyBound(t models.Time) models.Time {
	if m.Resource <= 0 {
		return 0
	}
	blackout := m.Period - m.Resource
	if t < blackout {
		return 0
	}
	k := (t - blackout).DivFloor(m.Period)
	return m.Resource.Mul(k) + max(0, t-2*blackout-m.Period.Mul(k))
}

// LinearSupplyBound is (Θ/Π)·(t − 2(Π−Θ)), floored.
func (m PeriodicResourceModel) LinearSupplyBound(t models.Time) models.Time {
	return linearSupply(m.Resource, m.Period, 1, t, 0)
}

// IntervalFromSupply returns the shortest interval over which the model is
// guaranteed to supply s. It returns MaxTime for an empty budget.
func (m PeriodicResourceModel) IntervalFromSupply(s models.Time) models.Time {
	if s <= 0 {
		return 0
	}
	if m.Resource <= 0 {
		return models.MaxTime
	}
	blackout := m.Period - m.Resource
	k := s.DivFloor(m.Resource)
	r := s - m.Resource.Mul(k)
	interval := blackout + m.Period.Mul(k)
	if r > 0 {
		interval += blackout + r
	}
	return interval
}

// PRResourceFromLinearSupply is the inverse of the periodic linear bound:
// the smallest resource whose linear supply over interval reaches required.
func PRResourceFromLinearSupply(required, interval, period models.Time) (models.Time, error) {
	return invertLinear(required, interval, period, 1, 0)
}
