package resource

import (
	"fmt"
	"math/big"

	"github.com/fentz26/rtcheck/internal/models"
)

// MultiprocessorResourceModel delivers Resource units of execution every
// Period using at most Concurrency processors at any time.
type MultiprocessorResourceModel struct {
	Resource    models.Time `json:"resource" yaml:"resource"`
	Period      models.Time `json:"period" yaml:"period"`
	Concurrency int64       `json:"concurrency" yaml:"concurrency"`
}

// NewMPR builds a multiprocessor resource model from nanosecond values.
func NewMPR(resource, period, concurrency int64) MultiprocessorResourceModel {
	return MultiprocessorResourceModel{
		Resource:    models.Time(resource),
		Period:      models.Time(period),
		Concurrency: concurrency,
	}
}

// Dedicated models m fully available processors; its supply over t is m·t.
func Dedicated(m int64) MultiprocessorResourceModel {
	return MultiprocessorResourceModel{Resource: models.Time(m), Period: 1, Concurrency: m}
}

func (m MultiprocessorResourceModel) Validate() error {
	if m.Period <= 0 || m.Concurrency <= 0 {
		return fmt.Errorf("%w: %s: period and concurrency must be positive", ErrInvalidModel, m)
	}
	if m.Period > models.MaxTaskParameter || m.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: %s: period above %s or concurrency above %d",
			ErrInvalidModel, m, models.MaxTaskParameter, MaxConcurrency)
	}
	if m.Resource < 0 || m.Resource > m.Period.SatMul(m.Concurrency) {
		return fmt.Errorf("%w: %s: need 0 <= resource <= concurrency*period", ErrInvalidModel, m)
	}
	return nil
}

func (m MultiprocessorResourceModel) Feasible() bool { return m.Validate() == nil }

func (m MultiprocessorResourceModel) Bandwidth() *big.Rat { return models.Ratio(m.Resource, m.Period) }

func (m MultiprocessorResourceModel) MPR() MultiprocessorResourceModel { return m }

func (m MultiprocessorResourceModel) String() string {
	return fmt.Sprintf("MPR(resource=%d, period=%d, concurrency=%d)",
		int64(m.Resource), int64(m.Period), m.Concurrency)
}

// SupplyBound is the exact worst-case supply over any interval of length t.
//
// With α = ⌊Θ/m⌋ and β = Θ − mα, a window that starts right after a
// front-loaded period and runs into back-loaded ones supplies
// g(t) = ⌊t'/Π⌋Θ + max(0, m·x − m·Π + Θ), where t' = t − (Π − ⌈Θ/m⌉) and
// x = t' mod Π. When β > 0 the window may instead start on the partial slot,
// which yields β + g(t−1).
func (m MultiprocessorResourceModel) SupplyBound(t models.Time) models.Time {
	if m.Resource <= 0 || t <= 0 {
		return 0
	}
	conc := models.Time(m.Concurrency)
	beta := m.Resource.Mod(conc)
	g := m.backLoadedSupply(t)
	if beta == 0 {
		return g
	}
	return min(g, beta+m.backLoadedSupply(t-1))
}

func (m MultiprocessorResourceModel) backLoadedSupply(t models.Time) models.Time {
	conc := models.Time(m.Concurrency)
	blackout := m.Period - models.Time(m.Resource.DivCeil(conc))
	shifted := t - blackout
	if shifted < 0 {
		return 0
	}
	full := shifted.DivFloor(m.Period)
	x := shifted.Mod(m.Period)
	return m.Resource.Mul(full) + max(0, conc*x-conc*m.Period+m.Resource)
}

// LinearSupplyBound is (Θ/Π)·(t − 2(Π − Θ/m) − 2), floored.
func (m MultiprocessorResourceModel) LinearSupplyBound(t models.Time) models.Time {
	return linearSupply(m.Resource, m.Period, m.Concurrency, t, mprLinearSlack)
}

// ResourceFromLinearSupply is the inverse of the multiprocessor linear
// bound: the smallest resource whose linear supply over interval reaches
// required. Negative requirements are rejected.
func ResourceFromLinearSupply(required, interval, period models.Time, concurrency int64) (models.Time, error) {
	return invertLinear(required, interval, period, concurrency, mprLinearSlack)
}

// ToPeriodicTasks splits the budget into Concurrency implicit-deadline tasks
// of period Π. Each gets ⌊Θ/m⌋ and the first Θ mod m get one more
// nanosecond. Empty slots are omitted.
func (m MultiprocessorResourceModel) ToPeriodicTasks() models.TaskSet {
	conc := models.Time(m.Concurrency)
	share := models.Time(m.Resource.DivFloor(conc))
	extra := int64(m.Resource.Mod(conc))

	tasks := make(models.TaskSet, 0, m.Concurrency)
	for i := int64(0); i < m.Concurrency; i++ {
		wcet := share
		if i < extra {
			wcet++
		}
		if wcet == 0 {
			continue
		}
		tasks = append(tasks, models.Task{WCET: wcet, Deadline: m.Period, Period: m.Period})
	}
	return tasks
}
