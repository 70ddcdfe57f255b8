package engine

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// processorDemand checks the uniprocessor demand criterion through the
// generic checker: the demand of a window is the sum of all task DBFs.
type processorDemand struct {
	bound models.Time
	err   error
	calls int
}

func dbf(task models.Task, t models.Time) models.Time {
	if t < task.Deadline {
		return 0
	}
	return task.WCET.Mul((t-task.Deadline).DivFloor(task.Period) + 1)
}

func (p *processorDemand) Demand(ts models.TaskSet, k int, _ resource.Model, a models.Time) models.Time {
	p.calls++
	var sum models.Time
	for _, task := range ts {
		sum += dbf(task, a+ts[k].Deadline)
	}
	return sum
}

func (p *processorDemand) CriticalInstants(models.TaskSet, int, resource.Model) (Instants, error) {
	if p.err != nil {
		return nil, p.err
	}
	return Range(p.bound), nil
}

func TestIsSchedulable(t *testing.T) {
	tests := []struct {
		name    string
		ts      models.TaskSet
		wantErr string
	}{
		{"empty", nil, ""},
		{"light load", models.TaskSet{models.NewTask(1, 4, 4), models.NewTask(2, 6, 6)}, ""},
		{"overload", models.TaskSet{models.NewTask(3, 4, 4), models.NewTask(3, 5, 5)}, "task 0 at arrival 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IsSchedulable(tt.ts, resource.Dedicated(1), &processorDemand{bound: 24})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected schedulable, got %v", err)
				}
				return
			}
			if !errors.Is(err, sched.ErrNotSchedulable) {
				t.Fatalf("expected not schedulable, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsSchedulableStopsAtFirstViolation(t *testing.T) {
	test := &processorDemand{bound: 100}
	ts := models.TaskSet{models.NewTask(3, 4, 4), models.NewTask(3, 5, 5)}
	if err := IsSchedulable(ts, resource.Dedicated(1), test); err == nil {
		t.Fatal("expected violation")
	}
	if test.calls != 2 {
		t.Errorf("demand evaluated %d times, want 2", test.calls)
	}
}

func TestIsSchedulablePropagatesGeneratorError(t *testing.T) {
	ts := models.TaskSet{models.NewTask(1, 4, 4)}
	err := IsSchedulable(ts, resource.Dedicated(1), &processorDemand{err: ErrDivergentBound})
	if !errors.Is(err, ErrDivergentBound) {
		t.Fatalf("expected ErrDivergentBound, got %v", err)
	}
	if sched.KindOf(err) != sched.KindOther {
		t.Errorf("divergent bound classified as %s", sched.KindOf(err))
	}
}

func TestInstants(t *testing.T) {
	if got := Range(4).Count(); got != 5 {
		t.Errorf("Range(4) has %d instants, want 5", got)
	}
	if got := Range(-1).Count(); got != 0 {
		t.Errorf("Range(-1) has %d instants, want 0", got)
	}

	even := Range(10).Filter(func(a models.Time) bool { return a%2 == 0 })
	var got []models.Time
	even(func(a models.Time) bool {
		got = append(got, a)
		return len(got) < 3
	})
	if len(got) != 3 || got[0] != 0 || got[2] != 4 {
		t.Errorf("filtered prefix = %v", got)
	}
	// restartable
	if even.Count() != 6 || even.Count() != 6 {
		t.Error("filtered sequence is not restartable")
	}
	if Once(7).Count() != 1 || None().Count() != 0 {
		t.Error("unexpected Once/None lengths")
	}
}

func TestCheckBandwidthGap(t *testing.T) {
	tests := []struct {
		name           string
		supply, demand *big.Rat
		kind           sched.Kind
	}{
		{"comfortable", big.NewRat(3, 2), big.NewRat(1, 1), sched.KindNone},
		{"divergent", big.NewRat(1, 1), big.NewRat(199, 200), sched.KindOther},
		{"equal", big.NewRat(1, 2), big.NewRat(1, 2), sched.KindOther},
		{"overloaded", big.NewRat(1, 2), big.NewRat(3, 4), sched.KindNotSchedulable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gap, err := CheckBandwidthGap(tt.supply, tt.demand)
			if got := sched.KindOf(err); got != tt.kind {
				t.Fatalf("kind = %s, want %s (%v)", got, tt.kind, err)
			}
			if err == nil && gap.Cmp(new(big.Rat).Sub(tt.supply, tt.demand)) != 0 {
				t.Errorf("gap = %s", gap)
			}
		})
	}
}

func TestArrivalBound(t *testing.T) {
	if got, _ := ArrivalBound(big.NewRat(959, 10)); got != 95 {
		t.Errorf("ArrivalBound(95.9) = %d", got)
	}
	if got, _ := ArrivalBound(big.NewRat(-7, 2)); got != -1 {
		t.Errorf("ArrivalBound(-3.5) = %d", got)
	}
	huge := new(big.Rat).SetInt64(int64(MaxInstants) + 1)
	if _, err := ArrivalBound(huge); !errors.Is(err, ErrIntractable) {
		t.Errorf("expected ErrIntractable, got %v", err)
	}
}

func TestFixpoint(t *testing.T) {
	hp := models.TaskSet{models.NewTask(40, 100, 100), models.NewTask(60, 140, 140)}
	task := models.NewTask(80, 500, 500)
	f := func(x models.Time) models.Time {
		r := task.WCET
		for _, h := range hp {
			r += h.WCET.Mul(x.DivCeil(h.Period))
		}
		return r
	}

	r, ok := ResponseTime(task, models.MaxTime, f)
	if !ok || r != 560 {
		t.Fatalf("ResponseTime = %d (%v), want 560", r, ok)
	}

	r, ok = ResponseTime(task, task.Deadline, f)
	if ok {
		t.Fatalf("expected limit exceeded, got %d", r)
	}
	if r <= task.Deadline {
		t.Errorf("reported value %d is not above the limit", r)
	}

	// init already a fixpoint
	if r, ok := Fixpoint(5, 10, func(x models.Time) models.Time { return 5 }); !ok || r != 5 {
		t.Errorf("Fixpoint = %d (%v)", r, ok)
	}
	// init above limit
	if _, ok := Fixpoint(20, 10, func(x models.Time) models.Time { return x }); ok {
		t.Error("fixpoint above the limit must be reported as exceeded")
	}
}
