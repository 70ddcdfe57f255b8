package design

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/fentz26/rtcheck/internal/engine"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/sched"
)

// table returns a ResourceFunc backed by budgets[period][concurrency]; a
// missing entry is infeasible.
func table(budgets map[models.Time]map[int64]models.Time) ResourceFunc {
	return func(_ context.Context, _ models.TaskSet, c Candidate) (models.Time, error) {
		if b, ok := budgets[c.Period][c.Concurrency]; ok {
			return b, nil
		}
		return 0, sched.Infeasible("no budget for %s", c)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"naive", Naive, false},
		{"linear", MonotoneLinear, false},
		{"Binary", MonotoneBinary, false},
		{"random", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Fatalf("ParseStrategy(%q) error = %v, want ErrUnknownStrategy", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseStrategy(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
			if got.String() != strategyNames[tt.want] {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}

func TestPeriodRangeValues(t *testing.T) {
	got, err := PeriodRange{Min: 10, Max: 20, Step: 5}.Values()
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	want := []models.Time{10, 15, 20}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values() = %v, want %v", got, want)
		}
	}

	if _, err := (PeriodRange{Min: 0, Max: 10}).Values(); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("zero min: error = %v, want ErrInvalidBounds", err)
	}
	if _, err := (PeriodRange{Min: 1, Max: 1 << 40, Step: 1}).Values(); !errors.Is(err, ErrTooManyPeriods) {
		t.Errorf("huge range: error = %v, want ErrTooManyPeriods", err)
	}
	huge := models.MaxTaskParameter + 1
	if _, err := (PeriodRange{Min: huge, Max: huge}).Values(); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("period above the parameter limit: error = %v, want ErrInvalidBounds", err)
	}
}

func TestConcurrencyBounds(t *testing.T) {
	ts := models.TaskSet{models.NewTask(1, 4, 4), models.NewTask(2, 6, 6)}

	got, err := ConcurrencyBounds(ts, ConcurrencyRange{})
	if err != nil {
		t.Fatalf("ConcurrencyBounds() error = %v", err)
	}
	if got != (ConcurrencyRange{Min: 1, Max: 3}) {
		t.Errorf("ConcurrencyBounds() = %+v, want [1, 3]", got)
	}

	got, err = ConcurrencyBounds(ts, ConcurrencyRange{Max: 8})
	if err != nil || got.Max != 8 {
		t.Errorf("override: got %+v, %v", got, err)
	}

	got, err = ConcurrencyBounds(nil, ConcurrencyRange{})
	if err != nil || got != (ConcurrencyRange{Min: 1, Max: 1}) {
		t.Errorf("empty set: got %+v, %v", got, err)
	}

	tight := models.TaskSet{models.NewTask(5, 5, 10)}
	if _, err := ConcurrencyBounds(tight, ConcurrencyRange{}); !errors.Is(err, sched.ErrPrecondition) {
		t.Errorf("zero laxity: error = %v, want precondition", err)
	}

	if _, err := ConcurrencyBounds(ts, ConcurrencyRange{Min: 4, Max: 2}); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("inverted range: error = %v, want ErrInvalidBounds", err)
	}

	if _, err := ConcurrencyBounds(ts, ConcurrencyRange{Max: resource.MaxConcurrency + 1}); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("too many processors: error = %v, want ErrInvalidBounds", err)
	}

	// One nanosecond of laxity would ask for about 2^40 processors.
	slim := models.TaskSet{models.NewTask(1<<40, 1<<40+1, 1<<41)}
	got, err = ConcurrencyBounds(slim, ConcurrencyRange{})
	if err != nil || got.Max != resource.MaxConcurrency {
		t.Errorf("derived bound: got %+v, %v, want max %d", got, err, resource.MaxConcurrency)
	}
}

func TestUtilizationBudget(t *testing.T) {
	ts := models.TaskSet{models.NewTask(1, 4, 4), models.NewTask(2, 6, 6)}
	if got := UtilizationBudget(ts, 12); got != 7 {
		t.Errorf("UtilizationBudget(12) = %d, want 7", got)
	}
	if got := UtilizationBudget(ts, 10); got != 6 {
		t.Errorf("UtilizationBudget(10) = %d, want 6", got)
	}
}

func TestSearchResource(t *testing.T) {
	ctx := context.Background()
	cand := Candidate{Period: 10, Concurrency: 2}

	fn := func(b models.Time) ResourceFunc {
		return func(context.Context, models.TaskSet, Candidate) (models.Time, error) { return b, nil }
	}

	model, err := SearchResource(ctx, nil, cand, fn(20))
	if err != nil {
		t.Fatalf("SearchResource() error = %v", err)
	}
	if model != resource.NewMPR(20, 10, 2) {
		t.Errorf("SearchResource() = %v", model)
	}

	if _, err := SearchResource(ctx, nil, cand, fn(21)); !errors.Is(err, sched.ErrInfeasible) {
		t.Errorf("over capacity: error = %v, want ErrInfeasible", err)
	}
}

func TestSearchConcurrency(t *testing.T) {
	budgets := map[models.Time]map[int64]models.Time{
		10: {2: 18, 3: 15, 4: 16},
	}
	conc := ConcurrencyRange{Min: 1, Max: 4}

	tests := []struct {
		strategy Strategy
		want     resource.MultiprocessorResourceModel
	}{
		{Naive, resource.NewMPR(15, 10, 3)},
		{MonotoneLinear, resource.NewMPR(18, 10, 2)},
		{MonotoneBinary, resource.NewMPR(18, 10, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			got, err := SearchConcurrency(context.Background(), nil, 10, conc, tt.strategy, table(budgets))
			if err != nil {
				t.Fatalf("SearchConcurrency() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SearchConcurrency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchConcurrencyBinaryReachesUpperBound(t *testing.T) {
	budgets := map[models.Time]map[int64]models.Time{10: {5: 42}}
	got, err := SearchConcurrency(context.Background(), nil, 10, ConcurrencyRange{Min: 1, Max: 5}, MonotoneBinary, table(budgets))
	if err != nil {
		t.Fatalf("SearchConcurrency() error = %v", err)
	}
	if got != resource.NewMPR(42, 10, 5) {
		t.Errorf("SearchConcurrency() = %v, want the upper bound", got)
	}
}

func TestSearchConcurrencyInfeasible(t *testing.T) {
	for _, s := range []Strategy{Naive, MonotoneLinear, MonotoneBinary} {
		_, err := SearchConcurrency(context.Background(), nil, 10, ConcurrencyRange{Min: 1, Max: 3}, s, table(nil))
		if !errors.Is(err, sched.ErrInfeasible) {
			t.Errorf("%s: error = %v, want ErrInfeasible", s, err)
		}
	}
}

func TestSearchConcurrencyAbortsOnPrecondition(t *testing.T) {
	var calls int
	fn := func(context.Context, models.TaskSet, Candidate) (models.Time, error) {
		calls++
		return 0, sched.ErrImplicitDeadlines
	}
	_, err := SearchConcurrency(context.Background(), nil, 10, ConcurrencyRange{Min: 1, Max: 4}, Naive, fn)
	if !errors.Is(err, sched.ErrImplicitDeadlines) {
		t.Fatalf("error = %v, want ErrImplicitDeadlines", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSearchPeriod(t *testing.T) {
	budgets := map[models.Time]map[int64]models.Time{
		10: {1: 7},
		20: {1: 5},
		30: {1: 5},
		40: {},
	}
	periods := []models.Time{10, 20, 30, 40}
	for _, workers := range []int{1, 4} {
		cfg := &Config{Workers: workers}
		got, err := SearchPeriod(context.Background(), nil, periods, ConcurrencyRange{Min: 1, Max: 1}, Naive, table(budgets), cfg)
		if err != nil {
			t.Fatalf("workers=%d: SearchPeriod() error = %v", workers, err)
		}
		if got != resource.NewMPR(5, 20, 1) {
			t.Errorf("workers=%d: SearchPeriod() = %v, want the earliest smallest budget", workers, got)
		}
	}

	_, err := SearchPeriod(context.Background(), nil, []models.Time{40}, ConcurrencyRange{Min: 1, Max: 1}, Naive, table(budgets), nil)
	if !errors.Is(err, sched.ErrInfeasible) {
		t.Errorf("error = %v, want ErrInfeasible", err)
	}
}

func TestSearchPeriodCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SearchPeriod(ctx, nil, []models.Time{10, 20}, ConcurrencyRange{Min: 1, Max: 2}, Naive, table(nil), DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// Widening the search space never makes the naive and linear searches
// return a larger budget.
func TestSearchMonotonicity(t *testing.T) {
	budgets := map[models.Time]map[int64]models.Time{
		10: {2: 30, 3: 28},
		15: {1: 14, 2: 12},
		20: {1: 13},
		25: {3: 11},
	}
	narrow := []models.Time{10, 15}
	wide := []models.Time{10, 15, 20, 25}

	for _, s := range []Strategy{Naive, MonotoneLinear} {
		t.Run(s.String(), func(t *testing.T) {
			budget := func(periods []models.Time, hi int64) models.Time {
				got, err := SearchPeriod(context.Background(), nil, periods, ConcurrencyRange{Min: 1, Max: hi}, s, table(budgets), nil)
				if err != nil {
					return models.MaxTime
				}
				return got.Resource
			}
			for hi := int64(1); hi <= 3; hi++ {
				for _, periods := range [][]models.Time{narrow, wide} {
					if hi > 1 && budget(periods, hi) > budget(periods, hi-1) {
						t.Errorf("periods %v: budget grew when concurrency bound rose to %d", periods, hi)
					}
				}
				if budget(wide, hi) > budget(narrow, hi) {
					t.Errorf("concurrency %d: wider period range found a larger budget", hi)
				}
			}
		})
	}
}

func TestSteppedSearch(t *testing.T) {
	ctx := context.Background()
	cand := Candidate{Period: 10, Concurrency: 1}
	atLeast := func(need models.Time) func(resource.MultiprocessorResourceModel) error {
		return func(m resource.MultiprocessorResourceModel) error {
			if m.Resource < need {
				return sched.NotSchedulable("budget %d", m.Resource)
			}
			return nil
		}
	}

	tests := []struct {
		name         string
		lower, upper models.Time
		step         models.Time
		need         models.Time
		want         models.Time
	}{
		{"first accepted", 2, 9, 2, 5, 6},
		{"exact step", 2, 9, 1, 5, 5},
		{"upper off the grid", 2, 9, 3, 9, 9},
		{"lower above upper", 9, 7, 1, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SteppedSearch(ctx, cand, tt.lower, tt.upper, tt.step, atLeast(tt.need))
			if err != nil {
				t.Fatalf("SteppedSearch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SteppedSearch() = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := SteppedSearch(ctx, cand, 2, 9, 3, atLeast(10)); !errors.Is(err, sched.ErrInfeasible) {
		t.Errorf("nothing passes: error = %v, want infeasible", err)
	}
	if _, err := SteppedSearch(ctx, cand, 0, 5, 0, atLeast(0)); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("zero step: error = %v, want ErrInvalidStep", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := SteppedSearch(canceled, cand, 0, 5, 1, atLeast(3)); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: error = %v, want context.Canceled", err)
	}
}

func TestRaiseBudget(t *testing.T) {
	ctx := context.Background()
	cand := Candidate{Period: 10, Concurrency: 2}
	var tried []models.Time
	atLeast := func(need models.Time) func(resource.MultiprocessorResourceModel) error {
		tried = nil
		return func(m resource.MultiprocessorResourceModel) error {
			tried = append(tried, m.Resource)
			if m.Resource < need {
				return sched.NotSchedulable("budget %d", m.Resource)
			}
			return nil
		}
	}

	tests := []struct {
		name       string
		from, need models.Time
		want       models.Time
		tried      []models.Time
	}{
		{"accepted as is", 5, 0, 5, []models.Time{5}},
		{"doubling steps", 5, 8, 8, []models.Time{5, 6, 8}},
		{"ends at capacity", 5, 19, 20, []models.Time{5, 6, 8, 12, 20}},
		{"above capacity", 25, 0, 25, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RaiseBudget(ctx, cand, tt.from, atLeast(tt.need))
			if err != nil {
				t.Fatalf("RaiseBudget() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RaiseBudget() = %d, want %d", got, tt.want)
			}
			if !reflect.DeepEqual(tried, tt.tried) {
				t.Errorf("tried %v, want %v", tried, tt.tried)
			}
		})
	}

	if _, err := RaiseBudget(ctx, cand, 5, atLeast(21)); !errors.Is(err, sched.ErrInfeasible) {
		t.Errorf("nothing passes: error = %v, want infeasible", err)
	}
}

func TestGapBudget(t *testing.T) {
	ts := models.TaskSet{models.NewTask(1, 4, 4), models.NewTask(2, 6, 6)}
	// U = 7/12; (7/12 + 1/100)·12 = 7.12.
	if got := GapBudget(ts, 12); got != 8 {
		t.Errorf("GapBudget(12) = %d, want 8", got)
	}
	// (7/12 + 1/100)·100 = 59.33.
	if got := GapBudget(ts, 100); got != 60 {
		t.Errorf("GapBudget(100) = %d, want 60", got)
	}
}

func TestLinearInversion(t *testing.T) {
	ts := models.TaskSet{models.NewTask(1, 10, 10), models.NewTask(3, 20, 20)}
	cand := Candidate{Period: 5, Concurrency: 1}
	prob := LinearProblem{
		Demand: func(ts models.TaskSet, k int, _ Candidate, _ models.Time) models.Time { return ts[k].WCET },
		Instants: func(models.TaskSet, int, Candidate) (engine.Instants, error) {
			return engine.Once(0), nil
		},
	}

	got, err := LinearInversion(context.Background(), ts, cand, prob)
	if err != nil {
		t.Fatalf("LinearInversion() error = %v", err)
	}
	var want models.Time
	for _, task := range ts {
		r, err := resource.ResourceFromLinearSupply(task.WCET, task.Deadline, cand.Period, cand.Concurrency)
		if err != nil {
			t.Fatalf("ResourceFromLinearSupply() error = %v", err)
		}
		want = max(want, r)
	}
	if got != want {
		t.Errorf("LinearInversion() = %d, want %d", got, want)
	}

	empty, err := LinearInversion(context.Background(), nil, cand, prob)
	if err != nil || empty != 0 {
		t.Errorf("empty set: got %d, %v", empty, err)
	}

	prob.Demand = func(models.TaskSet, int, Candidate, models.Time) models.Time { return 100 }
	if _, err := LinearInversion(context.Background(), ts, cand, prob); !errors.Is(err, sched.ErrInfeasible) {
		t.Errorf("impossible demand: error = %v, want ErrInfeasible", err)
	}
}

func TestWorkerLimit(t *testing.T) {
	var nilCfg *Config
	if got := nilCfg.WorkerLimit(); got != 1 {
		t.Errorf("nil config: WorkerLimit() = %d", got)
	}
	if got := (&Config{Workers: 3}).WorkerLimit(); got != 3 {
		t.Errorf("WorkerLimit() = %d, want 3", got)
	}
	if DefaultConfig().WorkerLimit() < 1 {
		t.Error("default config has no workers")
	}
}
