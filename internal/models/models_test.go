package models

import (
	"errors"
	"math/big"
	"testing"
)

func TestTimeRounding(t *testing.T) {
	tests := []struct {
		name        string
		t, d        Time
		floor, ceil int64
		mod         Time
	}{
		{"exact", 10, 5, 2, 2, 0},
		{"positive remainder", 11, 5, 2, 3, 1},
		{"negative dividend", -11, 5, -3, -2, 4},
		{"negative exact", -10, 5, -2, -2, 0},
		{"zero", 0, 7, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.DivFloor(tt.d); got != tt.floor {
				t.Errorf("DivFloor(%d, %d) = %d, want %d", tt.t, tt.d, got, tt.floor)
			}
			if got := tt.t.DivCeil(tt.d); got != tt.ceil {
				t.Errorf("DivCeil(%d, %d) = %d, want %d", tt.t, tt.d, got, tt.ceil)
			}
			if got := tt.t.Mod(tt.d); got != tt.mod {
				t.Errorf("Mod(%d, %d) = %d, want %d", tt.t, tt.d, got, tt.mod)
			}
		})
	}
}

func TestMulDivWide(t *testing.T) {
	// 3e18 * 6 overflows int64 but the quotient does not
	a, b, c := int64(3_000_000_000_000_000_000), int64(6), int64(9)
	if got := MulDivFloor(a, b, c); got != 2_000_000_000_000_000_000 {
		t.Errorf("MulDivFloor = %d", got)
	}
	if got := MulDivFloor(7, 3, 2); got != 10 {
		t.Errorf("MulDivFloor(7,3,2) = %d, want 10", got)
	}
	if got := MulDivCeil(7, 3, 2); got != 11 {
		t.Errorf("MulDivCeil(7,3,2) = %d, want 11", got)
	}
	if got := MulDivFloor(-7, 3, 2); got != -11 {
		t.Errorf("MulDivFloor(-7,3,2) = %d, want -11", got)
	}
	if got := MulDivCeil(-7, 3, 2); got != -10 {
		t.Errorf("MulDivCeil(-7,3,2) = %d, want -10", got)
	}
}

func TestSaturatingArithmetic(t *testing.T) {
	if got := Time(1 << 50).SatMul(1 << 20); got != MaxTime {
		t.Errorf("SatMul overflow = %d, want MaxTime", got)
	}
	if got := Time(6).SatMul(7); got != 42 {
		t.Errorf("SatMul(6, 7) = %d", got)
	}
	if got := SatAdd(MaxTime-1, 5); got != MaxTime {
		t.Errorf("SatAdd overflow = %d", got)
	}
	if got := SatAdd(2, 3); got != 5 {
		t.Errorf("SatAdd(2, 3) = %d", got)
	}
}

func TestMulDivOverflowPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected overflow panic")
		}
	}()
	MulDivFloor(1<<62, 1<<62, 1)
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		unit    Time
		want    Time
		wantErr error
	}{
		{"10", Millisecond, 10 * Millisecond, nil},
		{"10 ms", Nanosecond, 10 * Millisecond, nil},
		{"10ms", Nanosecond, 10 * Millisecond, nil},
		{"3 s", Nanosecond, 3 * Second, nil},
		{"25 us", Nanosecond, 25 * Microsecond, nil},
		{"1.5 ms", Nanosecond, 1_500_000, nil},
		{"42 ns", Millisecond, 42, nil},
		{"0.5 ns", Nanosecond, 0, ErrSubNanoTime},
		{"10 min", Nanosecond, 0, ErrUnknownUnit},
		{"ten", Nanosecond, 0, ErrInvalidTime},
		{"1 2 3", Nanosecond, 0, ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, tt.unit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseTime(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTime(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTime(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTaskDerivedQuantities(t *testing.T) {
	task := NewTask(20, 30, 40)
	if task.Utilization().Cmp(big.NewRat(1, 2)) != 0 {
		t.Errorf("utilization = %s", task.Utilization())
	}
	if task.Density().Cmp(big.NewRat(2, 3)) != 0 {
		t.Errorf("density = %s", task.Density())
	}
	if task.Laxity() != 10 {
		t.Errorf("laxity = %d", task.Laxity())
	}
	if task.HasImplicitDeadline() || !task.HasConstrainedDeadline() {
		t.Errorf("deadline predicates wrong for %s", task)
	}
}

func TestTaskSetPredicates(t *testing.T) {
	ts := TaskSet{NewTask(1, 5, 10), NewTask(2, 10, 10), NewTask(3, 10, 20)}

	if !ts.SortedByPeriod() || !ts.SortedByDeadline() {
		t.Error("expected sorted task set")
	}
	if ts.ImplicitDeadlines() {
		t.Error("task 0 has a constrained deadline")
	}
	if !ts.ConstrainedDeadlines() {
		t.Error("all deadlines are constrained")
	}
	if got := ts.LargestWCETs(2); got != 5 {
		t.Errorf("LargestWCETs(2) = %d, want 5", got)
	}
	if got := ts.MinLaxity(); got != 4 {
		t.Errorf("MinLaxity = %d, want 4", got)
	}
	h, err := ts.Hyperperiod()
	if err != nil {
		t.Fatalf("Hyperperiod failed: %v", err)
	}
	if h != 20 {
		t.Errorf("Hyperperiod = %d, want 20", h)
	}

	unsorted := TaskSet{NewTask(1, 10, 20), NewTask(1, 5, 10)}
	if unsorted.SortedByPeriod() || unsorted.SortedByDeadline() {
		t.Error("expected unsorted task set")
	}
}

func TestHyperperiodOverflow(t *testing.T) {
	ts := TaskSet{
		NewTask(1, 1<<40-1, 1<<40-1),
		NewTask(1, 1<<40-3, 1<<40-3),
		NewTask(1, 1<<40-5, 1<<40-5),
	}
	if _, err := ts.Hyperperiod(); !errors.Is(err, ErrTimeOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestTaskValidate(t *testing.T) {
	if err := NewTask(0, 10, 10).Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("zero wcet: got %v", err)
	}
	if err := NewTask(1, 10, int64(MaxTaskParameter)+1).Validate(); !errors.Is(err, ErrTaskTooLarge) {
		t.Errorf("huge period: got %v", err)
	}
	if err := (TaskSet{NewTask(1, 2, 3)}).Validate(); err != nil {
		t.Errorf("valid set rejected: %v", err)
	}
}
