package analyzers

import (
	"context"
	"errors"
	"testing"

	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/sched"
)

func fake(name string, priority int, err error) Analyzer {
	return Analyzer{
		Name:     name,
		Family:   FamilyUniprocessorEDF,
		Priority: priority,
		Enabled:  true,
		Run: func(models.TaskSet, Platform) (Diagnostics, error) {
			return Diagnostics{}, err
		},
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(Analyzer{Run: fake("x", 0, nil).Run}); err == nil {
		t.Error("expected error for empty name")
	}
	if err := reg.Register(Analyzer{Name: "x"}); err == nil {
		t.Error("expected error for missing test")
	}
	if err := reg.RegisterDesigner(Designer{Name: "d"}); err == nil {
		t.Error("expected error for missing budget")
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
}

func TestRegistry_Defaults(t *testing.T) {
	reg := DefaultRegistry()
	if got, want := reg.Count(), len(Catalog()); got != want {
		t.Errorf("Count() = %d, want %d", got, want)
	}
	if got := len(reg.GetEnabled()); got != reg.Count() {
		t.Errorf("enabled = %d, want all %d", got, reg.Count())
	}

	a, err := reg.Get("baruah07")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if a.Family != FamilyGlobalEDF {
		t.Errorf("family = %s", a.Family)
	}
	if _, err := reg.Get("edf-xx99"); !errors.Is(err, ErrUnknownAnalyzer) {
		t.Errorf("Get(unknown) error = %v", err)
	}

	var names []string
	for _, d := range reg.Designers() {
		names = append(names, d.Name)
	}
	want := []string{"mpr-edf-bcl09", "mpr-edf-sel09", "mpr-fp-bcl09", "pr-edf-sl03"}
	if len(names) != len(want) {
		t.Fatalf("designers = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("designers = %v, want %v", names, want)
			break
		}
	}
	if _, err := reg.Designer("rm-ll73"); !errors.Is(err, ErrUnknownAnalyzer) {
		t.Errorf("Designer(unknown) error = %v", err)
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	list := DefaultRegistry().List()
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		if familyIndex(prev.Family) > familyIndex(cur.Family) {
			t.Fatalf("%s listed before %s", prev.Name, cur.Name)
		}
		if prev.Family == cur.Family && prev.Priority < cur.Priority {
			t.Fatalf("%s (priority %d) listed before %s (priority %d)",
				prev.Name, prev.Priority, cur.Name, cur.Priority)
		}
	}

	battery := DefaultRegistry().Battery(FamilyUniprocessorFP)
	want := []string{"rm-ll73-simple", "rm-ll73", "rm-bbb01", "dm-lw82-pessimistic", "dm-lw82", "rta-jp86"}
	if len(battery) != len(want) {
		t.Fatalf("battery has %d analyzers, want %d", len(battery), len(want))
	}
	for i, a := range battery {
		if a.Name != want[i] {
			t.Errorf("battery[%d] = %s, want %s", i, a.Name, want[i])
		}
	}
}

func TestRegistry_EnableDisable(t *testing.T) {
	reg := DefaultRegistry()
	if err := reg.Disable("gfb03"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	for _, a := range reg.Battery(FamilyGlobalEDF) {
		if a.Name == "gfb03" {
			t.Error("disabled analyzer still in battery")
		}
	}
	if _, err := reg.Get("gfb03"); err != nil {
		t.Errorf("disabled analyzer should still resolve: %v", err)
	}
	if err := reg.Enable("gfb03"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if got := reg.Battery(FamilyGlobalEDF)[0].Name; got != "gfb03" {
		t.Errorf("first analyzer = %s, want gfb03", got)
	}
	if err := reg.Disable("nope"); !errors.Is(err, ErrUnknownAnalyzer) {
		t.Errorf("Disable(unknown) error = %v", err)
	}
}

func TestRunner_StopsAtFirstPass(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(fake("first", 30, sched.NotSchedulable("too much")))
	_ = reg.Register(fake("second", 20, sched.Precondition("wrong shape")))
	_ = reg.Register(fake("third", 10, nil))
	_ = reg.Register(fake("fourth", 0, nil))

	report, err := NewRunner(reg, nil).Run(context.Background(), FamilyUniprocessorEDF, nil, flat(1))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Results) != 3 {
		t.Fatalf("ran %d analyzers, want 3", len(report.Results))
	}
	if report.Passed == nil || report.Passed.Analyzer != "third" {
		t.Fatalf("passed = %v, want third", report.Passed)
	}
	if report.Err() != nil {
		t.Errorf("Err() = %v", report.Err())
	}
}

func TestRunner_Verdicts(t *testing.T) {
	tests := []struct {
		name  string
		errs  []error
		want  sched.Kind
		abort bool
	}{
		{"negative verdict wins over precondition", []error{sched.Precondition("a"), sched.NotSchedulable("b")}, sched.KindNotSchedulable, false},
		{"only preconditions", []error{sched.Precondition("a"), sched.Precondition("b")}, sched.KindPrecondition, false},
		{"other error aborts", []error{sched.NotSchedulable("a"), errors.New("boom"), nil}, sched.KindOther, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			for i, err := range tt.errs {
				_ = reg.Register(fake(string(rune('a'+i)), 100-i, err))
			}
			report, err := NewRunner(reg, nil).Run(context.Background(), FamilyUniprocessorEDF, nil, flat(1))
			if tt.abort {
				if err == nil {
					t.Fatal("expected run to abort")
				}
				if sched.KindOf(err) != tt.want {
					t.Errorf("kind = %v, want %v", sched.KindOf(err), tt.want)
				}
				if len(report.Results) != 2 {
					t.Errorf("ran %d analyzers, want 2", len(report.Results))
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := sched.KindOf(report.Err()); got != tt.want {
				t.Errorf("Err() kind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunner_EmptyBattery(t *testing.T) {
	report, err := NewRunner(NewRegistry(), nil).Run(context.Background(), FamilyGlobalFP, nil, flat(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := sched.ExitCode(report.Err()); got != 2 {
		t.Errorf("exit code = %d, want 2", got)
	}
}

func TestRunner_CatalogBatteries(t *testing.T) {
	runner := NewRunner(nil, nil)
	ctx := context.Background()

	report, err := runner.Run(ctx, FamilyGlobalEDF, scenario1, flat(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Passed == nil || report.Passed.Analyzer != "gfb03" {
		t.Errorf("passed = %v, want gfb03", report.Passed)
	}

	full := tasks([3]int64{10, 10, 10}, [3]int64{10, 10, 10}, [3]int64{10, 10, 10})
	report, err = runner.Run(ctx, FamilyGlobalEDF, full, flat(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Results) != len(DefaultRegistry().Battery(FamilyGlobalEDF)) {
		t.Errorf("ran %d analyzers", len(report.Results))
	}
	if got := sched.ExitCode(report.Err()); got != 1 {
		t.Errorf("exit code = %d, want 1 (%v)", got, report.Err())
	}

	// Uniprocessor analyzers never apply to two processors.
	report, err = runner.Run(ctx, FamilyUniprocessorFP, scenario1, flat(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !errors.Is(report.Err(), sched.ErrSingleProcessor) {
		t.Errorf("Err() = %v, want ErrSingleProcessor", report.Err())
	}
}

func TestRunner_Override(t *testing.T) {
	runner := NewRunner(nil, nil).Override("gfb03", "bcl09-edf")
	report, err := runner.Run(context.Background(), FamilyGlobalFP, scenario2, flat(2))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Family != "" {
		t.Errorf("family = %q, want empty for overrides", report.Family)
	}
	if len(report.Results) != 2 || report.Passed == nil || report.Passed.Analyzer != "bcl09-edf" {
		t.Errorf("results = %v", report.Results)
	}

	_, err = NewRunner(nil, nil).Override("nope").Run(context.Background(), FamilyGlobalEDF, scenario2, flat(2))
	if !errors.Is(err, ErrUnknownAnalyzer) {
		t.Errorf("unknown override error = %v", err)
	}
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, nil).Run(ctx, FamilyGlobalEDF, scenario1, flat(2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
