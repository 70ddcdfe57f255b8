package analyzers

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownAnalyzer = errors.New("unknown analyzer")

// Catalog returns every published test in a fresh slice.
func Catalog() []Analyzer {
	var all []Analyzer
	all = append(all, uniprocessorAnalyzers()...)
	all = append(all, globalAnalyzers()...)
	all = append(all, hierarchicalAnalyzers()...)
	return all
}

// Registry keeps analyzers and designers by name.
type Registry struct {
	analyzers map[string]*Analyzer
	designers map[string]*Designer
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[string]*Analyzer),
		designers: make(map[string]*Designer),
	}
}

// DefaultRegistry returns a registry holding the whole catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterDefaults()
	return r
}

// Register adds or replaces an analyzer.
func (r *Registry) Register(a Analyzer) error {
	if a.Name == "" {
		return fmt.Errorf("analyzer name cannot be empty")
	}
	if a.Run == nil {
		return fmt.Errorf("analyzer %q has no test", a.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[a.Name] = &a
	return nil
}

// RegisterDesigner adds or replaces a designer.
func (r *Registry) RegisterDesigner(d Designer) error {
	if d.Name == "" {
		return fmt.Errorf("designer name cannot be empty")
	}
	if d.Budget.Demand == nil || d.Budget.Instants == nil {
		return fmt.Errorf("designer %q has no budget function", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.designers[d.Name] = &d
	return nil
}

// Get returns a copy of the named analyzer.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyzers[name]
	if !ok {
		return Analyzer{}, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, name)
	}
	return *a, nil
}

// Designer returns a copy of the named designer.
func (r *Registry) Designer(name string) (Designer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.designers[name]
	if !ok {
		return Designer{}, fmt.Errorf("%w: designer %q", ErrUnknownAnalyzer, name)
	}
	return *d, nil
}

// List returns every analyzer by family, then priority descending.
func (r *Registry) List() []Analyzer {
	return r.filter(func(*Analyzer) bool { return true })
}

// GetEnabled returns only enabled analyzers, in List order.
func (r *Registry) GetEnabled() []Analyzer {
	return r.filter(func(a *Analyzer) bool { return a.Enabled })
}

// Battery returns the enabled analyzers of a family in run order.
func (r *Registry) Battery(f Family) []Analyzer {
	return r.filter(func(a *Analyzer) bool { return a.Enabled && a.Family == f })
}

func (r *Registry) filter(keep func(*Analyzer) bool) []Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Analyzer, 0, len(r.analyzers))
	for _, a := range r.analyzers {
		if keep(a) {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Family != list[j].Family {
			return familyIndex(list[i].Family) < familyIndex(list[j].Family)
		}
		if list[i].Priority != list[j].Priority {
			return list[i].Priority > list[j].Priority
		}
		return list[i].Name < list[j].Name
	})
	return list
}

func familyIndex(f Family) int {
	for i, family := range Families {
		if family == f {
			return i
		}
	}
	return len(Families)
}

// Designers returns every designer sorted by name.
func (r *Registry) Designers() []Designer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Designer, 0, len(r.designers))
	for _, d := range r.designers {
		list = append(list, *d)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Enable enables an analyzer.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable removes an analyzer from its battery. It can still run alone.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.analyzers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAnalyzer, name)
	}
	a.Enabled = enabled
	return nil
}

// Count returns the number of registered analyzers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.analyzers)
}

// RegisterDefaults registers the whole catalog, enabled, and every
// designer.
func (r *Registry) RegisterDefaults() {
	for _, a := range Catalog() {
		a.Enabled = true
		_ = r.Register(a)
	}
	for _, d := range designerCatalog() {
		_ = r.RegisterDesigner(d)
	}
}
