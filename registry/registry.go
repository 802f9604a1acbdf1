// Package registry holds the constructed-once lookup table that resolves step
// declarations to runnables.
//
// A Registry is created explicitly and passed to the chains that use it; there
// is no process-wide instance.
//
//	reg := registry.New()
//	if err := reg.Register(modular.KindTool, "math", tools.NewMath()); err != nil {
//	    return err
//	}
//	c, err := chain.New("main", steps, reg)
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	modular "github.com/Emilio-01-T/Modular-2"
)

// ErrDuplicate is returned when a (kind, name) pair is registered twice.
var ErrDuplicate = errors.New("component already registered")

// ErrAmbiguous is returned when a kindless lookup matches several kinds.
var ErrAmbiguous = errors.New("ambiguous component")

// Registry maps (kind, name) pairs to runnables. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[modular.StepKind]map[string]modular.Runnable
}

var _ modular.Resolver = (*Registry)(nil)

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		components: make(map[modular.StepKind]map[string]modular.Runnable),
	}
}

// Register adds a runnable under (kind, name).
func (r *Registry) Register(kind modular.StepKind, name string, run modular.Runnable) error {
	if !kind.Valid() {
		return fmt.Errorf("register %q: unknown kind %q", name, kind)
	}
	if name == "" {
		return fmt.Errorf("register %s: name is required", kind)
	}
	if run == nil {
		return fmt.Errorf("register %s %q: runnable is nil", kind, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.components[kind]
	if !ok {
		byName = make(map[string]modular.Runnable)
		r.components[kind] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("%w: %s %q", ErrDuplicate, kind, name)
	}
	byName[name] = run
	return nil
}

// MustRegister is like Register but panics on error.
// Use this for components wired at init time.
func (r *Registry) MustRegister(kind modular.StepKind, name string, run modular.Runnable) *Registry {
	if err := r.Register(kind, name, run); err != nil {
		panic(err)
	}
	return r
}

// Resolve implements modular.Resolver.
//
// An empty kind matches name across all kinds and fails if it is registered
// under more than one. Control kinds (condition, fallback) with an empty
// component resolve to [modular.Passthrough].
func (r *Registry) Resolve(kind modular.StepKind, name string) (modular.Runnable, error) {
	if kind.IsControl() && name == "" {
		return modular.Passthrough, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind != "" {
		if run, ok := r.components[kind][name]; ok {
			return run, nil
		}
		return nil, fmt.Errorf("%w: %s %q", modular.ErrUnknownComponent, kind, name)
	}

	var (
		found   modular.Runnable
		matches []string
	)
	for k, byName := range r.components {
		if run, ok := byName[name]; ok {
			found = run
			matches = append(matches, string(k))
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", modular.ErrUnknownComponent, name)
	case 1:
		return found, nil
	default:
		sort.Strings(matches)
		return nil, fmt.Errorf("%w: %q is registered as %v", ErrAmbiguous, name, matches)
	}
}

// Has reports whether (kind, name) is registered.
func (r *Registry) Has(kind modular.StepKind, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[kind][name]
	return ok
}

// Unregister removes (kind, name). It reports whether anything was removed.
func (r *Registry) Unregister(kind modular.StepKind, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[kind][name]; !ok {
		return false
	}
	delete(r.components[kind], name)
	return true
}

// List returns the sorted component names registered under each kind.
// Kinds with no components are omitted.
func (r *Registry) List() map[modular.StepKind][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[modular.StepKind][]string, len(r.components))
	for kind, byName := range r.components {
		if len(byName) == 0 {
			continue
		}
		out[kind] = slices.Sorted(maps.Keys(byName))
	}
	return out
}

// Len returns the total number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, byName := range r.components {
		n += len(byName)
	}
	return n
}
