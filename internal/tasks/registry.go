package tasks

import (
	"fmt"
	"sort"
	"strings"

	"stepwise/internal/services"
	"stepwise/internal/textutil"
)

// Registry holds the task variants a daemon serves, in registration order.
type Registry struct {
	variants map[string]*Variant
	order    []string
}

// NewRegistry validates and registers variants.
func NewRegistry(variants ...*Variant) (*Registry, error) {
	r := &Registry{variants: make(map[string]*Variant, len(variants))}
	for _, v := range variants {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(v.Name)
		if _, dup := r.variants[key]; dup {
			return nil, fmt.Errorf("task %s registered twice", v.Name)
		}
		r.variants[key] = v
		r.order = append(r.order, key)
	}
	return r, nil
}

// Builtin returns the registry of the shipped task variants.
func Builtin() *Registry {
	r, err := NewRegistry(Lamp(), Sandwich())
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the named variant.
func (r *Registry) Get(name string) (*Variant, error) {
	v, ok := r.variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		detail := fmt.Sprintf("task %q", name)
		if suggestion, ok := textutil.Suggest(name, r.order, 0.35); ok {
			detail += fmt.Sprintf(" (did you mean %s?)", suggestion)
		}
		return nil, services.Wrap(services.ErrUnknownTask, "tasks", "lookup", detail, nil)
	}
	return v, nil
}

// Names returns the registered task names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns the registered variants.
func (r *Registry) All() []*Variant {
	out := make([]*Variant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.variants[name])
	}
	return out
}

// Images returns the instruction image names used by every registered
// variant, sorted and without duplicates.
func (r *Registry) Images() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range r.All() {
		for _, step := range v.Catalog.Steps() {
			if step.Image == "" {
				continue
			}
			if _, dup := seen[step.Image]; dup {
				continue
			}
			seen[step.Image] = struct{}{}
			out = append(out, step.Image)
		}
	}
	sort.Strings(out)
	return out
}
