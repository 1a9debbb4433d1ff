package detectors

import (
	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
)

// Registry is the ordered, deduplicated set of descriptors to execute.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry validates descs and keeps them in the given order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	seen := make(map[string]struct{}, len(descs))
	for i, d := range descs {
		switch {
		case d.Name == "":
			return nil, apperr.Configurationf("detector at position %d has no name", i)
		case !d.Category.Valid():
			return nil, apperr.Configurationf("detector %q has unknown category %q", d.Name, d.Category)
		case d.Detector == nil:
			return nil, apperr.Configurationf("detector %q has no detect implementation", d.Name)
		case d.Timeout < 0:
			return nil, apperr.Configurationf("detector %q has a negative timeout", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, apperr.Configurationf("duplicate detector name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}

	return &Registry{descriptors: append([]Descriptor(nil), descs...)}, nil
}

// List returns the descriptors in registry order.
func (r *Registry) List() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// ByCategory returns the descriptors of category c in registry order.
func (r *Registry) ByCategory(c Category) []Descriptor {
	var out []Descriptor
	for _, d := range r.descriptors {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of descriptors.
func (r *Registry) Len() int { return len(r.descriptors) }

// Lookup returns the descriptor called name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
