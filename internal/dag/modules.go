// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"fmt"

	"github.com/modrt/modrt/pkg/modmeta"
)

var (
	// ErrMissingDependency is the sentinel error wrapped by MissingDependencyError.
	ErrMissingDependency = errors.New("missing module dependency")

	// ErrDuplicateModule is returned when two descriptors share a canonical name.
	ErrDuplicateModule = errors.New("duplicate module name")
)

// MissingDependencyError reports a required dependency that is not among the
// modules being ordered.
type MissingDependencyError struct {
	Module     string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("module %s requires %s, which was not found", e.Module, e.Dependency)
}

// Unwrap returns ErrMissingDependency for errors.Is() compatibility.
func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// OrderModules returns descs in load order. Required and optional
// dependencies that are present load first; a missing optional dependency
// is ignored while a missing required one fails with *MissingDependencyError.
// Dependencies name other modules by canonical name.
func OrderModules(descs []*modmeta.Descriptor) ([]*modmeta.Descriptor, error) {
	g := New()
	byName := make(map[string]*modmeta.Descriptor, len(descs))
	for _, d := range descs {
		if _, dup := byName[d.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, d.Name())
		}
		byName[d.Name()] = d
		g.SetRank(d.Name(), int(d.Role()))
	}

	for _, d := range descs {
		for _, dep := range d.Dependencies() {
			if _, ok := byName[dep]; !ok {
				return nil, &MissingDependencyError{Module: d.Name(), Dependency: dep}
			}
			g.AddEdge(dep, d.Name())
		}
		for _, dep := range d.OptionalDependencies() {
			if _, ok := byName[dep]; ok {
				g.AddEdge(dep, d.Name())
			}
		}
	}

	names, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]*modmeta.Descriptor, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out, nil
}
