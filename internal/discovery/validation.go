// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"github.com/modrt/modrt/internal/dag"
	"github.com/modrt/modrt/pkg/modmeta"
)

// LoadOrder returns the discovered modules in the order a host should load
// them: dependencies first, then specifications, implementations and
// regular modules. It returns a *dag.CycleError or *dag.MissingDependencyError
// when no such order exists.
func (r *Result) LoadOrder() ([]*Module, error) {
	descs := make([]*modmeta.Descriptor, len(r.Modules))
	byName := make(map[string]*Module, len(r.Modules))
	for i, m := range r.Modules {
		descs[i] = m.Descriptor
		byName[m.Descriptor.Name()] = m
	}

	ordered, err := dag.OrderModules(descs)
	if err != nil {
		return nil, err
	}
	out := make([]*Module, len(ordered))
	for i, d := range ordered {
		out[i] = byName[d.Name()]
	}
	return out, nil
}
