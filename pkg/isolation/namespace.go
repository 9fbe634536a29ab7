// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"sync"

	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/symbol"
)

// Namespace is the private symbol scope of one module.
type Namespace struct {
	desc     *modmeta.Descriptor
	source   symbol.Source
	boundary *Boundary

	mu       sync.Mutex
	cache    map[string]*symbol.Symbol
	entry    bool
	released bool
}

// Module returns the canonical name of the owning module.
func (ns *Namespace) Module() string { return ns.desc.Name() }

// Location returns the code location the namespace reads from.
func (ns *Namespace) Location() string { return ns.desc.Location() }

// Descriptor returns the descriptor the namespace was opened for.
func (ns *Namespace) Descriptor() *modmeta.Descriptor { return ns.desc }

// Resolve returns the symbol called name as seen from this module:
//
//  1. a previously resolved symbol from the cache;
//  2. a symbol the module's own source already provides;
//  3. a symbol the module's own source can materialize on demand;
//  4. if global is set, a symbol exported by the shared tier.
//
// The shared tier is only probed when the module's own source has no
// definition at all, so a global lookup never shadows a local one. A local
// definition that fails to materialize is returned as an error rather than
// replaced by a foreign one.
//
// The first result found is cached for good. If two callers race on the
// same name, both observe whichever symbol was cached first.
func (ns *Namespace) Resolve(name string, global bool) (*symbol.Symbol, error) {
	if sym, ok, err := ns.cached(name); ok || err != nil {
		return sym, err
	}

	sym, err := ns.resolveOwn(name)
	if err != nil {
		if !global || !isMiss(err) {
			return nil, err
		}
		if sym = ns.boundary.probeShared(ns, name); sym == nil {
			return nil, err
		}
	}
	return ns.store(name, sym), nil
}

func (ns *Namespace) resolveOwn(name string) (*symbol.Symbol, error) {
	if sym, ok := ns.source.Lookup(name); ok {
		return sym, nil
	}
	return ns.force(name)
}

// isMiss reports whether err means the source has no definition for the
// name, as opposed to a definition that failed to materialize.
func isMiss(err error) bool {
	var nf *SymbolNotFoundError
	return errors.As(err, &nf) && nf.Cause == nil
}

// ResolveEntry resolves the module's entry point privately and marks the
// namespace eligible for the shared tier.
func (ns *Namespace) ResolveEntry(name string) (*symbol.Symbol, error) {
	sym, err := ns.Resolve(name, false)
	if err != nil {
		return nil, err
	}
	ns.mu.Lock()
	ns.entry = true
	ns.mu.Unlock()
	return sym, nil
}

// EntryResolved reports whether ResolveEntry has succeeded.
func (ns *Namespace) EntryResolved() bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.entry
}

// Cached reports whether name has been resolved through this namespace.
func (ns *Namespace) Cached(name string) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	_, ok := ns.cache[name]
	return ok
}

// Released reports whether the namespace has been released.
func (ns *Namespace) Released() bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.released
}

// resolveLocal resolves name without consulting the shared tier. It is what
// other namespaces see when they probe this one.
func (ns *Namespace) resolveLocal(name string) (*symbol.Symbol, error) {
	return ns.Resolve(name, false)
}

func (ns *Namespace) cached(name string) (*symbol.Symbol, bool, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.released {
		return nil, false, ErrReleased
	}
	sym, ok := ns.cache[name]
	return sym, ok, nil
}

func (ns *Namespace) force(name string) (*symbol.Symbol, error) {
	forcer, ok := ns.source.(symbol.Forcer)
	if !ok {
		return nil, &SymbolNotFoundError{Name: name, Module: ns.Module()}
	}
	sym, err := forcer.Force(name)
	if err != nil {
		return nil, &SymbolNotFoundError{Name: name, Module: ns.Module(), Cause: err}
	}
	if sym == nil {
		return nil, &SymbolNotFoundError{Name: name, Module: ns.Module()}
	}
	return sym, nil
}

// store caches sym under name unless another caller got there first, and
// returns the cached symbol.
func (ns *Namespace) store(name string, sym *symbol.Symbol) *symbol.Symbol {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if existing, ok := ns.cache[name]; ok {
		return existing
	}
	ns.cache[name] = sym
	return sym
}

func (ns *Namespace) markReleased() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.released = true
	clear(ns.cache)
}
