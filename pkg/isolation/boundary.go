// SPDX-License-Identifier: MPL-2.0

// Package isolation decides which module symbols each module can see.
//
// Every loaded module gets a private [Namespace] over its own code location.
// A namespace caches what it resolves, so asking twice for a name always
// yields the same *symbol.Symbol.
//
// The [Boundary] additionally keeps a shared tier: the namespaces of
// specification modules whose entry point has resolved. A global lookup that
// misses locally probes the shared tier in admission order. Implementation
// and regular modules are never admitted, so their symbols stay private.
//
// A module's own definition always wins over one from the shared tier, even
// one its source only materializes on demand; the shared tier is only
// consulted when the module's own source has no definition.
package isolation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/modrt/modrt/pkg/modmeta"
	"github.com/modrt/modrt/pkg/symbol"
)

type (
	// Boundary owns every open namespace and the shared tier.
	Boundary struct {
		providers []symbol.Provider
		logger    *log.Logger

		mu     sync.Mutex
		open   map[*Namespace]struct{}
		shared []*Namespace
	}

	// Option configures a Boundary.
	Option func(*Boundary)
)

// WithProviders appends symbol providers. Providers are asked in order; the
// first that accepts a location opens it.
func WithProviders(providers ...symbol.Provider) Option {
	return func(b *Boundary) { b.providers = append(b.providers, providers...) }
}

// WithLogger sets the logger. The default is log.Default() prefixed with
// "isolation".
func WithLogger(l *log.Logger) Option {
	return func(b *Boundary) { b.logger = l }
}

// New returns a boundary with no open namespaces.
func New(opts ...Option) *Boundary {
	b := &Boundary{open: make(map[*Namespace]struct{})}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Default().WithPrefix("isolation")
	}
	return b
}

// Open creates the private namespace of the module described by d.
func (b *Boundary) Open(ctx context.Context, d *modmeta.Descriptor) (*Namespace, error) {
	if d == nil || d.Name() == "" {
		return nil, &modmeta.InvalidArgumentError{Argument: "descriptor", Reason: "must name a module"}
	}
	if d.Location() == "" {
		return nil, &modmeta.InvalidArgumentError{Argument: "location", Reason: "must not be empty"}
	}

	var provider symbol.Provider
	for _, p := range b.providers {
		if p.Accepts(d.Location()) {
			provider = p
			break
		}
	}
	if provider == nil {
		return nil, &symbol.NoProviderError{Location: d.Location()}
	}

	src, err := provider.Open(ctx, d.Location())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Location(), err)
	}

	ns := &Namespace{
		desc:     d,
		source:   src,
		boundary: b,
		cache:    make(map[string]*symbol.Symbol),
	}

	b.mu.Lock()
	b.open[ns] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug("opened namespace", "module", d.Name(), "location", d.Location())
	return ns, nil
}

// Admit adds ns to the shared tier. Only specification modules whose entry
// point has already resolved through ns are eligible, and each module is
// admitted at most once.
func (b *Boundary) Admit(ns *Namespace) error {
	if ns == nil {
		return &modmeta.InvalidArgumentError{Argument: "namespace", Reason: "must not be nil"}
	}
	if ns.desc.Role() != modmeta.RoleSpecification {
		return &NotEligibleError{Module: ns.Module(), Reason: "role is " + ns.desc.Role().String()}
	}
	if !ns.EntryResolved() {
		return &NotEligibleError{Module: ns.Module(), Reason: "entry point not resolved"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.open[ns]; !ok {
		return fmt.Errorf("admit %s: %w", ns.Module(), ErrReleased)
	}
	if b.indexLocked(ns.Module()) >= 0 {
		return fmt.Errorf("admit %s: %w", ns.Module(), ErrAlreadyAdmitted)
	}
	b.shared = append(b.shared, ns)
	b.logger.Debug("admitted namespace to shared tier", "module", ns.Module())
	return nil
}

// Evict removes the named module from the shared tier. It reports whether
// the module was admitted; evicting an unknown module is a no-op.
func (b *Boundary) Evict(module string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexLocked(module)
	if i < 0 {
		return false
	}
	b.shared = slices.Delete(b.shared, i, i+1)
	b.logger.Debug("evicted namespace from shared tier", "module", module)
	return true
}

// Release evicts ns from the shared tier, closes its source and forgets it.
// Releasing twice is a no-op.
func (b *Boundary) Release(ns *Namespace) error {
	if ns == nil {
		return nil
	}

	b.mu.Lock()
	if _, ok := b.open[ns]; !ok {
		b.mu.Unlock()
		return nil
	}
	delete(b.open, ns)
	if i := slices.Index(b.shared, ns); i >= 0 {
		b.shared = slices.Delete(b.shared, i, i+1)
	}
	b.mu.Unlock()

	ns.markReleased()
	if err := ns.source.Close(); err != nil {
		return fmt.Errorf("failed to close namespace of %s: %w", ns.Module(), err)
	}
	b.logger.Debug("released namespace", "module", ns.Module())
	return nil
}

// Shared returns the module names in the shared tier, in admission order.
func (b *Boundary) Shared() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, len(b.shared))
	for i, ns := range b.shared {
		names[i] = ns.Module()
	}
	return names
}

// IsShared reports whether module is in the shared tier.
func (b *Boundary) IsShared(module string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexLocked(module) >= 0
}

// OpenCount returns the number of namespaces that have not been released.
func (b *Boundary) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

func (b *Boundary) indexLocked(module string) int {
	return slices.IndexFunc(b.shared, func(ns *Namespace) bool { return ns.Module() == module })
}

// sharedExcept snapshots the shared tier without self.
func (b *Boundary) sharedExcept(self *Namespace) []*Namespace {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Namespace, 0, len(b.shared))
	for _, ns := range b.shared {
		if ns != self {
			out = append(out, ns)
		}
	}
	return out
}

// probeShared resolves name against the shared tier on behalf of from.
func (b *Boundary) probeShared(from *Namespace, name string) *symbol.Symbol {
	for _, other := range b.sharedExcept(from) {
		sym, err := other.resolveLocal(name)
		if err == nil {
			b.logger.Debug("resolved symbol through shared tier",
				"symbol", name, "module", from.Module(), "exporter", other.Module())
			return sym
		}
		if !errors.Is(err, ErrSymbolNotFound) || errors.Unwrap(err) != nil {
			b.logger.Debug("shared tier probe failed",
				"symbol", name, "exporter", other.Module(), "err", err)
		}
	}
	return nil
}
