// SPDX-License-Identifier: MPL-2.0

package symbol

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type (
	// Table is an in-process Provider. Each location maps to a set of
	// symbols registered ahead of time, typically from init functions of
	// compiled-in modules.
	//
	// Symbols registered with RegisterLazy are not visible to Lookup until
	// a Force call has materialized them.
	Table struct {
		mu        sync.RWMutex
		locations map[string]*entries
	}

	entries struct {
		eager map[string]*Symbol
		lazy  map[string]*lazySymbol
	}

	lazySymbol struct {
		once sync.Once
		fn   func() (*Symbol, error)
		sym  *Symbol
		err  error
	}

	tableSource struct {
		location string
		entries  *entries
		mu       *sync.RWMutex
	}
)

// Default is the process-wide table used by Register.
var Default = NewTable()

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{locations: make(map[string]*entries)}
}

// Register adds symbols to the Default table under location.
func Register(location string, syms ...*Symbol) {
	Default.Register(location, syms...)
}

// Register adds symbols under location. It panics when a symbol is nil,
// unnamed or already registered at that location.
func (t *Table) Register(location string, syms ...*Symbol) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entriesLocked(location)
	for _, s := range syms {
		if s == nil || s.Name == "" {
			panic(fmt.Sprintf("symbol: invalid symbol registered at %q", location))
		}
		if e.has(s.Name) {
			panic(fmt.Sprintf("symbol: %s registered twice at %q", s.Name, location))
		}
		cp := *s
		if cp.Origin == "" {
			cp.Origin = location
		}
		e.eager[s.Name] = &cp
	}
}

// RegisterLazy adds a symbol whose definition is produced by fn the first
// time it is forced. fn runs at most once per table.
func (t *Table) RegisterLazy(location, name string, fn func() (*Symbol, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" || fn == nil {
		panic(fmt.Sprintf("symbol: invalid lazy symbol registered at %q", location))
	}
	e := t.entriesLocked(location)
	if e.has(name) {
		panic(fmt.Sprintf("symbol: %s registered twice at %q", name, location))
	}
	e.lazy[name] = &lazySymbol{fn: fn}
}

func (t *Table) entriesLocked(location string) *entries {
	e, ok := t.locations[location]
	if !ok {
		e = &entries{eager: make(map[string]*Symbol), lazy: make(map[string]*lazySymbol)}
		t.locations[location] = e
	}
	return e
}

func (e *entries) has(name string) bool {
	_, eager := e.eager[name]
	_, lazy := e.lazy[name]
	return eager || lazy
}

// Locations returns every registered location, sorted.
func (t *Table) Locations() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	locs := make([]string, 0, len(t.locations))
	for loc := range t.locations {
		locs = append(locs, loc)
	}
	slices.Sort(locs)
	return locs
}

// Accepts implements Provider.
func (t *Table) Accepts(location string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.locations[location]
	return ok
}

// Open implements Provider. Sources opened from a table share its entries,
// so a lazy symbol forced through one source is visible to the others.
func (t *Table) Open(_ context.Context, location string) (Source, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.locations[location]
	if !ok {
		return nil, &NoProviderError{Location: location}
	}
	return &tableSource{location: location, entries: e, mu: &t.mu}, nil
}

func (s *tableSource) Lookup(name string) (*Symbol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sym, ok := s.entries.eager[name]; ok {
		return sym, true
	}
	if l, ok := s.entries.lazy[name]; ok && l.sym != nil {
		return l.sym, true
	}
	return nil, false
}

func (s *tableSource) Force(name string) (*Symbol, error) {
	s.mu.RLock()
	l, ok := s.entries.lazy[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	l.once.Do(func() {
		sym, err := l.fn()
		if err == nil && sym != nil {
			cp := *sym
			cp.Name = name
			if cp.Origin == "" {
				cp.Origin = s.location
			}
			sym = &cp
		}
		s.mu.Lock()
		l.sym, l.err = sym, err
		s.mu.Unlock()
	})
	return l.sym, l.err
}

func (s *tableSource) Close() error { return nil }
