// SPDX-License-Identifier: MPL-2.0

// Package symbol defines what a module namespace resolves: named symbols
// carrying a Go type and, for instantiable ones, a zero-argument constructor.
//
// A [Provider] opens a [Source] for a module location. Sources answer
// [Source.Lookup] from what they have already materialized; sources that can
// do more work on demand (compile interpreted code, run a lazy factory) also
// implement [Forcer].
//
// [Table] is the in-process provider: compiled-in modules register their
// entry points under a location at init time.
package symbol

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// ErrNoProvider is returned when no provider accepts a module location.
var ErrNoProvider = errors.New("no symbol provider for location")

type (
	// Symbol is a resolved, named definition.
	Symbol struct {
		// Name is the fully-qualified symbol name, e.g. "example.com/store.New".
		Name string
		// Type is the type of the values New produces, or the declared type
		// for symbols without a constructor.
		Type reflect.Type
		// Abstract marks a type that cannot be instantiated directly, such as
		// an interface.
		Abstract bool
		// New is the zero-argument constructor. Nil when the symbol has no
		// accessible zero-argument constructor.
		New func() (any, error)
		// Origin names the source the symbol came from.
		Origin string
	}

	// Source resolves symbols defined at one module location.
	Source interface {
		// Lookup returns the symbol if it is already available without
		// further work.
		Lookup(name string) (*Symbol, bool)
		// Close releases any resources held by the source.
		Close() error
	}

	// Forcer is implemented by sources that can materialize a symbol on
	// demand. Force is only consulted after Lookup has missed. A nil symbol
	// with a nil error means the source does not define name.
	Forcer interface {
		Force(name string) (*Symbol, error)
	}

	// Provider opens sources for the module locations it understands.
	Provider interface {
		Accepts(location string) bool
		Open(ctx context.Context, location string) (Source, error)
	}

	// NoProviderError is returned when no provider accepts a location.
	NoProviderError struct {
		Location string
	}
)

// Error implements the error interface.
func (e *NoProviderError) Error() string {
	return fmt.Sprintf("no symbol provider for location %q", e.Location)
}

// Unwrap returns ErrNoProvider so callers can use errors.Is for programmatic detection.
func (e *NoProviderError) Unwrap() error { return ErrNoProvider }

// Instantiable reports whether s can produce values.
func (s *Symbol) Instantiable() bool {
	return s != nil && !s.Abstract && s.New != nil
}

// Implements reports whether values of s satisfy the interface iface. Both
// the symbol type and a pointer to it are considered.
func (s *Symbol) Implements(iface reflect.Type) bool {
	if s == nil || s.Type == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	if s.Type.Implements(iface) {
		return true
	}
	return s.Type.Kind() != reflect.Pointer && s.Type.Kind() != reflect.Interface &&
		reflect.PointerTo(s.Type).Implements(iface)
}

// String returns the symbol name and type.
func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%v)", s.Name, s.Type)
}

// Constructor returns a symbol for a zero-argument constructor of T.
func Constructor[T any](name string, fn func() T) *Symbol {
	return &Symbol{
		Name: name,
		Type: reflect.TypeFor[T](),
		New: func() (any, error) {
			return fn(), nil
		},
	}
}

// ConstructorE is like Constructor for constructors that may fail.
func ConstructorE[T any](name string, fn func() (T, error)) *Symbol {
	return &Symbol{
		Name: name,
		Type: reflect.TypeFor[T](),
		New: func() (any, error) {
			return fn()
		},
	}
}

// Type returns a symbol that only declares T. Interface types are abstract;
// other types have no constructor.
func Type[T any](name string) *Symbol {
	t := reflect.TypeFor[T]()
	return &Symbol{
		Name:     name,
		Type:     t,
		Abstract: t.Kind() == reflect.Interface,
	}
}
