// SPDX-License-Identifier: MPL-2.0

// Package services is the capability registry shared by loaded modules.
//
// A capability is an interface type. At most one implementation is
// registered per capability; the registering module is recorded as its
// owner so every registration of a module can be revoked when it unloads.
// Every operation holds a single registry-wide lock.
package services

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrImplementationConflict is the sentinel error wrapped by ConflictError.
	ErrImplementationConflict = errors.New("implementation already registered")

	// ErrMissingImplementation is the sentinel error wrapped by MissingError.
	ErrMissingImplementation = errors.New("no implementation registered")

	// ErrInvalidCapability is returned when a capability is not an interface
	// type or the implementation does not satisfy it.
	ErrInvalidCapability = errors.New("invalid capability")
)

type (
	// Registry maps capability types to their single implementation.
	// The zero value is ready to use.
	Registry struct {
		mu      sync.Mutex
		entries map[reflect.Type]Registration
	}

	// Registration is one capability entry.
	Registration struct {
		Capability     reflect.Type
		Owner          string
		Implementation any
	}

	// ConflictError is returned by Define when the capability already has an
	// implementation.
	ConflictError struct {
		Capability reflect.Type
		// Owner is the module holding the existing registration.
		Owner string
	}

	// MissingError is returned by Get when the capability has no implementation.
	MissingError struct {
		Capability reflect.Type
	}

	// InvalidCapabilityError describes why a Define call was rejected.
	InvalidCapabilityError struct {
		Capability reflect.Type
		Reason     string
	}
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("implementation of %v already registered by %s", e.Capability, e.Owner)
}

// Unwrap returns ErrImplementationConflict so callers can use errors.Is for programmatic detection.
func (e *ConflictError) Unwrap() error { return ErrImplementationConflict }

// Error implements the error interface.
func (e *MissingError) Error() string {
	return fmt.Sprintf("no implementation registered for %v", e.Capability)
}

// Unwrap returns ErrMissingImplementation so callers can use errors.Is for programmatic detection.
func (e *MissingError) Unwrap() error { return ErrMissingImplementation }

// Error implements the error interface.
func (e *InvalidCapabilityError) Error() string {
	return fmt.Sprintf("invalid capability %v: %s", e.Capability, e.Reason)
}

// Unwrap returns ErrInvalidCapability so callers can use errors.Is for programmatic detection.
func (e *InvalidCapabilityError) Unwrap() error { return ErrInvalidCapability }

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Define registers impl as the implementation of capability on behalf of
// owner. capability must be an interface type implemented by impl.
func (r *Registry) Define(owner string, capability reflect.Type, impl any) error {
	if err := checkCapability(capability, impl); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[capability]; ok {
		return &ConflictError{Capability: capability, Owner: existing.Owner}
	}
	if r.entries == nil {
		r.entries = make(map[reflect.Type]Registration)
	}
	r.entries[capability] = Registration{Capability: capability, Owner: owner, Implementation: impl}
	return nil
}

func checkCapability(capability reflect.Type, impl any) error {
	switch {
	case capability == nil:
		return &InvalidCapabilityError{Reason: "capability type is nil"}
	case capability.Kind() != reflect.Interface:
		return &InvalidCapabilityError{Capability: capability, Reason: "not an interface type"}
	case impl == nil:
		return &InvalidCapabilityError{Capability: capability, Reason: "implementation is nil"}
	case !reflect.TypeOf(impl).Implements(capability):
		return &InvalidCapabilityError{
			Capability: capability,
			Reason:     fmt.Sprintf("%T does not implement it", impl),
		}
	}
	return nil
}

// Get returns the implementation registered for capability.
func (r *Registry) Get(capability reflect.Type) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[capability]
	if !ok {
		return nil, &MissingError{Capability: capability}
	}
	return e.Implementation, nil
}

// Owner returns the module that registered capability.
func (r *Registry) Owner(capability reflect.Type) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[capability]
	return e.Owner, ok
}

// Revoke removes the registration for capability. It reports whether one
// existed.
func (r *Registry) Revoke(capability reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[capability]
	delete(r.entries, capability)
	return ok
}

// RevokeAll removes every registration owned by owner and returns how many
// were removed.
func (r *Registry) RevokeAll(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for capability, e := range r.entries {
		if e.Owner == owner {
			delete(r.entries, capability)
			n++
		}
	}
	return n
}

// Registrations returns a snapshot of every registration ordered by
// capability name.
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Registration, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Registration) int {
		return strings.Compare(a.Capability.String(), b.Capability.String())
	})
	return out
}

// Define registers impl as the implementation of capability T.
func Define[T any](r *Registry, owner string, impl T) error {
	return r.Define(owner, reflect.TypeFor[T](), impl)
}

// Get returns the implementation of capability T.
func Get[T any](r *Registry) (T, error) {
	var zero T
	v, err := r.Get(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	impl, ok := v.(T)
	if !ok {
		return zero, &InvalidCapabilityError{
			Capability: reflect.TypeFor[T](),
			Reason:     fmt.Sprintf("registered %T does not implement it", v),
		}
	}
	return impl, nil
}

// Revoke removes the registration for capability T.
func Revoke[T any](r *Registry) bool {
	return r.Revoke(reflect.TypeFor[T]())
}
