// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"errors"
	"fmt"
)

var (
	// ErrSymbolNotFound is the sentinel error matched by SymbolNotFoundError.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrNotEligible is the sentinel error wrapped by NotEligibleError.
	ErrNotEligible = errors.New("namespace not eligible for the shared tier")

	// ErrAlreadyAdmitted is returned when a module is admitted to the shared
	// tier twice.
	ErrAlreadyAdmitted = errors.New("module already admitted to the shared tier")

	// ErrReleased is returned when a released namespace is used.
	ErrReleased = errors.New("namespace released")
)

type (
	// SymbolNotFoundError is returned when no resolution step produced a symbol.
	SymbolNotFoundError struct {
		Name   string
		Module string
		// Cause is set when a forced resolution failed rather than missed.
		Cause error
	}

	// NotEligibleError explains why a namespace cannot join the shared tier.
	NotEligibleError struct {
		Module string
		Reason string
	}
)

// Error implements the error interface.
func (e *SymbolNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("symbol %s not found in module %s: %v", e.Name, e.Module, e.Cause)
	}
	return fmt.Sprintf("symbol %s not found in module %s", e.Name, e.Module)
}

// Is reports whether target is ErrSymbolNotFound.
func (e *SymbolNotFoundError) Is(target error) bool { return target == ErrSymbolNotFound }

// Unwrap returns the forced-resolution failure, if any.
func (e *SymbolNotFoundError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("module %s cannot be shared: %s", e.Module, e.Reason)
}

// Unwrap returns ErrNotEligible so callers can use errors.Is for programmatic detection.
func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }
