// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
	ErrInvalidVersion = errors.New("invalid version format")

	// ErrInvalidArgument is the sentinel error wrapped by InvalidArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedDescriptor is the sentinel error wrapped by MalformedDescriptorError.
	ErrMalformedDescriptor = errors.New("malformed module descriptor")
)

type (
	// InvalidVersionError is returned when a version string cannot be parsed.
	InvalidVersionError struct {
		Value  string
		Reason string
	}

	// InvalidArgumentError is returned when a required input is absent or empty.
	InvalidArgumentError struct {
		Argument string
		Reason   string
	}

	// MalformedDescriptorError reports a descriptor that cannot describe a
	// loadable module: a required field is missing or invalid, or its entry
	// point does not resolve to an instantiable module type.
	MalformedDescriptorError struct {
		// Module is the canonical name when known, otherwise the location.
		Module string
		Reason string
		Cause  error
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// Unwrap returns ErrInvalidArgument so callers can use errors.Is for programmatic detection.
func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// Error implements the error interface.
func (e *MalformedDescriptorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("module %s: %s: %v", e.Module, e.Reason, e.Cause)
	}
	return fmt.Sprintf("module %s: %s", e.Module, e.Reason)
}

// Is reports whether target is ErrMalformedDescriptor.
func (e *MalformedDescriptorError) Is(target error) bool {
	return target == ErrMalformedDescriptor
}

// Unwrap returns the underlying cause, if any.
func (e *MalformedDescriptorError) Unwrap() error { return e.Cause }

// Malformed builds a MalformedDescriptorError.
func Malformed(module, reason string, cause error) *MalformedDescriptorError {
	return &MalformedDescriptorError{Module: module, Reason: reason, Cause: cause}
}
