// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrLoadCancelled is the sentinel error wrapped by CancelledError.
	ErrLoadCancelled = errors.New("module load cancelled")

	// ErrHookFailed is the sentinel error matched by HookError.
	ErrHookFailed = errors.New("module hook failed")

	// ErrInvalidState is the sentinel error wrapped by StateError.
	ErrInvalidState = errors.New("invalid module state")
)

type (
	// CancelledError is returned when a pre-load observer vetoes a load.
	CancelledError struct {
		Module string
		// Reasons holds every cancellation reason, in the order given.
		Reasons []string
	}

	// HookError reports a lifecycle hook that returned an error or panicked.
	HookError struct {
		Module string
		Hook   string
		Err    error
	}

	// StateError is returned for a transition the instance cannot make.
	StateError struct {
		Module string
		Op     string
		State  State
	}
)

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("loading module %s cancelled: %s", e.Module, strings.Join(e.Reasons, "; "))
}

// Unwrap returns ErrLoadCancelled so callers can use errors.Is for programmatic detection.
func (e *CancelledError) Unwrap() error { return ErrLoadCancelled }

func newCancelledError(module string, reasons []string) *CancelledError {
	return &CancelledError{Module: module, Reasons: slices.Clone(reasons)}
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("module %s: %s failed: %v", e.Module, e.Hook, e.Err)
}

// Is reports whether target is ErrHookFailed.
func (e *HookError) Is(target error) bool { return target == ErrHookFailed }

// Unwrap returns the hook's error.
func (e *HookError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s module %s: instance is %s", e.Op, e.Module, e.State)
}

// Unwrap returns ErrInvalidState so callers can use errors.Is for programmatic detection.
func (e *StateError) Unwrap() error { return ErrInvalidState }
