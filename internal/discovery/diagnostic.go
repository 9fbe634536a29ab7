// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a module that was skipped.
	SeverityError Severity = "error"

	// CodeRootMissing: a module root does not exist or is not a directory.
	CodeRootMissing DiagnosticCode = "module_root_missing"
	// CodeRootUnreadable: a module root could not be listed.
	CodeRootUnreadable DiagnosticCode = "module_root_unreadable"
	// CodeManifestMissing: a subdirectory has no manifest and is not a module.
	CodeManifestMissing DiagnosticCode = "manifest_missing"
	// CodeManifestAmbiguous: a subdirectory has more than one manifest.
	CodeManifestAmbiguous DiagnosticCode = "manifest_ambiguous"
	// CodeManifestInvalid: the manifest could not be read or parsed.
	CodeManifestInvalid DiagnosticCode = "manifest_invalid"
	// CodeDescriptorMalformed: the manifest does not describe a module.
	CodeDescriptorMalformed DiagnosticCode = "descriptor_malformed"
	// CodeDuplicateModule: a canonical name was already discovered elsewhere.
	CodeDuplicateModule DiagnosticCode = "duplicate_module"
)

var (
	// ErrInvalidSeverity is the sentinel error wrapped by InvalidSeverityError.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidDiagnosticCode is the sentinel error wrapped by InvalidDiagnosticCodeError.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")

	validCodes = map[DiagnosticCode]bool{
		CodeRootMissing:         true,
		CodeRootUnreadable:      true,
		CodeManifestMissing:     true,
		CodeManifestAmbiguous:   true,
		CodeManifestInvalid:     true,
		CodeDescriptorMalformed: true,
		CodeDuplicateModule:     true,
	}
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// InvalidSeverityError is returned when a Severity value is not recognized.
	InvalidSeverityError struct {
		Value Severity
	}

	// InvalidDiagnosticCodeError is returned when a DiagnosticCode value is not recognized.
	InvalidDiagnosticCodeError struct {
		Value DiagnosticCode
	}

	// Diagnostic is a structured discovery problem returned to callers
	// rather than written to stderr.
	Diagnostic struct {
		Severity Severity
		Code     DiagnosticCode
		Message  string
		// Path is the directory or file involved (optional).
		Path string
		// Cause is the underlying error (optional).
		Cause error
	}
)

// IsValid returns whether the Severity is one of the defined levels.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{&InvalidSeverityError{Value: s}}
	}
}

// Error implements the error interface.
func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("invalid diagnostic severity %q", e.Value)
}

// Unwrap returns ErrInvalidSeverity for errors.Is() compatibility.
func (e *InvalidSeverityError) Unwrap() error { return ErrInvalidSeverity }

// IsValid returns whether the DiagnosticCode is one of the defined codes.
func (c DiagnosticCode) IsValid() (bool, []error) {
	if validCodes[c] {
		return true, nil
	}
	return false, []error{&InvalidDiagnosticCodeError{Value: c}}
}

// Error implements the error interface.
func (e *InvalidDiagnosticCodeError) Error() string {
	return fmt.Sprintf("invalid diagnostic code %q", e.Value)
}

// Unwrap returns ErrInvalidDiagnosticCode for errors.Is() compatibility.
func (e *InvalidDiagnosticCodeError) Unwrap() error { return ErrInvalidDiagnosticCode }

// String formats the diagnostic for a single log line.
func (d Diagnostic) String() string {
	s := string(d.Severity) + " [" + string(d.Code) + "] " + d.Message
	if d.Path != "" {
		s += " (" + d.Path + ")"
	}
	return s
}

func warning(code DiagnosticCode, path, msg string, cause error) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: msg, Path: path, Cause: cause}
}

func failure(code DiagnosticCode, path, msg string, cause error) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Message: msg, Path: path, Cause: cause}
}
