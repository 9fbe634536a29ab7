// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is an error with context for user-facing error messages:
	// what operation failed, what resource was involved, and how to fix it.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load module").
	//		WithResource("./modules/greeter").
	//		WithSuggestion("Run 'modrt inspect ./modules/greeter'").
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "load module" or "discover modules".
		Operation string

		// Resource identifies the file, directory or module involved (optional).
		Resource string

		// Suggestions are hints on how to fix the issue (optional).
		Suggestions []string

		// Issue selects the catalog page rendered in verbose mode. Zero means
		// the page is looked up from Cause with ForError.
		Issue Id

		// Cause is the underlying error (optional).
		Cause error
	}

	// ErrorContext is a builder for ActionableError values.
	ErrorContext struct {
		operation   string
		resource    string
		suggestions []string
		issue       Id
		cause       error
	}
)

// NewErrorContext creates a new ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithContext wraps an error with operation and resource context.
// It returns nil for a nil err.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{
		Operation: operation,
		Resource:  resource,
		Cause:     err,
	}
}

// Error returns the concise, single-line message:
//
//	failed to <operation>: <resource>: <cause>
func (e *ActionableError) Error() string {
	var msg strings.Builder

	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}

	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap returns the underlying cause error for use with errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format returns the message followed by its suggestions. In verbose mode the
// full error chain is appended.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder

	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			depth++
		}
	}

	return msg.String()
}

// CatalogIssue returns the issue page for e: the explicit Issue if set,
// otherwise the one matching Cause.
func (e *ActionableError) CatalogIssue() *Issue {
	if e.Issue != 0 {
		return Get(e.Issue)
	}
	return ForError(e.Cause)
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion adds a suggestion. Can be called multiple times.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// WithIssue pins the catalog page shown in verbose mode.
func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.issue = id
	return c
}

// Wrap sets the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build creates an ActionableError. Returns nil if no operation is set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}

	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: append([]string(nil), c.suggestions...),
		Issue:       c.issue,
		Cause:       c.cause,
	}
}

// BuildError is Build returning the error interface, nil if no operation is set.
func (c *ErrorContext) BuildError() error {
	ae := c.Build()
	if ae == nil {
		return nil
	}
	return ae
}

// Explain formats err for the terminal. Actionable errors are formatted with
// their suggestions; in verbose mode the matching catalog page is rendered
// below the message using style.
func Explain(err error, verbose bool, style string) string {
	if err == nil {
		return ""
	}

	var (
		msg  string
		page *Issue
	)
	var ae *ActionableError
	if errors.As(err, &ae) {
		msg = ae.Format(verbose)
		page = ae.CatalogIssue()
	} else {
		msg = err.Error()
		page = ForError(err)
	}

	if !verbose || page == nil {
		return msg
	}
	rendered, renderErr := page.Render(style)
	if renderErr != nil {
		return msg
	}
	return msg + "\n" + rendered
}
