// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the modrt CLI and a catalog of
// Markdown issue pages, rendered with glamour, for well-known module runtime
// failures.
package issue
