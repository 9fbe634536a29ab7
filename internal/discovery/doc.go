// SPDX-License-Identifier: MPL-2.0

// Package discovery finds modules on disk.
//
// Every immediate subdirectory of a module root that contains a manifest is
// a module. Manifests are parsed and turned into descriptors in parallel;
// problems with individual modules never abort discovery but are returned as
// Diagnostics for the CLI to render.
//
// File organization:
//   - diagnostic.go: Severity, DiagnosticCode and Diagnostic
//   - discovery.go: Discovery, Module and the directory scan
//   - validation.go: load ordering of discovered modules
package discovery
