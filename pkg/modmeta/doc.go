// SPDX-License-Identifier: MPL-2.0

// Package modmeta describes modules: who they are, which version they carry,
// which role they play and where their entry point lives.
//
// # Version
//
// [Version] is an immutable major.minor.patch triple. [ParseVersion] accepts
// one to three dot-separated non-negative integers; missing trailing
// components default to zero.
//
// # Roles
//
// A module's declared name carries its [Role] as a suffix:
//   - "-api", "-spec", "-specification": [RoleSpecification]. These modules
//     export symbols to every other module once loaded.
//   - "-impl", "-implementation": [RoleImplementation].
//   - anything else: [RoleRegular].
//
// [ClassifyRole] picks the role and [Role.Strip] removes the suffix to yield
// the canonical module name.
//
// # Descriptors
//
// [Extract] reads raw metadata through a [manifest.Reader] and produces a
// validated [Descriptor]. Descriptors are read-only: every accessor returns a
// copy, so a descriptor handed to an event observer or a module cannot be
// changed by the receiver.
package modmeta
