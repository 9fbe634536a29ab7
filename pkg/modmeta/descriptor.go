// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"fmt"
	"slices"
)

type (
	// Descriptor is the immutable identity record of a module. Instances are
	// produced by [Extract]; all accessors return copies.
	//
	// The zero value is not valid. Use [Descriptor.Valid] before acting on a
	// descriptor obtained from outside this package.
	Descriptor struct {
		d draft
	}

	// draft is the mutable form used while a descriptor is being assembled.
	// It never leaves this package.
	draft struct {
		location             string
		name                 string
		displayName          string
		version              *Version
		entryPoint           string
		role                 Role
		dependencies         []string
		optionalDependencies []string
		authors              []string
		hasAuthors           bool
	}
)

// freeze wraps a copy of the draft in a read-only Descriptor.
func (d *draft) freeze() *Descriptor {
	frozen := draft{
		location:             d.location,
		name:                 d.name,
		displayName:          d.displayName,
		entryPoint:           d.entryPoint,
		role:                 d.role,
		dependencies:         cloneNonNil(d.dependencies),
		optionalDependencies: cloneNonNil(d.optionalDependencies),
		hasAuthors:           d.hasAuthors,
	}
	if d.version != nil {
		v := *d.version
		frozen.version = &v
	}
	if d.hasAuthors {
		frozen.authors = cloneNonNil(d.authors)
	}
	return &Descriptor{d: frozen}
}

func cloneNonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// Location is the origin the module's code is loaded from (a directory,
// archive path or a registered symbol-table location).
func (m *Descriptor) Location() string { return m.d.location }

// Name is the canonical module name: the declared name without its role suffix.
func (m *Descriptor) Name() string { return m.d.name }

// DisplayName is the human-readable name. It defaults to Name.
func (m *Descriptor) DisplayName() string { return m.d.displayName }

// Version returns the module version.
func (m *Descriptor) Version() Version {
	if m.d.version == nil {
		return Version{}
	}
	return *m.d.version
}

// EntryPoint is the fully-qualified symbol name of the module's main type.
func (m *Descriptor) EntryPoint() string { return m.d.entryPoint }

// Role is the role derived from the declared name.
func (m *Descriptor) Role() Role { return m.d.role }

// Dependencies returns the canonical names of required modules, in
// declaration order.
func (m *Descriptor) Dependencies() []string { return slices.Clone(m.d.dependencies) }

// OptionalDependencies returns the canonical names of optional modules, in
// declaration order.
func (m *Descriptor) OptionalDependencies() []string {
	return slices.Clone(m.d.optionalDependencies)
}

// Authors returns the declared authors and whether the field was present.
func (m *Descriptor) Authors() ([]string, bool) {
	if !m.d.hasAuthors {
		return nil, false
	}
	return slices.Clone(m.d.authors), true
}

// Valid reports whether every field a loader relies on is present.
// A nil descriptor is not valid.
func (m *Descriptor) Valid() bool {
	return m != nil &&
		m.d.location != "" &&
		m.d.name != "" &&
		m.d.displayName != "" &&
		m.d.version != nil &&
		m.d.entryPoint != "" &&
		m.d.role.IsValid() &&
		m.d.dependencies != nil &&
		m.d.optionalDependencies != nil
}

// Equal reports whether two descriptors identify the same module release:
// same canonical name, role and version.
func (m *Descriptor) Equal(o *Descriptor) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.d.name == o.d.name &&
		m.d.role == o.d.role &&
		m.Version().Compare(o.Version()) == 0
}

// String returns "name@version (role)".
func (m *Descriptor) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%s (%s)", m.d.name, m.Version(), m.d.role)
}
