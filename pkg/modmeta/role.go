// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"slices"
	"strings"
)

const (
	// RoleSpecification marks a module that exports shared symbols (an API).
	RoleSpecification Role = iota + 1
	// RoleImplementation marks a module that implements a capability.
	RoleImplementation
	// RoleRegular marks a module that is neither.
	RoleRegular
)

type (
	// Role classifies a module by the suffix of its declared name.
	// The zero value is not a valid role.
	Role int
)

var (
	// rolePriority is the order in which suffixes are matched. The first role
	// with a matching suffix wins.
	rolePriority = []Role{RoleSpecification, RoleImplementation, RoleRegular}

	roleSuffixes = map[Role][]string{
		RoleSpecification:  {"-api", "-spec", "-specification"},
		RoleImplementation: {"-impl", "-implementation"},
		RoleRegular:        nil,
	}
)

// String returns a lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleSpecification:
		return "specification"
	case RoleImplementation:
		return "implementation"
	case RoleRegular:
		return "regular"
	default:
		return "unknown"
	}
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	return r >= RoleSpecification && r <= RoleRegular
}

// Suffixes returns a copy of the name suffixes recognized for r, in match order.
func (r Role) Suffixes() []string {
	return slices.Clone(roleSuffixes[r])
}

// ClassifyRole derives a role from a module's declared name. Names that end
// in none of the known suffixes are regular.
func ClassifyRole(rawName string) (Role, error) {
	if rawName == "" {
		return 0, &InvalidArgumentError{Argument: "name", Reason: "must not be empty"}
	}
	for _, role := range rolePriority {
		for _, suffix := range roleSuffixes[role] {
			if strings.HasSuffix(rawName, suffix) {
				return role, nil
			}
		}
	}
	return RoleRegular, nil
}

// Strip removes the first suffix belonging to r from the end of rawName.
// Only a literal match at the end of the string is removed; suffixes of
// other roles and occurrences elsewhere in the name are left alone.
func (r Role) Strip(rawName string) string {
	for _, suffix := range roleSuffixes[r] {
		if trimmed, ok := strings.CutSuffix(rawName, suffix); ok {
			return trimmed
		}
	}
	return rawName
}
