// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"cmp"
	"strconv"
	"strings"
)

// maxVersionComponents is the number of components in major.minor.patch.
const maxVersionComponents = 3

// Version is an immutable major.minor.patch triple ordered lexicographically.
// The zero value is 0.0.0.
type Version struct {
	major int
	minor int
	patch int
}

// NewVersion returns the version major.minor.patch. All components must be
// non-negative.
func NewVersion(major, minor, patch int) (Version, error) {
	if major < 0 || minor < 0 || patch < 0 {
		return Version{}, &InvalidVersionError{
			Value:  strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch),
			Reason: "components must not be negative",
		}
	}
	return Version{major: major, minor: minor, patch: patch}, nil
}

// ParseVersion parses "major[.minor[.patch]]". Missing trailing components
// are zero. Empty input, more than three components, and components that
// are not non-negative decimal integers are rejected.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, &InvalidVersionError{Value: s, Reason: "must not be empty"}
	}

	parts := strings.Split(s, ".")
	if len(parts) > maxVersionComponents {
		return Version{}, &InvalidVersionError{Value: s, Reason: "must not contain more than three components"}
	}

	var nums [maxVersionComponents]int
	for i, part := range parts {
		n, reason := parseComponent(part)
		if reason != "" {
			return Version{}, &InvalidVersionError{Value: s, Reason: reason}
		}
		nums[i] = n
	}

	return Version{major: nums[0], minor: nums[1], patch: nums[2]}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for
// tests and package-level constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseComponent accepts digits only; strconv.Atoi alone would also accept
// a leading sign. A non-empty reason reports why part was rejected.
func parseComponent(part string) (int, string) {
	if part == "" {
		return 0, "empty component"
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, "component " + strconv.Quote(part) + " is not a non-negative integer"
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, "component " + strconv.Quote(part) + " is out of range"
	}
	return n, ""
}

// Major returns the major component.
func (v Version) Major() int { return v.major }

// Minor returns the minor component.
func (v Version) Minor() int { return v.minor }

// Patch returns the patch component.
func (v Version) Patch() int { return v.patch }

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after o.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.major, o.major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.minor, o.minor); c != 0 {
		return c
	}
	return cmp.Compare(v.patch, o.patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// String returns the canonical "major.minor.patch" form.
func (v Version) String() string {
	return strconv.Itoa(v.major) + "." + strconv.Itoa(v.minor) + "." + strconv.Itoa(v.patch)
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
