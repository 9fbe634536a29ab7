// SPDX-License-Identifier: MPL-2.0

package modmeta

import (
	"strings"

	"github.com/modrt/modrt/pkg/manifest"
)

// Manifest keys read by Extract.
const (
	KeyName                 = "name"
	KeyVersion              = "version"
	KeyMain                 = "main"
	KeyEntryPoint           = "entryPoint"
	KeyDisplayName          = "display-name"
	KeyDependencies         = "dependencies"
	KeyOptionalDependencies = "optional-dependencies"
	KeyAuthors              = "authors"
)

// Extract builds a validated descriptor for the module at location from its
// raw metadata. Required keys are name, version and one of main/entryPoint;
// display-name, dependencies, optional-dependencies and authors are optional.
//
// Every validation failure is reported as a *MalformedDescriptorError naming
// the location. Extract performs no I/O of its own.
func Extract(location string, meta manifest.Reader) (*Descriptor, error) {
	if location == "" {
		return nil, &InvalidArgumentError{Argument: "location", Reason: "must not be empty"}
	}
	if meta == nil {
		return nil, &InvalidArgumentError{Argument: "metadata", Reason: "must not be nil"}
	}

	rawName, ok := meta.Lookup(KeyName)
	if !ok {
		return nil, Malformed(location, "missing name attribute", nil)
	}
	rawVersion, ok := meta.Lookup(KeyVersion)
	if !ok {
		return nil, Malformed(location, "missing version attribute", nil)
	}
	entryPoint, ok := meta.Lookup(KeyMain)
	if !ok {
		entryPoint, ok = meta.Lookup(KeyEntryPoint)
	}
	entryPoint = strings.TrimSpace(entryPoint)
	if !ok || entryPoint == "" {
		return nil, Malformed(location, "missing main attribute", nil)
	}

	rawName = strings.TrimSpace(rawName)
	role, err := ClassifyRole(rawName)
	if err != nil {
		return nil, Malformed(location, "invalid name attribute", err)
	}
	name := role.Strip(rawName)
	if name == "" {
		return nil, Malformed(location, "name "+rawName+" has an empty canonical name", nil)
	}

	version, err := ParseVersion(strings.TrimSpace(rawVersion))
	if err != nil {
		return nil, Malformed(location, "invalid version attribute", err)
	}

	d := &draft{
		location:             location,
		name:                 name,
		displayName:          strings.TrimSpace(manifest.String(meta, KeyDisplayName, "")),
		version:              &version,
		entryPoint:           entryPoint,
		role:                 role,
		dependencies:         orderedSet(manifest.Strings(meta, KeyDependencies, nil)),
		optionalDependencies: orderedSet(manifest.Strings(meta, KeyOptionalDependencies, nil)),
	}
	if d.displayName == "" {
		d.displayName = name
	}
	if authors, ok := meta.LookupList(KeyAuthors); ok {
		d.authors = orderedSet(authors)
		d.hasAuthors = true
	}

	return d.freeze(), nil
}

// orderedSet trims items, drops empty ones and keeps the first occurrence of
// each remaining item.
func orderedSet(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
