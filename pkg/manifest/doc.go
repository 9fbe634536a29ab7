// SPDX-License-Identifier: MPL-2.0

// Package manifest reads module metadata files into a flat key/value view.
//
// A module directory carries exactly one manifest named "module" with one of
// the supported extensions:
//
//	module.cue   CUE, validated against an embedded #Module schema
//	module.toml  TOML
//	module.yaml  YAML (also module.yml)
//	module.hcl   HCL attributes
//
// Whatever the format, the result is a [Reader]: scalar values are looked up
// with [Reader.Lookup], list values with [Reader.LookupList]. A scalar read
// as a list is decoded with [DecodeList], so
//
//	dependencies: "logging, storage-api"
//
// and
//
//	dependencies: ["logging", "storage-api"]
//
// are equivalent.
package manifest
