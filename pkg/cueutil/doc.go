// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE schema-unification steps shared by module
// manifests and the runtime configuration file:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate the result
//
// # Usage
//
//	//go:embed module_schema.cue
//	var schema string
//
//	value, err := cueutil.Unify(schema, data, "#Module", cueutil.WithFilename("module.cue"))
//	if err != nil {
//	    return nil, err // error carries the CUE path of the offending field
//	}
//
// Callers walk the returned cue.Value themselves; nothing here decodes into
// Go structs because both consumers want a flat key/value view.
package cueutil
