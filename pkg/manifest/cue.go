// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/modrt/modrt/pkg/cueutil"
)

//go:embed module_schema.cue
var moduleSchema string

// ParseCUE validates a module.cue document against the #Module schema and
// flattens its top-level fields into a Map.
func ParseCUE(data []byte, filename string) (Map, error) {
	value, err := cueutil.Unify(moduleSchema, data, "#Module", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}

	fields, err := value.Fields()
	if err != nil {
		return nil, cueutil.FormatError(err, filename)
	}

	m := Map{}
	for fields.Next() {
		key := fields.Selector().Unquoted()
		v, err := cueScalarOrList(fields.Value())
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", filename, key, err)
		}
		if v != nil {
			m[key] = v
		}
	}
	return m, nil
}

// cueScalarOrList converts a concrete CUE value into string or []string.
// Structs and non-concrete values yield nil and are skipped.
func cueScalarOrList(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		if !v.IsConcrete() {
			return nil, nil
		}
		return fmt.Sprint(v), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return fmt.Sprint(b), nil
	case cue.ListKind:
		it, err := v.List()
		if err != nil {
			return nil, err
		}
		items := []string{}
		for it.Next() {
			s, err := it.Value().String()
			if err != nil {
				return nil, fmt.Errorf("list items must be strings: %w", err)
			}
			items = append(items, s)
		}
		return items, nil
	default:
		return nil, nil
	}
}
