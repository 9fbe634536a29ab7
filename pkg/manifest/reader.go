// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"slices"
	"sort"
)

type (
	// Reader is a read-only key/value view of module metadata.
	Reader interface {
		// Lookup returns the scalar stored under key. List values are
		// returned in their encoded form (see EncodeList).
		Lookup(key string) (string, bool)
		// LookupList returns the list stored under key. Scalar values are
		// decoded with DecodeList.
		LookupList(key string) ([]string, bool)
	}

	// Map is an in-memory Reader. Values must be string or []string; any
	// other value is formatted with fmt.Sprint when read as a scalar.
	Map map[string]any

	layered []Reader
)

// Lookup implements Reader.
func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []string:
		return EncodeList(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// LookupList implements Reader.
func (m Map) LookupList(key string) ([]string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	switch val := v.(type) {
	case []string:
		return slices.Clone(val), true
	case string:
		return DecodeList(val), true
	default:
		return DecodeList(fmt.Sprint(val)), true
	}
}

// Keys returns the keys present in m, sorted.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Layered returns a Reader that consults readers in order and answers from
// the first one that has the key. Nil readers are skipped. It is used to put
// host-wide defaults underneath a module's own manifest.
func Layered(readers ...Reader) Reader {
	l := make(layered, 0, len(readers))
	for _, r := range readers {
		if r != nil {
			l = append(l, r)
		}
	}
	return l
}

func (l layered) Lookup(key string) (string, bool) {
	for _, r := range l {
		if v, ok := r.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

func (l layered) LookupList(key string) ([]string, bool) {
	for _, r := range l {
		if v, ok := r.LookupList(key); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns the scalar under key, or fallback when absent.
func String(r Reader, key, fallback string) string {
	if v, ok := r.Lookup(key); ok {
		return v
	}
	return fallback
}

// Strings returns the list under key, or fallback when absent. A nil
// fallback lets callers distinguish an absent key from an empty list.
func Strings(r Reader, key string, fallback []string) []string {
	if v, ok := r.LookupList(key); ok {
		return v
	}
	return fallback
}
