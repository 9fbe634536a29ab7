// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// ParseTOML flattens the top-level keys of a module.toml document into a Map.
// Tables are ignored; arrays must hold strings.
func ParseTOML(data []byte, filename string) (Map, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return flatten(raw, filename)
}

// flatten converts a decoded TOML document into a Map.
func flatten(raw map[string]any, filename string) (Map, error) {
	m := Map{}
	for key, v := range raw {
		switch val := v.(type) {
		case nil, map[string]any:
			continue
		case []any:
			items := make([]string, 0, len(val))
			for i, item := range val {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%s: %s[%d]: list items must be strings, got %T", filename, key, i, item)
				}
				items = append(items, s)
			}
			m[key] = items
		case string:
			m[key] = val
		default:
			m[key] = fmt.Sprint(val)
		}
	}
	return m, nil
}
