// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML flattens the top-level keys of a module.yaml document into a Map.
// Scalars keep their source text, so "version: 1.10" stays "1.10" rather than
// becoming the float 1.1.
func ParseYAML(data []byte, filename string) (Map, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	m := Map{}
	for key, node := range raw {
		switch node.Kind {
		case yaml.ScalarNode:
			if node.Tag == "!!null" {
				continue
			}
			m[key] = node.Value
		case yaml.SequenceNode:
			items := make([]string, 0, len(node.Content))
			for i, item := range node.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("%s:%d: %s[%d]: list items must be scalars", filename, item.Line, key, i)
				}
				items = append(items, item.Value)
			}
			m[key] = items
		}
	}
	return m, nil
}
