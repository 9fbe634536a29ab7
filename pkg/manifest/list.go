// SPDX-License-Identifier: MPL-2.0

package manifest

import "strings"

const (
	listSeparator = ','
	listEscape    = '\''
)

// DecodeList splits a comma-separated scalar into trimmed items.
// A single quote escapes the character that follows it, so "','" is a
// literal comma and "''" a literal quote. An empty input yields an empty list.
func DecodeList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	var (
		items   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == listEscape:
			escaped = true
		case r == listSeparator:
			items = append(items, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	// A dangling escape at the end stands for itself.
	if escaped {
		current.WriteRune(listEscape)
	}
	items = append(items, strings.TrimSpace(current.String()))
	return items
}

// EncodeList is the inverse of DecodeList for items without leading or
// trailing whitespace.
func EncodeList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		var b strings.Builder
		for _, r := range item {
			if r == listEscape || r == listSeparator {
				b.WriteRune(listEscape)
			}
			b.WriteRune(r)
		}
		escaped[i] = b.String()
	}
	return strings.Join(escaped, ", ")
}
