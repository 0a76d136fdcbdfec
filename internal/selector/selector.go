// Package selector decides which fetched playlist items still need
// processing. Pure diffing, no I/O.
package selector

import "lingowatch/internal/source"

// SelectNew returns the items whose identifiers are not yet recorded as
// processed, preserving the fetch order. Duplicate identifiers within one
// fetch are returned once.
func SelectNew(items []source.Item, contains func(id string) bool) []source.Item {
	selected := make([]source.Item, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" || seen[item.ID] || contains(item.ID) {
			continue
		}
		seen[item.ID] = true
		selected = append(selected, item)
	}
	return selected
}
