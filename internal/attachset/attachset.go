// Package attachset converts between ordered item lists and the single
// delimited string persisted in a lab column.
package attachset

import "strings"

// Separator joins items inside one persisted column.
const Separator = " - "

// Encode joins non-empty items with Separator. An empty list encodes to "".
func Encode(items []string) string {
	if len(items) == 0 {
		return ""
	}
	kept := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		kept = append(kept, item)
	}
	return strings.Join(kept, Separator)
}

// Decode splits an encoded column back into its items, dropping empty fragments.
func Decode(encoded string) []string {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	parts := strings.Split(encoded, Separator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Remove returns items without the first occurrence of target and whether it was present.
func Remove(items []string, target string) ([]string, bool) {
	target = strings.TrimSpace(target)
	for i, item := range items {
		if item != target {
			continue
		}
		out := make([]string, 0, len(items)-1)
		out = append(out, items[:i]...)
		return append(out, items[i+1:]...), true
	}
	return items, false
}
