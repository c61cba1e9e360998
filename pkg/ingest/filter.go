package ingest

import "strings"

// PrefixFilter passes only chat events whose comment starts with prefix.
// An empty prefix passes everything. Gift events are never filtered.
func PrefixFilter(prefix string, next func(ChatEvent)) func(ChatEvent) {
	if prefix == "" {
		return next
	}

	return func(ev ChatEvent) {
		if strings.HasPrefix(ev.Comment, prefix) {
			next(ev)
		}
	}
}
