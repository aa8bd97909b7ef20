package helpers

import (
	"strings"
)

// SplitTitleOnce splits a title at the first occurrence of any of the given
// delimiters and returns base and suffix, both trimmed. ok is false when no
// delimiter splits the title into two non-empty parts.
func SplitTitleOnce(title string, delimiters []string) (base, suffix string, ok bool) {
	bestIdx := -1
	bestDelim := ""
	for _, d := range delimiters {
		if idx := strings.Index(title, d); idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			bestIdx = idx
			bestDelim = d
		}
	}
	if bestIdx < 0 {
		return "", "", false
	}
	base = strings.TrimSpace(title[:bestIdx])
	suffix = strings.TrimSpace(title[bestIdx+len(bestDelim):])
	if base == "" || suffix == "" {
		return "", "", false
	}
	return base, suffix, true
}
