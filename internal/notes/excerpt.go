package notes

import (
	"strings"
	"unicode"
)

var quoteReplacer = strings.NewReplacer( //nolint:gochecknoglobals // immutable replacer
	"‘", "'", "’", "'", "“", `"`, "”", `"`, "…", "...",
)

// Normalize lowercases s, straightens typographic quotes and collapses whitespace.
func Normalize(s string) string {
	s = quoteReplacer.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

func trimExcerptPart(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"'.,;:!?`, r)
	})
}

// ContainsExcerpt reports whether excerpt is quoted from text.
//
// Comparison ignores case, quote style and whitespace. An ellipsis splits the excerpt into parts that must appear
// in order.
func ContainsExcerpt(text, excerpt string) bool {
	haystack := Normalize(text)
	found := false
	for _, part := range strings.Split(Normalize(excerpt), "...") {
		part = trimExcerptPart(part)
		if part == "" {
			continue
		}
		idx := strings.Index(haystack, part)
		if idx == -1 {
			return false
		}
		haystack = haystack[idx+len(part):]
		found = true
	}
	return found
}
