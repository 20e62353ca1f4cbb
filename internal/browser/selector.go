package browser

import "strings"

// TestIDSelector builds a CSS selector that matches ids as a descendant chain of
// exact-match attribute selectors, e.g.
//
//	TestIDSelector("data-cy", "frame", "searchTextInput")
//	// [data-cy="frame"] [data-cy="searchTextInput"]
func TestIDSelector(attr string, ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "[" + attr + "=" + cssString(id) + "]"
	}
	return strings.Join(parts, " ")
}

func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
