package pathkey

import (
	"regexp"
	"strings"
)

// Placeholder stands in for every rune that may not appear in a component.
const Placeholder = "_"

// forbidden matches any rune outside word characters, hyphen and dot.
var forbidden = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)

// Sanitize replaces each forbidden rune in s with Placeholder.
// Runes are replaced one-for-one and never removed, so two distinct raw
// components cannot collapse into "", "." or "..".
func Sanitize(s string) string {
	return forbidden.ReplaceAllLiteralString(s, Placeholder)
}

// SplitExt splits a leaf into base name and extension ("a.tar.gz" → "a.tar", ".gz").
// Leading dots never start an extension, so ".htaccess" has none.
func SplitExt(leaf string) (base, ext string) {
	lead := len(leaf) - len(strings.TrimLeft(leaf, "."))
	i := strings.LastIndexByte(leaf[lead:], '.')
	if i < 0 {
		return leaf, ""
	}
	i += lead
	return leaf[:i], leaf[i:]
}
