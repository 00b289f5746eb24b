package artifact

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeHost normalizes a host filter:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Drop internal whitespace
func NormalizeHost(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, "")
}

// NormalizeKeyPrefix turns a key prefix filter into slash-separated form
// without leading or trailing separators.
func NormalizeKeyPrefix(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `\`, "/")
	return strings.Trim(s, "/")
}
