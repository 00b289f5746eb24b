// Package pathkey turns a captured exchange's host, port and raw URL path into a
// bounded, filesystem-legal sequence of path components.
//
// Build never touches the filesystem and never fails: degenerate input still
// yields a usable key whose last component names the file to write.
package pathkey

import (
	"path"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultPort is the port that is not encoded into the host component.
	DefaultPort = 80

	// RootLeaf replaces an empty final path segment (root or trailing slash).
	RootLeaf = "__root__"

	// InvalidHost replaces a host that is empty after stripping.
	InvalidHost = "invalid-host"

	// MaxComponentLen is the rune count at which a component gets elided.
	MaxComponentLen = 35

	// ElisionKeep is how many runes are kept on each side of an elided component.
	ElisionKeep = 15

	// ElisionMarker replaces the middle of an over-long component.
	ElisionMarker = "[..]"

	// MaxTotalLen bounds the summed rune count of all components.
	MaxTotalLen = 150

	// DroppedMarker is the component inserted where interior components were dropped.
	DroppedMarker = "[...]"
)

// Key is an ordered, non-empty list of sanitized components.
// The first component names the host, the last names the leaf file.
type Key struct {
	components []string
}

// Components returns a copy of all components.
func (k Key) Components() []string {
	out := make([]string, len(k.components))
	copy(out, k.components)
	return out
}

// Dirs returns every component except the leaf.
func (k Key) Dirs() []string {
	if len(k.components) == 0 {
		return nil
	}
	out := make([]string, len(k.components)-1)
	copy(out, k.components[:len(k.components)-1])
	return out
}

// Leaf returns the final component.
func (k Key) Leaf() string {
	if len(k.components) == 0 {
		return ""
	}
	return k.components[len(k.components)-1]
}

// Len returns the number of components.
func (k Key) Len() int {
	return len(k.components)
}

// String joins the components with "/".
func (k Key) String() string {
	return strings.Join(k.components, "/")
}

// Build derives the key for a capture of host:port + rawPath.
func Build(host string, port int, rawPath string) Key {
	p := cleanPath(rawPath)

	if port != DefaultPort {
		host += "-" + strconv.Itoa(port)
	}
	host = strings.TrimLeft(host, `./\`)
	if host == "" {
		host = InvalidHost
	}

	raw := make([]string, 0, strings.Count(p, "/")+2)
	raw = append(raw, host)
	raw = append(raw, strings.Split(p, "/")...)

	comps := make([]string, len(raw))
	for i, c := range raw {
		comps[i] = elide(Sanitize(c))
	}

	return Key{components: dropMiddle(comps)}
}

// cleanPath strips fragment and query, decodes, normalizes and guarantees a
// non-empty basename.
func cleanPath(rawPath string) string {
	p, _, _ := strings.Cut(rawPath, "#")
	p, _, _ = strings.Cut(p, "?")
	p = unescape(p)
	p = strings.ReplaceAll(p, `\`, "/")

	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	p = strings.TrimLeft(p, `./\`)

	if p == "" || trailing {
		if p == "" {
			return RootLeaf
		}
		return p + "/" + RootLeaf
	}
	return p
}

// unescape percent-decodes s. Malformed escapes are kept as written.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// elide shortens components of MaxComponentLen runes or more to
// prefix + ElisionMarker + suffix.
func elide(c string) string {
	n := utf8.RuneCountInString(c)
	if n < MaxComponentLen {
		return c
	}
	r := []rune(c)
	return string(r[:ElisionKeep]) + ElisionMarker + string(r[n-ElisionKeep:])
}

// dropMiddle removes interior components until the key fits MaxTotalLen,
// leaving a single DroppedMarker where they were.
func dropMiddle(comps []string) []string {
	total := 0
	for _, c := range comps {
		total += utf8.RuneCountInString(c)
	}

	dropped := false
	for total > MaxTotalLen && len(comps) > 2 {
		if !dropped {
			total += utf8.RuneCountInString(DroppedMarker)
			dropped = true
		}
		mid := len(comps) / 2
		total -= utf8.RuneCountInString(comps[mid])
		comps = append(comps[:mid], comps[mid+1:]...)
	}
	if !dropped {
		return comps
	}

	split := (len(comps) + 1) / 2
	out := make([]string, 0, len(comps)+1)
	out = append(out, comps[:split]...)
	out = append(out, DroppedMarker)
	return append(out, comps[split:]...)
}
