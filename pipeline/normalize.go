package pipeline

import (
	"path"
	"strings"
)

const upperhex = "0123456789ABCDEF"

// DefaultEscapeByte reports if byte should be escaped by Normalize
func DefaultEscapeByte(c byte) bool {
	// alphanum
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return false
	}
	switch c {
	case '/': // should not escape path segment
		return false
	case '-', '_', '.', '~': // Unreserved characters (mark)
		return false
	}
	// Everything else must be escaped.
	return true
}

// escape is url.escape with a custom shouldEscape func
func escape(s string, shouldEscape func(c byte) bool) string {
	spaceCount, hexCount := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c) {
			if c == ' ' {
				spaceCount++
			} else {
				hexCount++
			}
		}
	}
	if spaceCount == 0 && hexCount == 0 {
		return s
	}
	t := make([]byte, len(s)+2*hexCount)
	j := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == ' ' && shouldEscape(c):
			t[j] = '+'
			j++
		case shouldEscape(c):
			t[j] = '%'
			t[j+1] = upperhex[c>>4]
			t[j+2] = upperhex[c&15]
			j += 3
		default:
			t[j] = s[i]
			j++
		}
	}
	return string(t)
}

// Normalize path to be file path friendly, e.g. as storage key.
// Escapes with DefaultEscapeByte if shouldEscape is nil.
func Normalize(image string, shouldEscape func(c byte) bool) string {
	image = path.Clean(image)
	image = strings.Trim(image, "/")
	if image == "." {
		return ""
	}
	if shouldEscape == nil {
		shouldEscape = DefaultEscapeByte
	}
	return escape(image, shouldEscape)
}
