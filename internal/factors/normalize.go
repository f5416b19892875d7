package factors

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the maximum size in bytes of a normalized factor name
const MaxNameLength = 128

// Normalize canonicalizes a factor name so that visually identical names
// (different Unicode compositions, surrounding whitespace) collapse to one key.
// It returns false when the name cannot be used: empty after trimming or not
// valid UTF-8.
func Normalize(name string) (string, bool) {
	if !utf8.ValidString(name) {
		return "", false
	}

	normalized := strings.TrimSpace(norm.NFC.String(name))
	if normalized == "" {
		return "", false
	}

	return truncate(normalized, MaxNameLength), true
}

// truncate cuts s to at most maxSize bytes without splitting a rune
func truncate(s string, maxSize int) string {
	if maxSize <= 0 || len(s) <= maxSize {
		return s
	}

	truncated := s[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}
