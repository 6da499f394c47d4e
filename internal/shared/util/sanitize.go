package util

import (
	"errors"
	"strings"
)

// ErrInvalidFileName is returned when nothing usable remains after sanitizing.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName keeps only [A-Za-z0-9-_.] from the last path element and
// removes dot runs so the result can never traverse directories.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSafeRune(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}
	out = strings.TrimLeft(out, ".")
	if out == "" {
		return "", ErrInvalidFileName
	}
	return out, nil
}

// BaseName strips the extension from a sanitized file name.
func BaseName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	default:
		return false
	}
}
