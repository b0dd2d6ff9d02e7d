// Package slug derives URL-safe identifiers from human readable names.
package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases s, collapses every run of characters outside [a-z0-9]
// into a single "-", and trims leading and trailing "-".
func Make(s string) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// Join builds a folder path from its parent's path and its own slug.
func Join(parentPath, s string) string {
	if parentPath == "" {
		return s
	}
	return parentPath + "/" + s
}
