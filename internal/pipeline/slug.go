package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives the URL-safe slug for a title. The result contains only
// lowercase ASCII letters, digits and single hyphens, and never starts or
// ends with a hyphen. Slugify(Slugify(t)) == Slugify(t).
func Slugify(title string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, strings.ToLower(title))

	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeKey canonicalizes a lookup key that is expected to already be in
// slug shape. It does not re-run the full derivation.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
