package parse

import (
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// AreaName normalizes a raw area name into its display form.
// Upstream keys use underscores for spaces ("HSR_Layout"); both forms are accepted.
func AreaName(raw string) string {
	s := strings.ReplaceAll(raw, "_", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// AreaKey returns the case-insensitive lookup key for an area name.
func AreaKey(raw string) string {
	return strings.ToLower(AreaName(raw))
}

// AreaPathKey returns the underscore form used by upstream storage paths.
func AreaPathKey(raw string) string {
	return strings.ReplaceAll(AreaName(raw), " ", "_")
}
