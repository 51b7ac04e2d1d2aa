package util

import "strings"

// JoinOrNone joins strings with ", " or returns "(none)" for empty slices.
// Display helper for lists like regions or relay arguments.
func JoinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
