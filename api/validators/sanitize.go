package validators

import "strings"

// Search inputs come straight off the query string. maxSearchLen keeps a
// pathological query from reaching the ILIKE patterns downstream.
const maxSearchLen = 120

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeSearch trims and caps a free-text search term.
func SanitizeSearch(input string) string {
	return SanitizeString(input, maxSearchLen)
}
