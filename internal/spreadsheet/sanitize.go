package spreadsheet

import "strings"

// Sanitize neutralizes spreadsheet formula injection. Strings leading with a
// formula trigger character are prefixed with a single quote so downstream
// spreadsheet software renders them as text. Applying it twice is a no-op.
// Non-string values pass through untouched.
func Sanitize(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return SanitizeString(s)
}

// SanitizeString is Sanitize for values already known to be strings.
func SanitizeString(s string) string {
	if strings.HasPrefix(s, "=") || strings.HasPrefix(s, "+") ||
		strings.HasPrefix(s, "-") || strings.HasPrefix(s, "@") {
		return "'" + s
	}
	return s
}

// SanitizeRow sanitizes every string cell of a row in place and returns it.
// Call this on any user-supplied row before writing it to a sink that
// spreadsheet software might open.
func SanitizeRow(row map[string]any) map[string]any {
	for key, value := range row {
		row[key] = Sanitize(value)
	}
	return row
}
