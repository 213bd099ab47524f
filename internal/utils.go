package internal

import (
	"strconv"
	"strings"
)

// tryParseNumber best-effort parses s as an int64, then a float64, falling back to the
// original string. Nothing in this module calls it.
func tryParseNumber(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// SanitizeIdentifier quotes name as a DuckDB identifier, doubling embedded quotes. Used when
// building fallback scan SQL from a parsed column/table name so values can never break out
// of the identifier position.
func SanitizeIdentifier(name string) string {
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, ` "`)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	for i, part := range clean {
		clean[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(clean, ".")
}
