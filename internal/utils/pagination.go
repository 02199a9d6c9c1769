// Package utils provides small helpers for parsing and bounding query
// parameters. They are independent of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Handlers use it for optional numeric query parameters such as
// restaurant_id, where a missing or malformed value falls back to the
// deployment default.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampLimit bounds a caller-supplied result count. Values <= 0 take the
// default; values above max are capped so a voice tool asking for "all
// orders" cannot pull the whole table.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
