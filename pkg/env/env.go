// Package env reads process settings that must be known before config loads.
package env

import (
	"os"
	"strings"
)

// First returns the first of keys whose variable is set to a non-blank
// value, trimmed, or "" when none is.
func First(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}
