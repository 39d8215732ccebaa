// Package env reads the few settings needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// First returns the first non-empty value among keys, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}

// LogFormat is "console" or "json". STOREFRONT_LOG_FORMAT wins over LOG_FORMAT.
func LogFormat() string {
	switch strings.ToLower(First("json", "STOREFRONT_LOG_FORMAT", "LOG_FORMAT")) {
	case "console", "pretty":
		return "console"
	default:
		return "json"
	}
}
