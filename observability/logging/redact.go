package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces free-text input in log output. Submission notes are
// self-reported and may carry personal detail, so they never reach logs
// verbatim.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"message":    {},
	"severity":   {},
	"timestamp":  {},
	"error":      {},
	"owner":      {},
	"day":        {},
	"route":      {},
	"method":     {},
	"status":     {},
	"request_id": {},
	"group":      {},
}

// IsAllowlisted reports whether the provided key may be logged unmasked.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the keys that are emitted
// without masking. Tests use this to keep the set intentional.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the redaction placeholder for non-empty values. Empty
// values pass through so absent notes stay readable as empty fields.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr whose value is masked unless the key is
// allowlisted.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
