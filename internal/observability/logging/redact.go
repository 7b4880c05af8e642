package logging

import "strings"

// RedactedValue replaces sensitive field values before they reach a log line.
const RedactedValue = "[REDACTED]"

var allowlist = map[string]struct{}{
	"node":      {},
	"role":      {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"endpoint":  {},
	"peer":      {},
	"height":    {},
	"status":    {},
}

// IsAllowlisted reports whether key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	_, ok := allowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Redact returns RedactedValue unless key is allowlisted, in which case
// value passes through unchanged. It guards accidental logging of
// transaction payload fields that may carry key material (the Input
// transaction's embedded public key, signature and partner hash).
func Redact(key, value string) string {
	if IsAllowlisted(key) {
		return value
	}
	return RedactedValue
}
