package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"token":         {},
	"secret":        {},
	"password":      {},
	"hmac_secret":   {},
	"private_key":   {},
}

// IsSensitive reports whether values logged under key must be masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := sensitiveKeys[normalized]
	return ok
}

// SensitiveKeys returns a sorted copy of the masked log keys.
func SensitiveKeys() []string {
	keys := make([]string, 0, len(sensitiveKeys))
	for key := range sensitiveKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the redacted placeholder. Blank values, whitespace included,
// are returned unchanged so empty fields stay visibly empty.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// Redact masks the attribute value when its key is sensitive.
func Redact(attr slog.Attr) slog.Attr {
	if !IsSensitive(attr.Key) {
		return attr
	}
	return slog.String(attr.Key, MaskValue(attr.Value.String()))
}
