package logger

import (
	"log/slog"
	"strings"
)

// Key patterns whose string values never reach the log in full.
// Attendance tokens are deliberately absent: they are projected to the
// whole room and useful verbatim when debugging validation failures.
var sensitiveKeyPatterns = []string{
	"password",
	"passphrase",
	"secret",
	"key",
	"credential",
}

// participantKeyPattern marks attributes carrying a registration
// number. Those are personal data and are only ever logged masked.
const participantKeyPattern = "participant"

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive rewrites attributes carrying secrets or personal
// data before the handler serializes them.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		keyLower := strings.ToLower(a.Key)

		if strings.Contains(keyLower, participantKeyPattern) {
			return slog.String(a.Key, MaskParticipantID(a.Value.String()))
		}

		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				if a.Value.String() != "" {
					return slog.String(a.Key, redactedValue)
				}
				break
			}
		}
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// MaskParticipantID keeps the ends of a registration number so log
// lines stay correlatable without exposing the full value.
// Format: first 2 chars + "..." + last 2 chars; short IDs mask fully.
func MaskParticipantID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) <= 6 {
		return "***"
	}
	return id[:2] + "..." + id[len(id)-2:]
}

// IsSensitiveKey reports whether a key name suggests secret content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
