// Package logger provides structured logging for RollCall.
//
// It wraps log/slog with JSON output by default, runtime level
// adjustment, and automatic masking of values that must not reach the
// log in full:
//
//   - participant IDs (registration numbers are personal data and are
//     always logged masked)
//   - configuration secrets (encryption keys, passphrases)
//
// Request-scoped loggers travel through context; handlers pull an
// enriched logger with L(ctx).
package logger
