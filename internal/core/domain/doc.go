// Package domain defines the core domain models for RollCall.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Session: named attendance window with start/end lifecycle
//   - AttendanceRecord: immutable per-participant attendance mark
//   - Token codec: the "<session>|<interval>" wire format and its
//     rotation-interval arithmetic
//   - Errors: domain-specific error definitions
//
// All entity mutations happen through methods that preserve the model
// invariants; stores persist sessions and records as opaque values.
package domain
