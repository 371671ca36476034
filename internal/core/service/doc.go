// Package service provides domain services for RollCall.
//
// Domain services contain pure business logic and orchestrate operations
// on domain models. They define interfaces for storage dependencies,
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - SessionService: session lifecycle (start, end, current token, auto expiry)
//   - TokenService: rotating token issuance and validation
//   - AttendanceService: attendance submission, duplicate rejection, reporting
//   - ExpirySweeper: background loop ending sessions past their deadline
//
// Services are stateless apart from injected dependencies and are safe for
// concurrent use.
package service
