// Package domain defines the core domain models for RollCall.
package domain

import (
	"strconv"
	"strings"
)

// TokenDelimiter separates the session name from the rotation interval in
// the wire token format "<name>|<interval>".
const TokenDelimiter = "|"

// EncodeToken derives the wire token for a session at a rotation interval.
//
// The caller is responsible for ensuring the name contains no delimiter;
// session names are rejected at start time if they do (see Session.Validate).
// Pure function, no side effects.
func EncodeToken(name string, interval int64) string {
	return name + TokenDelimiter + strconv.FormatInt(interval, 10)
}

// DecodeToken parses a wire token back into its session name and rotation
// interval. It fails with ErrMalformedToken unless the token splits into
// exactly two parts on the delimiter and the second part is a base-10
// integer.
func DecodeToken(token string) (name string, interval int64, err error) {
	parts := strings.Split(token, TokenDelimiter)
	if len(parts) != 2 {
		return "", 0, ErrMalformedToken.WithDetails("want <session>" + TokenDelimiter + "<interval>")
	}

	interval, perr := strconv.ParseInt(parts[1], 10, 64)
	if perr != nil {
		return "", 0, ErrMalformedToken.WithDetails("interval is not an integer").WithCause(perr)
	}

	return parts[0], interval, nil
}

// ValidToken reports whether a string parses as a wire token.
func ValidToken(token string) bool {
	_, _, err := DecodeToken(token)
	return err == nil
}

// IntervalAt computes the rotation interval number containing the given
// Unix-seconds instant: floor(now / period). The period is in whole
// seconds and must be positive.
func IntervalAt(nowUnix, periodSeconds int64) int64 {
	if periodSeconds <= 0 {
		periodSeconds = 1
	}
	return nowUnix / periodSeconds
}

// IntervalTimestamp returns the Unix-seconds boundary an interval number
// encodes: interval * period. This is the token_ts recorded with an
// attendance mark, not the submission time.
func IntervalTimestamp(interval, periodSeconds int64) int64 {
	if periodSeconds <= 0 {
		periodSeconds = 1
	}
	return interval * periodSeconds
}
