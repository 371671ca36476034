// Package domain defines the core domain models for RollCall.
package domain

import (
	"testing"
)

func TestEncodeToken(t *testing.T) {
	tests := []struct {
		name     string
		session  string
		interval int64
		expected string
	}{
		{"simple", "Lecture1", 500, "Lecture1|500"},
		{"zero interval", "Lecture1", 0, "Lecture1|0"},
		{"negative interval", "Lecture1", -3, "Lecture1|-3"},
		{"name with spaces", "CS101 Monday", 812345678, "CS101 Monday|812345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeToken(tt.session, tt.interval); got != tt.expected {
				t.Errorf("EncodeToken(%q, %d) = %q, want %q", tt.session, tt.interval, got, tt.expected)
			}
		})
	}
}

func TestDecodeToken(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		wantSession  string
		wantInterval int64
		wantErr      bool
	}{
		{"simple", "Lecture1|500", "Lecture1", 500, false},
		{"large interval", "CS101|812345678", "CS101", 812345678, false},
		{"negative interval", "Lecture1|-3", "Lecture1", -3, false},
		{"no delimiter", "Lecture1", "", 0, true},
		{"empty string", "", "", 0, true},
		{"too many parts", "Lecture|1|500", "", 0, true},
		{"non-integer interval", "Lecture1|abc", "", 0, true},
		{"float interval", "Lecture1|50.5", "", 0, true},
		{"interval with spaces", "Lecture1| 500", "", 0, true},
		{"empty interval", "Lecture1|", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, interval, err := DecodeToken(tt.token)

			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsDomainError(err, "RC-TOKN-4000") {
					t.Errorf("DecodeToken(%q) should return ErrMalformedToken, got %v", tt.token, err)
				}
				return
			}
			if session != tt.wantSession {
				t.Errorf("session = %q, want %q", session, tt.wantSession)
			}
			if interval != tt.wantInterval {
				t.Errorf("interval = %d, want %d", interval, tt.wantInterval)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	// Encoding then decoding must return the exact inputs.
	sessions := []string{"Lecture1", "CS101 Monday", "a"}
	intervals := []int64{0, 1, 500, 812345678}

	for _, name := range sessions {
		for _, interval := range intervals {
			token := EncodeToken(name, interval)
			gotName, gotInterval, err := DecodeToken(token)
			if err != nil {
				t.Fatalf("DecodeToken(%q) error = %v", token, err)
			}
			if gotName != name || gotInterval != interval {
				t.Errorf("round trip (%q, %d) = (%q, %d)", name, interval, gotName, gotInterval)
			}
		}
	}
}

func TestValidToken(t *testing.T) {
	tests := []struct {
		token string
		valid bool
	}{
		{"Lecture1|500", true},
		{"Lecture1", false},
		{"Lecture1|abc", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := ValidToken(tt.token); got != tt.valid {
				t.Errorf("ValidToken(%q) = %v, want %v", tt.token, got, tt.valid)
			}
		})
	}
}

func TestIntervalAt(t *testing.T) {
	tests := []struct {
		name     string
		now      int64
		period   int64
		expected int64
	}{
		{"exact boundary", 1000, 2, 500},
		{"mid interval", 1001, 2, 500},
		{"next interval", 1002, 2, 501},
		{"period one", 1000, 1, 1000},
		{"large period", 1000, 60, 16},
		{"zero period falls back to one", 1000, 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntervalAt(tt.now, tt.period); got != tt.expected {
				t.Errorf("IntervalAt(%d, %d) = %d, want %d", tt.now, tt.period, got, tt.expected)
			}
		})
	}
}

func TestIntervalTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		interval int64
		period   int64
		expected int64
	}{
		{"interval 500 period 2", 500, 2, 1000},
		{"interval 16 period 60", 16, 60, 960},
		{"zero interval", 0, 2, 0},
		{"zero period falls back to one", 500, 0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntervalTimestamp(tt.interval, tt.period); got != tt.expected {
				t.Errorf("IntervalTimestamp(%d, %d) = %d, want %d", tt.interval, tt.period, got, tt.expected)
			}
		})
	}
}

func TestIntervalRoundTrip(t *testing.T) {
	// The timestamp recovered from an interval is the floor of the
	// original instant to the period boundary.
	period := int64(2)
	for _, now := range []int64{1000, 1001, 1002, 999999999} {
		interval := IntervalAt(now, period)
		ts := IntervalTimestamp(interval, period)
		if ts > now || now-ts >= period {
			t.Errorf("IntervalTimestamp(IntervalAt(%d)) = %d, want within [%d, %d]", now, ts, now-period+1, now)
		}
	}
}
