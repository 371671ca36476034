package clock

import (
	"testing"
	"time"
)

func TestSystem(t *testing.T) {
	c := System()

	before := time.Now()
	now := c.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("System().Now() = %v, want between %v and %v", now, before, after)
	}
}

func TestFake(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start)

	if got := f.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	f.Advance(5 * time.Second)
	if got := f.Now(); got.Unix() != 1005 {
		t.Errorf("after Advance, Now().Unix() = %d, want 1005", got.Unix())
	}

	f.Set(time.Unix(2000, 0))
	if got := f.Now(); got.Unix() != 2000 {
		t.Errorf("after Set, Now().Unix() = %d, want 2000", got.Unix())
	}
}
