package clock

import (
	"testing"
	"time"
)

func TestFakeClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	c := NewFakeClock(start)
	if !c.Now().Equal(start) || c.Now().Location() != time.UTC {
		t.Fatalf("expected UTC copy of start, got %v", c.Now())
	}

	c.Advance(36 * time.Hour)
	if got := c.Now(); !got.Equal(start.Add(36 * time.Hour)) {
		t.Fatalf("unexpected time after advance: %v", got)
	}

	target := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	c.Set(target)
	if got := c.Now(); !got.Equal(target) {
		t.Fatalf("unexpected time after set: %v", got)
	}
}
