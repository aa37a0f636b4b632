package clock

import (
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Advance(15 * time.Minute)
	if got := c.Now(); !got.Equal(start.Add(15 * time.Minute)) {
		t.Errorf("Now() = %v", got)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Set 后时间不正确")
	}

	if (RealClock{}).Now().Location() != time.UTC {
		t.Errorf("RealClock 应返回 UTC")
	}
}
