package cache

import (
	"testing"
	"time"
)

func TestVolatile_GetSet(t *testing.T) {
	now := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	c := NewVolatile[[]int](8).WithClock(func() time.Time { return now })

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}

	c.Set("q", []int{1, 2}, time.Minute)
	got, capturedAt, ok := c.GetWithTime("q")
	if !ok || len(got) != 2 {
		t.Fatalf("expected hit, got %v %v", got, ok)
	}
	if !capturedAt.Equal(now) {
		t.Errorf("unexpected capture time %v", capturedAt)
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("q"); !ok {
		t.Error("entry at its expiry instant should be live")
	}

	now = now.Add(time.Millisecond)
	if _, ok := c.Get("q"); ok {
		t.Error("expired entry must be a miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be dropped on read, len=%d", c.Len())
	}
}

func TestVolatile_BoundedByLRU(t *testing.T) {
	c := NewVolatile[string](2)
	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)
	c.Set("c", "3", time.Hour)

	if _, ok := c.Get("a"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestDailyKey(t *testing.T) {
	day1 := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	day2 := day1.Add(2 * time.Second)

	if DailyKey("search:q|1|30", day1) != "search:q|1|30:2026-03-14" {
		t.Errorf("unexpected key %s", DailyKey("search:q|1|30", day1))
	}
	if DailyKey("k", day1) == DailyKey("k", day2) {
		t.Error("keys on different dates must differ")
	}

	now := day1
	c := NewVolatile[int](4).WithClock(func() time.Time { return now })
	c.Set(c.DailyKey("k"), 7, 48*time.Hour)

	now = day2
	if _, ok := c.Get(c.DailyKey("k")); ok {
		t.Error("yesterday's entry must be unreachable through today's key")
	}
	if v, ok := c.Get(DailyKey("k", day1)); !ok || v != 7 {
		t.Error("yesterday's entry stays reachable under its own key until it expires")
	}
}
