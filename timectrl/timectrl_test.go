package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestAcceleratedAdvanceStepsByTick(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 15*time.Minute, Accelerated)

	for i := 1; i <= 3; i++ {
		got, err := tc.Advance(context.Background())
		if err != nil {
			t.Fatalf("Advance #%d: %v", i, err)
		}
		want := start.Add(time.Duration(i) * 15 * time.Minute)
		if !got.Equal(want) {
			t.Fatalf("Advance #%d = %v, want %v", i, got, want)
		}
	}

	if got := tc.Now(); !got.Equal(start.Add(45 * time.Minute)) {
		t.Fatalf("Now() = %v, want %v", got, start.Add(45*time.Minute))
	}
}

func TestAdvanceNotifiesListeners(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Hour, Accelerated)

	var seen []time.Time
	tc.AddListener(func(at time.Time) { seen = append(seen, at) })

	if _, err := tc.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := tc.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("listener fired %d times, want 2", len(seen))
	}
	if !seen[0].Equal(start.Add(time.Hour)) || !seen[1].Equal(start.Add(2*time.Hour)) {
		t.Fatalf("listener times = %v, want hourly advances from %v", seen, start)
	}
}

func TestRealTimeAdvanceHonoursCancellation(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Hour, RealTime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tc.Advance(ctx); err != context.Canceled {
		t.Fatalf("Advance on cancelled context = %v, want context.Canceled", err)
	}
	if got := tc.Now(); !got.Equal(start) {
		t.Fatalf("Now() after cancelled advance = %v, want %v", got, start)
	}
}

func TestResetRewindsToStart(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Minute, Accelerated)

	if _, err := tc.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	tc.Reset()

	if got := tc.Now(); !got.Equal(start) {
		t.Fatalf("Now() after Reset = %v, want %v", got, start)
	}
}
