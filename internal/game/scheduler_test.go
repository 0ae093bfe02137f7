package game

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/variantsgg/variants/internal/clock"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestSchedulerExpires(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	s := NewScheduler(clk)

	var expired atomic.Bool
	s.Arm(1, 30*time.Second, 0, nil, func() { expired.Store(true) })

	waitFor(t, func() bool { return clk.Waiters() >= 1 })
	clk.Advance(30 * time.Second)
	waitFor(t, expired.Load)
}

func TestSchedulerTicksBeforeExpiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	s := NewScheduler(clk)

	var ticks atomic.Int32
	var expired atomic.Bool
	s.Arm(1, 30*time.Second, 10*time.Second,
		func(remaining time.Duration) { ticks.Add(1) },
		func() { expired.Store(true) },
	)

	waitFor(t, func() bool { return clk.Waiters() >= 2 })
	clk.Advance(10 * time.Second)
	waitFor(t, func() bool { return ticks.Load() == 1 })
	clk.Advance(10 * time.Second)
	waitFor(t, func() bool { return ticks.Load() == 2 })

	clk.Advance(10 * time.Second)
	waitFor(t, expired.Load)
}

func TestSchedulerDisarmPreventsExpiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	s := NewScheduler(clk)

	var expired atomic.Bool
	s.Arm(1, 30*time.Second, 0, nil, func() { expired.Store(true) })
	waitFor(t, func() bool { return clk.Waiters() >= 1 })

	s.Disarm(1)
	clk.Advance(time.Minute)

	time.Sleep(10 * time.Millisecond)
	if expired.Load() {
		t.Fatal("disarmed task expired")
	}

	// Disarm is idempotent.
	s.Disarm(1)
}

func TestSchedulerArmReplacesTask(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	s := NewScheduler(clk)

	var first, second atomic.Bool
	s.Arm(1, 30*time.Second, 0, nil, func() { first.Store(true) })
	waitFor(t, func() bool { return clk.Waiters() >= 1 })

	s.Arm(1, time.Minute, 0, nil, func() { second.Store(true) })
	waitFor(t, func() bool { return clk.Waiters() >= 2 })

	clk.Advance(time.Hour)
	waitFor(t, second.Load)
	if first.Load() {
		t.Fatal("replaced task expired")
	}
}

func TestSchedulerIndependentChats(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	s := NewScheduler(clk)

	var one, two atomic.Bool
	s.Arm(1, 10*time.Second, 0, nil, func() { one.Store(true) })
	s.Arm(2, 20*time.Second, 0, nil, func() { two.Store(true) })
	waitFor(t, func() bool { return clk.Waiters() >= 2 })

	s.Disarm(2)
	clk.Advance(time.Minute)

	waitFor(t, one.Load)
	time.Sleep(10 * time.Millisecond)
	if two.Load() {
		t.Fatal("disarmed chat expired")
	}
}

func TestSchedulerDisarmAll(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	s := NewScheduler(clk)

	var fired atomic.Int32
	for chatID := int64(1); chatID <= 5; chatID++ {
		s.Arm(chatID, 10*time.Second, 0, nil, func() { fired.Add(1) })
	}
	waitFor(t, func() bool { return clk.Waiters() >= 5 })

	s.DisarmAll()
	clk.Advance(time.Minute)

	time.Sleep(10 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("%d tasks expired after DisarmAll", fired.Load())
	}
}
