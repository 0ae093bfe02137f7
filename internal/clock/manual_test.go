package clock

import (
	"testing"
	"time"
)

func TestManualTimerFiresAtDeadline(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewManual(start)
	timer := clk.NewTimer(10 * time.Second)

	clk.Advance(9 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clk.Advance(time.Second)
	select {
	case at := <-timer.C():
		if !at.Equal(start.Add(10 * time.Second)) {
			t.Errorf("fired at %v", at)
		}
	default:
		t.Fatal("timer did not fire")
	}
}

func TestManualTickerReArms(t *testing.T) {
	t.Parallel()

	clk := NewManual(time.Unix(0, 0))
	ticker := clk.NewTicker(time.Second)

	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		select {
		case <-ticker.C():
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	ticker.Stop()
	clk.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("tick after stop")
	default:
	}
}

func TestManualStoppedTimerNeverFires(t *testing.T) {
	t.Parallel()

	clk := NewManual(time.Unix(0, 0))
	timer := clk.NewTimer(time.Second)
	if !timer.Stop() {
		t.Fatal("stop of a pending timer should report active")
	}
	if timer.Stop() {
		t.Fatal("second stop should report inactive")
	}

	clk.Advance(time.Minute)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestManualFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	clk := NewManual(time.Unix(0, 0))
	late := clk.NewTimer(20 * time.Second)
	early := clk.NewTimer(5 * time.Second)

	clk.Advance(30 * time.Second)

	earlyAt := <-early.C()
	lateAt := <-late.C()
	if !earlyAt.Before(lateAt) {
		t.Errorf("expected %v before %v", earlyAt, lateAt)
	}
	if clk.Waiters() != 0 {
		t.Errorf("waiters left: %d", clk.Waiters())
	}
}
