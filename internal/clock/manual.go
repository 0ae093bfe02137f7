package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*manualWaiter
}

type manualWaiter struct {
	clock    *Manual
	ch       chan time.Time
	at       time.Time
	interval time.Duration
	stopped  bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) NewTimer(d time.Duration) Timer {
	return m.addWaiter(d, 0)
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	return manualTicker{m.addWaiter(d, d)}
}

// manualTicker adapts a waiter to the Ticker contract, whose Stop has
// no return value.
type manualTicker struct {
	*manualWaiter
}

func (t manualTicker) Stop() {
	t.manualWaiter.Stop()
}

func (m *Manual) addWaiter(d, interval time.Duration) *manualWaiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := &manualWaiter{
		clock:    m,
		ch:       make(chan time.Time, 1),
		at:       m.now.Add(d),
		interval: interval,
	}
	m.waiters = append(m.waiters, w)
	return w
}

// Advance moves the clock forward, firing due timers and tickers in
// deadline order. Sends never block; a waiter whose channel is full
// drops the tick, as the runtime's ticker does.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		var next *manualWaiter
		for _, w := range m.waiters {
			if w.stopped || w.at.After(target) {
				continue
			}
			if next == nil || w.at.Before(next.at) {
				next = w
			}
		}
		if next == nil {
			break
		}

		m.now = next.at
		select {
		case next.ch <- next.at:
		default:
		}
		if next.interval > 0 {
			next.at = next.at.Add(next.interval)
		} else {
			next.stopped = true
		}
	}

	m.now = target
	m.compact()
	m.mu.Unlock()
}

// Waiters reports how many timers and tickers are pending. Callers
// that arm timers from other goroutines can poll it before advancing.
func (m *Manual) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, w := range m.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) compact() {
	kept := m.waiters[:0]
	for _, w := range m.waiters {
		if !w.stopped {
			kept = append(kept, w)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].at.Before(kept[j].at) })
	m.waiters = kept
}

func (w *manualWaiter) C() <-chan time.Time {
	return w.ch
}

func (w *manualWaiter) Stop() bool {
	w.clock.mu.Lock()
	defer w.clock.mu.Unlock()

	active := !w.stopped
	w.stopped = true
	return active
}
