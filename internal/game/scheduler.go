package game

import (
	"sync"
	"time"

	"github.com/variantsgg/variants/internal/clock"
)

// Scheduler owns at most one outstanding timed task per chat. Arming
// replaces any live task for that chat. The expiring goroutine
// revalidates its slot ownership under the scheduler mutex before
// firing, but a callback that already claimed its slot is past
// cancelling; expiry callbacks must therefore revalidate session
// identity themselves before acting.
type Scheduler struct {
	clock clock.Clock

	mu    sync.Mutex
	tasks map[int64]*timerTask
}

type timerTask struct {
	cancel chan struct{}
}

func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{
		clock: c,
		tasks: make(map[int64]*timerTask),
	}
}

// Arm schedules onExpire to run once after total elapses, with onTick
// fired every tick boundary in between. A zero tick or nil onTick
// disables ticking. Any previously armed task for the chat is disarmed
// first, atomically with the replacement.
func (s *Scheduler) Arm(chatID int64, total, tick time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	task := &timerTask{cancel: make(chan struct{})}

	s.mu.Lock()
	if old := s.tasks[chatID]; old != nil {
		close(old.cancel)
	}
	s.tasks[chatID] = task
	s.mu.Unlock()

	go s.run(chatID, task, total, tick, onTick, onExpire)
}

// Disarm cancels the chat's live task, if any. A task whose expiry
// already claimed the slot may still run its onExpire; the callback
// has to guard against stale state on its own. Idempotent.
func (s *Scheduler) Disarm(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task := s.tasks[chatID]; task != nil {
		close(task.cancel)
		delete(s.tasks, chatID)
	}
}

// DisarmAll cancels every live task; used at shutdown.
func (s *Scheduler) DisarmAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID, task := range s.tasks {
		close(task.cancel)
		delete(s.tasks, chatID)
	}
}

func (s *Scheduler) run(chatID int64, task *timerTask, total, tick time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	deadline := s.clock.Now().Add(total)
	expiry := s.clock.NewTimer(total)
	defer expiry.Stop()

	var tickCh <-chan time.Time
	if tick > 0 && onTick != nil {
		ticker := s.clock.NewTicker(tick)
		defer ticker.Stop()
		tickCh = ticker.C()
	}

	for {
		select {
		case <-task.cancel:
			return
		case <-tickCh:
			if s.expired(chatID, task) {
				return
			}
			if remaining := deadline.Sub(s.clock.Now()); remaining > 0 {
				onTick(remaining)
			}
		case <-expiry.C():
			if s.expired(chatID, task) {
				return
			}
			s.mu.Lock()
			if s.tasks[chatID] != task {
				s.mu.Unlock()
				return
			}
			delete(s.tasks, chatID)
			s.mu.Unlock()
			onExpire()
			return
		}
	}
}

// expired reports whether the task lost ownership of its chat slot.
func (s *Scheduler) expired(chatID int64, task *timerTask) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[chatID] != task
}
