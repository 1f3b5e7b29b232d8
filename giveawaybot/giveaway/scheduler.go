package giveaway

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const closeTimeout = 30 * time.Second

// Scheduler owns the in-process auto-close timers, one per active
// giveaway. Timers are not persisted; the manager's recovery sweep
// re-arms them after a restart. Re-arming an id replaces its timer.
type Scheduler struct {
	onExpire func(ctx context.Context, id string)

	mu       sync.Mutex
	timers   map[string]*time.Timer
	shutdown chan struct{}
	once     sync.Once
}

func NewScheduler(onExpire func(ctx context.Context, id string)) *Scheduler {
	return &Scheduler{
		onExpire: onExpire,
		timers:   make(map[string]*time.Timer),
		shutdown: make(chan struct{}),
	}
}

// Arm schedules the auto-close of the given giveaway at the given
// instant. A past instant fires immediately.
func (s *Scheduler) Arm(id string, at time.Time) {
	timer := time.NewTimer(time.Until(at))

	s.mu.Lock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = timer
	s.mu.Unlock()

	slog.Debug("Armed auto-close timer",
		slog.String("giveaway_id", id),
		slog.Time("end_time", at))

	go func() {
		defer func() {
			s.mu.Lock()
			if s.timers[id] == timer {
				delete(s.timers, id)
			}
			s.mu.Unlock()
			timer.Stop()
		}()

		select {
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			s.onExpire(ctx, id)
		case <-s.shutdown:
		}
	}()
}

// Cancel drops the timer for a giveaway that was closed manually.
// Unknown ids are fine; the auto-close no-ops on gone giveaways anyway.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// Shutdown stops all pending timers.
func (s *Scheduler) Shutdown() {
	s.once.Do(func() {
		close(s.shutdown)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}

	slog.Info("Giveaway scheduler shutdown completed")
}
