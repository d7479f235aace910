package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

type TimerKind string

const (
	// TimerRound is the per-second round countdown.
	TimerRound TimerKind = "round"
	// TimerModifier re-rolls the brush modifier in Randomized mode.
	TimerModifier TimerKind = "modifier"
	// TimerRoundEnd fires once after the grace window between rounds.
	TimerRoundEnd TimerKind = "round_end"
)

type timerKey struct {
	code string
	kind TimerKind
}

type timerHandle struct {
	id     uint64
	cancel context.CancelFunc
}

// Scheduler runs cancellable tasks keyed by (room code, kind). Arming a
// key that is already armed replaces the old task. Every callback gets the
// task's context; once the task is cancelled or replaced that context is
// done, which is how callbacks detect they are stale.
//
// Callbacks run on the scheduler's goroutines with no scheduler lock held,
// so they may call back into the scheduler.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[timerKey]*timerHandle
	nextID  uint64
	stopped bool
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		timers: make(map[timerKey]*timerHandle),
		logger: logger,
	}
}

// Every calls fn every interval until the task is cancelled.
func (s *Scheduler) Every(code string, kind TimerKind, interval time.Duration, fn func(ctx context.Context)) {
	key := timerKey{code, kind}
	ctx, id, ok := s.arm(key)
	if !ok {
		return
	}

	go func() {
		defer s.wg.Done()
		defer s.release(key, id)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()

	s.logger.Debug("[Every] timer armed",
		zap.String("room", code), zap.String("kind", string(kind)), zap.Duration("interval", interval))
}

// After calls fn once after delay unless the task is cancelled first.
func (s *Scheduler) After(code string, kind TimerKind, delay time.Duration, fn func(ctx context.Context)) {
	key := timerKey{code, kind}
	ctx, id, ok := s.arm(key)
	if !ok {
		return
	}

	go func() {
		defer s.wg.Done()
		defer s.release(key, id)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
			if ctx.Err() == nil {
				fn(ctx)
			}
		}
	}()

	s.logger.Debug("[After] timer armed",
		zap.String("room", code), zap.String("kind", string(kind)), zap.Duration("delay", delay))
}

// Cancel stops one task. Cancelling a task that already fired, was
// cancelled, or never existed is a no-op.
func (s *Scheduler) Cancel(code string, kind TimerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := timerKey{code, kind}
	if h, ok := s.timers[key]; ok {
		h.cancel()
		delete(s.timers, key)
		s.logger.Debug("[Cancel] timer cancelled", zap.String("room", code), zap.String("kind", string(kind)))
	}
}

// CancelAll stops every task for the room.
func (s *Scheduler) CancelAll(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, h := range s.timers {
		if key.code == code {
			h.cancel()
			delete(s.timers, key)
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("[CancelAll] timers cancelled", zap.String("room", code), zap.Int("count", n))
	}
}

// Active reports whether a task is armed for the key.
func (s *Scheduler) Active(code string, kind TimerKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[timerKey{code, kind}]
	return ok
}

// Count returns the number of armed tasks for the room.
func (s *Scheduler) Count(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.timers {
		if key.code == code {
			n++
		}
	}
	return n
}

// Stop cancels everything, refuses new tasks and waits for running
// callbacks to return. It must not be called with a room lock held.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, h := range s.timers {
		h.cancel()
		delete(s.timers, key)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("[Stop] scheduler stopped")
}

func (s *Scheduler) arm(key timerKey) (context.Context, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, 0, false
	}
	if old, ok := s.timers[key]; ok {
		old.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.nextID++
	s.timers[key] = &timerHandle{id: s.nextID, cancel: cancel}
	s.wg.Add(1)
	return ctx, s.nextID, true
}

// release drops the handle once its goroutine exits, unless a newer task
// already took the key.
func (s *Scheduler) release(key timerKey, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.timers[key]; ok && h.id == id {
		h.cancel()
		delete(s.timers, key)
	}
}
