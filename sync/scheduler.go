package sync

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Scheduler bounds how many sync tasks run concurrently across
// contexts, the cooperative task loop's max_concurrent knob.
type Scheduler struct {
	sem *semaphore.Weighted
}

// NewScheduler returns a scheduler allowing at most maxConcurrent
// simultaneous sync tasks.
func NewScheduler(maxConcurrent int64) *Scheduler {
	return &Scheduler{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run blocks until a slot is free (or ctx is cancelled), then executes
// task while holding that slot.
func (s *Scheduler) Run(ctx context.Context, task func(context.Context) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return task(ctx)
}

// TryRun attempts to acquire a slot without blocking; it reports false
// if none is free, the scheduler's way of dropping an overlapping
// periodic tick rather than queuing unboundedly.
func (s *Scheduler) TryRun(ctx context.Context, task func(context.Context) error) (ran bool, err error) {
	if !s.sem.TryAcquire(1) {
		return false, nil
	}
	defer s.sem.Release(1)
	return true, task(ctx)
}
