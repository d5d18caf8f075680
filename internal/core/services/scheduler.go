package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

const schedulerLockKey = "scheduler"

// Scheduler polls the schedule store and enqueues the ingest tasks that
// have come due. With multiple instances, a distributed lock keeps a
// single poller active per cycle so a schedule fires once.
type Scheduler struct {
	store     driven.SchedulerStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval     time.Duration
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig configures the poll loop. Lock is optional; when set,
// LockRequired decides whether a failed acquisition skips the cycle.
type SchedulerConfig struct {
	Store        driven.SchedulerStore
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock
	Logger       *slog.Logger
	PollInterval time.Duration
	LockTTL      time.Duration
	LockRequired bool
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		store:        cfg.Store,
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       cfg.Logger,
		interval:     cfg.PollInterval,
		lockTTL:      cfg.LockTTL,
		lockRequired: cfg.LockRequired,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.interval == 0 {
		s.interval = 30 * time.Second
	}
	if s.lockTTL == 0 {
		s.lockTTL = 60 * time.Second
	}
	// A configured lock is always honored; running lockless with a
	// lock present would defeat its purpose.
	if s.lock != nil {
		s.lockRequired = true
	}
	return s
}

// Start launches the poll loop. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)
	go s.run(ctx)
	return nil
}

// Stop halts the loop and waits for the in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs one poll pass, holding the distributed lock for its
// duration when one is configured.
func (s *Scheduler) cycle(ctx context.Context) {
	if s.lock == nil {
		s.enqueueDue(ctx)
		return
	}

	acquired, err := s.lock.Acquire(ctx, schedulerLockKey, s.lockTTL)
	if err != nil {
		s.logger.Warn("failed to acquire scheduler lock", "error", err)
		if s.lockRequired {
			return
		}
	} else if !acquired {
		s.logger.Debug("scheduler lock held elsewhere, skipping cycle")
		return
	} else {
		defer func() {
			if err := s.lock.Release(ctx, schedulerLockKey); err != nil {
				s.logger.Warn("failed to release scheduler lock", "error", err)
			}
		}()
	}

	s.enqueueDue(ctx)
}

func (s *Scheduler) enqueueDue(ctx context.Context) {
	due, err := s.store.GetDueScheduledTasks(ctx)
	if err != nil {
		s.logger.Error("failed to get due scheduled tasks", "error", err)
		return
	}

	for _, scheduled := range due {
		if !scheduled.Enabled || !scheduled.IsDue() {
			continue
		}
		s.fire(ctx, scheduled)
	}
}

// fire enqueues one occurrence of a schedule and advances its next-run
// bookkeeping. An enqueue failure is recorded on the schedule so the
// admin surface can show it.
func (s *Scheduler) fire(ctx context.Context, scheduled *domain.ScheduledTask) {
	task := domain.NewTask(scheduled.Type, scheduled.Payload)

	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		s.logger.Error("failed to enqueue scheduled task",
			"scheduled_id", scheduled.ID,
			"error", err,
		)
		_ = s.store.UpdateLastRun(ctx, scheduled.ID, err.Error())
		return
	}

	s.logger.Info("enqueued scheduled task",
		"scheduled_id", scheduled.ID,
		"task_id", task.ID,
		"task_type", task.Type,
	)

	if err := s.store.UpdateLastRun(ctx, scheduled.ID, ""); err != nil {
		s.logger.Warn("failed to update scheduled task last run",
			"scheduled_id", scheduled.ID,
			"error", err,
		)
	}
}

// CRUD passthroughs for the admin surface.

func (s *Scheduler) CreateScheduledTask(ctx context.Context, scheduled *domain.ScheduledTask) error {
	return s.store.SaveScheduledTask(ctx, scheduled)
}

func (s *Scheduler) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	return s.store.GetScheduledTask(ctx, id)
}

func (s *Scheduler) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	return s.store.ListScheduledTasks(ctx)
}

func (s *Scheduler) UpdateScheduledTask(ctx context.Context, scheduled *domain.ScheduledTask) error {
	return s.store.SaveScheduledTask(ctx, scheduled)
}

func (s *Scheduler) DeleteScheduledTask(ctx context.Context, id string) error {
	return s.store.DeleteScheduledTask(ctx, id)
}

func (s *Scheduler) EnableScheduledTask(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, true)
}

func (s *Scheduler) DisableScheduledTask(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, false)
}

func (s *Scheduler) setEnabled(ctx context.Context, id string, enabled bool) error {
	scheduled, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		return err
	}
	scheduled.Enabled = enabled
	return s.store.SaveScheduledTask(ctx, scheduled)
}

// TriggerNow enqueues a schedule's task immediately without touching
// its next-run time.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Task, error) {
	scheduled, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task := domain.NewTask(scheduled.Type, scheduled.Payload)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered scheduled task",
		"scheduled_id", scheduled.ID,
		"task_id", task.ID,
	)
	return task, nil
}
