// Package worker consumes ingest tasks from the task queue and runs
// them through the ingest orchestrator.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
	"github.com/custodia-labs/finsight-core/internal/core/services"
)

// Orchestrator is the slice of the ingest orchestrator the worker
// drives. Satisfied by services.IngestOrchestrator.
type Orchestrator interface {
	IngestFiling(ctx context.Context, filingID string) error
	SyncCompany(ctx context.Context, ticker string) (*domain.IngestResult, error)
	SyncCorpus(ctx context.Context) ([]*domain.IngestResult, error)
}

type taskHandler func(ctx context.Context, task *domain.Task) error

// Worker runs a pool of goroutines that dequeue ingest tasks and
// dispatch them to type-specific handlers.
type Worker struct {
	taskQueue    driven.TaskQueue
	orchestrator Orchestrator
	scheduler    *services.Scheduler
	logger       *slog.Logger
	handlers     map[domain.TaskType]taskHandler

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type Config struct {
	TaskQueue    driven.TaskQueue
	Orchestrator Orchestrator
	Scheduler    *services.Scheduler
	Logger       *slog.Logger

	// Concurrency is the size of the processing pool. DequeueTimeout,
	// in seconds, bounds how long an idle goroutine waits per poll.
	Concurrency    int
	DequeueTimeout int
}

func NewWorker(cfg Config) *Worker {
	w := &Worker{
		taskQueue:      cfg.TaskQueue,
		orchestrator:   cfg.Orchestrator,
		scheduler:      cfg.Scheduler,
		logger:         cfg.Logger,
		concurrency:    cfg.Concurrency,
		dequeueTimeout: cfg.DequeueTimeout,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.dequeueTimeout <= 0 {
		w.dequeueTimeout = 5
	}

	w.handlers = map[domain.TaskType]taskHandler{
		domain.TaskTypeIngestFiling: w.ingestFiling,
		domain.TaskTypeSyncCompany:  w.syncCompany,
		domain.TaskTypeSyncCorpus:   w.syncCorpus,
	}
	return w
}

// Start launches the pool (and the scheduler, when one is configured).
// Starting a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.poll(ctx, w.logger.With("worker_id", id))
		}(i)
	}
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()
	return nil
}

// Stop signals the pool, stops the scheduler, and waits for in-flight
// tasks to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the pool has drained.
func (w *Worker) Wait() {
	<-w.doneCh
}

func (w *Worker) poll(ctx context.Context, logger *slog.Logger) {
	logger.Info("worker goroutine started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		w.dispatch(ctx, task, logger)
	}
}

// dispatch runs one task through its handler, then acks on success or
// nacks with the failure reason.
func (w *Worker) dispatch(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")
	start := time.Now()

	var err error
	if handler, ok := w.handlers[task.Type]; ok {
		err = handler(ctx, task)
	} else {
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	if err != nil {
		logger.Error("task failed", "duration", time.Since(start), "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", time.Since(start))
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

func (w *Worker) ingestFiling(ctx context.Context, task *domain.Task) error {
	filingID := task.FilingID()
	if filingID == "" {
		return fmt.Errorf("filing_id not found in task payload")
	}
	return w.orchestrator.IngestFiling(ctx, filingID)
}

func (w *Worker) syncCompany(ctx context.Context, task *domain.Task) error {
	ticker := task.Ticker()
	if ticker == "" {
		return fmt.Errorf("ticker not found in task payload")
	}
	result, err := w.orchestrator.SyncCompany(ctx, ticker)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("sync failed for %s: %s", ticker, result.Error)
	}
	return nil
}

// syncCorpus refreshes every company in the registry. Partial failure
// still acks the task; per-company errors live in ingest state and are
// retried on the next refresh.
func (w *Worker) syncCorpus(ctx context.Context, _ *domain.Task) error {
	results, err := w.orchestrator.SyncCorpus(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}
	if failed > 0 {
		w.logger.Warn("some company syncs failed",
			"total", len(results),
			"failed", failed,
		)
	}
	return nil
}

// Health reports worker and queue status.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}
	return health
}
