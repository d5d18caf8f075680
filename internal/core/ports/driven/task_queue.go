package driven

import (
	"context"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
)

// TaskQueue carries ingest work from the scheduler and API to the
// workers. Redis backs it when available, Postgres otherwise.
type TaskQueue interface {
	// Enqueue adds a task. Workers take tasks by priority, then by
	// scheduled time.
	Enqueue(ctx context.Context, task *domain.Task) error

	// EnqueueBatch adds several tasks atomically; one failure rolls
	// back the whole batch.
	EnqueueBatch(ctx context.Context, tasks []*domain.Task) error

	// Dequeue hands the next ready task to this worker and marks it
	// processing. Non-blocking backends return nil, nil when the
	// queue is empty.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout waits up to timeout seconds for a task,
	// returning nil, nil when none arrives.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack finishes a task and drops it from the processing set.
	Ack(ctx context.Context, taskID string) error

	// Nack reports a failed attempt. The task is requeued with
	// backoff while attempts remain, otherwise marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// CancelTask drops a task that has not started. Processing and
	// finished tasks cannot be cancelled.
	CancelTask(ctx context.Context, taskID string) error

	// PurgeTasks deletes finished tasks older than olderThan
	// seconds, returning how many were removed.
	PurgeTasks(ctx context.Context, olderThan int) (int, error)

	Stats(ctx context.Context) (*QueueStats, error)

	Ping(ctx context.Context) error

	Close() error
}

// TaskFilter narrows ListTasks. Zero values mean no filter.
type TaskFilter struct {
	Status domain.TaskStatus
	Type   domain.TaskType
	Limit  int
	Offset int
}

// QueueStats is a point-in-time queue census for the admin API.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`

	// OldestPendingAge is seconds since the oldest waiting task was
	// enqueued. A growing value means the workers are not keeping up.
	OldestPendingAge int64 `json:"oldest_pending_age"`
}

// SchedulerStore persists recurring task definitions. Schedules are
// configuration rather than queue items, so they live in Postgres even
// when the queue runs on Redis.
type SchedulerStore interface {
	GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error)
	ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)
	SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error
	DeleteScheduledTask(ctx context.Context, id string) error

	// GetDueScheduledTasks returns the enabled schedules whose next
	// run time has passed.
	GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// UpdateLastRun stamps the run, advances the next run time, and
	// records the enqueue error if any.
	UpdateLastRun(ctx context.Context, id string, lastError string) error
}
