// Package redis implements the ingest task queue on Redis Streams.
// A consumer group gives at-least-once delivery: a crashed worker's
// tasks sit in the group's pending list until another worker claims
// them after the abandonment window.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

var _ driven.TaskQueue = (*Queue)(nil)

const (
	ingestStream  = "ingest:stream"
	ingestGroup   = "ingest:workers"
	deferredTasks = "ingest:deferred"

	// taskRecordTTL bounds orphaned task records; normal cleanup goes
	// through PurgeTasks.
	taskRecordTTL = 24 * time.Hour

	// abandonedAfter is how long a claimed task may sit unacknowledged
	// before another worker may steal it.
	abandonedAfter = 5 * time.Minute
)

func taskKey(id string) string   { return "ingest:task:" + id }
func cursorKey(id string) string { return "ingest:task:" + id + ":msg" }

// Queue is the Redis Streams task queue. Task records live as JSON
// values keyed by ID; the stream carries only the ID plus routing
// fields, so a record can be inspected or purged without touching the
// stream.
type Queue struct {
	client   *redis.Client
	consumer string
}

// NewQueue creates the queue and its consumer group. The consumer name
// must be unique per worker process; an empty name gets a generated one.
func NewQueue(client *redis.Client, consumer string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumer == "" {
		consumer = "worker-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	q := &Queue{client: client, consumer: consumer}

	err := client.XGroupCreateMkStream(context.Background(), ingestStream, ingestGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

// Enqueue stores the task record and makes it available: immediately on
// the stream, or parked in the deferred set until ScheduledFor.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	pipe := q.client.Pipeline()
	if err := q.stage(ctx, pipe, task, time.Now()); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// EnqueueBatch enqueues all tasks in one round trip.
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	now := time.Now()
	pipe := q.client.Pipeline()
	for _, task := range tasks {
		if task == nil {
			continue
		}
		if err := q.stage(ctx, pipe, task, now); err != nil {
			return err
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue batch: %w", err)
	}
	return nil
}

// stage queues the record write plus either a stream add or a deferred
// park onto the pipeline.
func (q *Queue) stage(ctx context.Context, pipe redis.Pipeliner, task *domain.Task, now time.Time) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	pipe.Set(ctx, taskKey(task.ID), data, taskRecordTTL)

	if task.ScheduledFor.After(now) {
		pipe.ZAdd(ctx, deferredTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
		return nil
	}
	pipe.XAdd(ctx, &redis.XAddArgs{Stream: ingestStream, Values: streamFields(task)})
	return nil
}

func streamFields(task *domain.Task) map[string]interface{} {
	return map[string]interface{}{
		"task_id":  task.ID,
		"type":     string(task.Type),
		"priority": task.Priority,
	}
}

// Dequeue blocks until a task is available or the context ends.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout returns the next task, or nil after waiting up to
// timeout seconds. Due deferred tasks are promoted first, then
// abandoned claims are stolen, then the stream is read.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// Promotion is best effort; a failure here only delays the task
	_ = q.promoteDueTasks(ctx)

	if task, err := q.stealAbandoned(ctx); err == nil && task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ingestGroup,
		Consumer: q.consumer,
		Streams:  []string{ingestStream, ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.adopt(ctx, streams[0].Messages[0])
}

// adopt resolves a stream message to its task record, marks it
// processing, and remembers the message ID for the later ack or nack.
// Messages whose record vanished are acked away.
func (q *Queue) adopt(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	id, ok := msg.Values["task_id"].(string)
	if !ok {
		q.client.XAck(ctx, ingestStream, ingestGroup, msg.ID)
		return nil, nil
	}

	task, err := q.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	if task == nil {
		q.client.XAck(ctx, ingestStream, ingestGroup, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	q.writeRecord(ctx, task)
	q.client.Set(ctx, cursorKey(task.ID), msg.ID, taskRecordTTL)
	return task, nil
}

// Ack completes a task: the stream entry is acknowledged and deleted
// and the record flips to completed.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	msgID, err := q.client.Get(ctx, cursorKey(taskID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load message cursor: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, ingestStream, ingestGroup, msgID)
		pipe.XDel(ctx, ingestStream, msgID)
	}
	if task, err := q.GetTask(ctx, taskID); err == nil && task != nil {
		task.MarkCompleted()
		if data, err := json.Marshal(task); err == nil {
			pipe.Set(ctx, taskKey(taskID), data, taskRecordTTL)
		}
	}
	pipe.Del(ctx, cursorKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Nack records a failure. A task with retries left goes back through
// the deferred set at its backoff time; otherwise it is marked failed.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return errors.New("task not found")
	}

	msgID, _ := q.client.Get(ctx, cursorKey(taskID)).Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, ingestStream, ingestGroup, msgID)
		pipe.XDel(ctx, ingestStream, msgID)
	}

	if task.CanRetry() {
		task.Retry(reason)
		pipe.ZAdd(ctx, deferredTasks, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		task.MarkFailed(reason)
	}
	if data, err := json.Marshal(task); err == nil {
		pipe.Set(ctx, taskKey(taskID), data, taskRecordTTL)
	}
	pipe.Del(ctx, cursorKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// GetTask returns the task record, or nil when it does not exist.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKey(taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// ListTasks scans all task records and filters in memory. Postgres is
// the better backend for heavy task listing; this exists so the admin
// surface works on a Redis-only deployment.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := q.eachTask(ctx, func(task *domain.Task) bool {
		if filter.Status != "" && task.Status != filter.Status {
			return true
		}
		if filter.Type != "" && task.Type != filter.Type {
			return true
		}
		tasks = append(tasks, task)
		return filter.Limit <= 0 || len(tasks) < filter.Limit
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset >= len(tasks) {
		return []*domain.Task{}, nil
	}
	if filter.Offset > 0 {
		tasks = tasks[filter.Offset:]
	}
	return tasks, nil
}

// CancelTask cancels a task that has not started. Processing and
// finished tasks cannot be cancelled.
func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return errors.New("task not found")
	}
	switch task.Status {
	case domain.TaskStatusProcessing:
		return errors.New("cannot cancel task that is processing")
	case domain.TaskStatusCompleted, domain.TaskStatusFailed:
		return errors.New("cannot cancel completed or failed task")
	}

	task.Status = domain.TaskStatusFailed
	task.Error = "cancelled"
	task.UpdatedAt = time.Now()
	data, _ := json.Marshal(task)

	pipe := q.client.Pipeline()
	pipe.ZRem(ctx, deferredTasks, taskID)
	pipe.Set(ctx, taskKey(taskID), data, taskRecordTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// PurgeTasks deletes finished task records older than the given age and
// reports how many were removed.
func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	purged := 0
	err := q.eachTask(ctx, func(task *domain.Task) bool {
		finished := task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed
		if finished && task.UpdatedAt.Before(cutoff) {
			q.client.Del(ctx, taskKey(task.ID))
			purged++
		}
		return true
	})
	return purged, err
}

// Stats aggregates stream depth, deferred count, group pending, and the
// terminal counts from the record scan.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	info, err := q.client.XInfoStream(ctx, ingestStream).Result()
	switch {
	case err == nil:
		stats.PendingCount = int64(info.Length)
	case errors.Is(err, redis.Nil) || strings.Contains(err.Error(), "no such key"):
		// Stream not created yet, zero pending
	default:
		return nil, fmt.Errorf("stream info: %w", err)
	}

	deferred, err := q.client.ZCard(ctx, deferredTasks).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("deferred count: %w", err)
	}
	stats.PendingCount += deferred

	if groups, err := q.client.XInfoGroups(ctx, ingestStream).Result(); err == nil {
		for _, g := range groups {
			if g.Name == ingestGroup {
				stats.ProcessingCount = int64(g.Pending)
				break
			}
		}
	}

	err = q.eachTask(ctx, func(task *domain.Task) bool {
		switch task.Status {
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

// eachTask scans every task record and feeds it to fn until fn returns
// false. Cursor keys and undecodable records are skipped.
func (q *Queue) eachTask(ctx context.Context, fn func(*domain.Task) bool) error {
	var cursor uint64
	for {
		keys, next, err := q.client.Scan(ctx, cursor, "ingest:task:*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan tasks: %w", err)
		}
		for _, key := range keys {
			if strings.HasSuffix(key, ":msg") {
				continue
			}
			data, err := q.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			var task domain.Task
			if json.Unmarshal([]byte(data), &task) != nil {
				continue
			}
			if !fn(&task) {
				return nil
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}

// promoteDueTasks moves deferred tasks whose time has come onto the
// stream.
func (q *Queue) promoteDueTasks(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, deferredTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	pipe := q.client.Pipeline()
	for _, id := range due {
		task, err := q.GetTask(ctx, id)
		if err == nil && task != nil {
			pipe.XAdd(ctx, &redis.XAddArgs{Stream: ingestStream, Values: streamFields(task)})
		}
		pipe.ZRem(ctx, deferredTasks, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// stealAbandoned claims a message another worker left unacknowledged
// past the abandonment window.
func (q *Queue) stealAbandoned(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: ingestStream,
		Group:  ingestGroup,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   abandonedAfter,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   ingestStream,
			Group:    ingestGroup,
			Consumer: q.consumer,
			MinIdle:  abandonedAfter,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}

		task, err := q.adopt(ctx, claimed[0])
		if err != nil {
			continue
		}
		if task == nil {
			// Dead message, remove it from the stream entirely
			q.client.XDel(ctx, ingestStream, claimed[0].ID)
			continue
		}
		return task, nil
	}
	return nil, nil
}

// writeRecord persists the task record, ignoring marshal errors from
// values we just unmarshalled.
func (q *Queue) writeRecord(ctx context.Context, task *domain.Task) {
	if data, err := json.Marshal(task); err == nil {
		q.client.Set(ctx, taskKey(task.ID), data, taskRecordTTL)
	}
}
