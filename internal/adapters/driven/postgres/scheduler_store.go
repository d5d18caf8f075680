package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/finsight-core/internal/core/domain"
	"github.com/custodia-labs/finsight-core/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*SchedulerStore)(nil)

const scheduledTaskColumns = `id, name, type, interval_ns, enabled, next_run, last_run, last_error, payload`

// SchedulerStore persists recurring task schedules.
type SchedulerStore struct {
	db *DB
}

func NewSchedulerStore(db *DB) *SchedulerStore {
	return &SchedulerStore{db: db}
}

// scanScheduledTask reads one row in scheduledTaskColumns order.
func scanScheduledTask(row interface{ Scan(...any) error }) (*domain.ScheduledTask, error) {
	var (
		task       domain.ScheduledTask
		lastRun    sql.NullTime
		lastError  sql.NullString
		intervalNs int64
		payload    []byte
	)
	err := row.Scan(
		&task.ID, &task.Name, &task.Type, &intervalNs,
		&task.Enabled, &task.NextRun, &lastRun, &lastError, &payload,
	)
	if err != nil {
		return nil, err
	}

	task.Interval = time.Duration(intervalNs)
	task.LastRun = TimePtr(lastRun)
	task.LastError = lastError.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal schedule payload: %w", err)
		}
	}
	return &task, nil
}

func (s *SchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledTaskColumns+` FROM scheduled_tasks WHERE id = $1`, id)

	task, err := scanScheduledTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *SchedulerStore) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledTaskColumns+` FROM scheduled_tasks ORDER BY next_run ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledTasks(rows)
}

// SaveScheduledTask upserts a schedule by ID.
func (s *SchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal schedule payload: %w", err)
	}
	if task.Payload == nil {
		payload = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, name, type, interval_ns, enabled, next_run, last_run, last_error, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			interval_ns = EXCLUDED.interval_ns,
			enabled = EXCLUDED.enabled,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error,
			payload = EXCLUDED.payload`,
		task.ID, task.Name, string(task.Type), int64(task.Interval),
		task.Enabled, task.NextRun, NullTime(task.LastRun), task.LastError, payload,
	)
	return err
}

func (s *SchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDueScheduledTasks returns enabled schedules whose next run has
// passed.
func (s *SchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduledTaskColumns+`
		FROM scheduled_tasks
		WHERE enabled = true AND next_run <= $1
		ORDER BY next_run ASC`,
		time.Now(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledTasks(rows)
}

// UpdateLastRun records an execution and advances next_run by the
// schedule's interval.
func (s *SchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	task, err := s.GetScheduledTask(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks
		SET last_run = $1, next_run = $2, last_error = $3
		WHERE id = $4`,
		now, now.Add(task.Interval), lastError, id,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectScheduledTasks(rows *sql.Rows) ([]*domain.ScheduledTask, error) {
	var tasks []*domain.ScheduledTask
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
