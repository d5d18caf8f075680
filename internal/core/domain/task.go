package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a 128-bit random identifier, URL-safe.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies a kind of background job.
type TaskType string

const (
	TaskTypeIngestFiling TaskType = "ingest_filing" // download, chunk, and index one filing
	TaskTypeSyncCompany  TaskType = "sync_company"  // fetch recent filings for one company
	TaskTypeSyncCorpus   TaskType = "sync_corpus"   // refresh every company in the registry
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

const (
	defaultMaxAttempts = 3
	maxRetryBackoff    = 5 * time.Minute
)

// Task is one unit of work for the ingest workers. The payload keys
// depend on the type: ingest_filing carries "filing_id", sync_company
// carries "ticker", sync_corpus is empty.
type Task struct {
	ID      string            `json:"id"`
	Type    TaskType          `json:"type"`
	Payload map[string]string `json:"payload"`
	Status  TaskStatus        `json:"status"`

	// Priority orders dequeueing, higher first. Range -100 to 100.
	Priority int `json:"priority"`

	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor delays processing, used for retry backoff.
	ScheduledFor time.Time `json:"scheduled_for"`
}

func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  defaultMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestFilingTask creates a task to process one stored filing.
func NewIngestFilingTask(filingID string) *Task {
	return NewTask(TaskTypeIngestFiling, map[string]string{"filing_id": filingID})
}

// NewSyncCompanyTask creates a task to fetch recent filings for a company.
func NewSyncCompanyTask(ticker string) *Task {
	return NewTask(TaskTypeSyncCompany, map[string]string{"ticker": ticker})
}

// NewSyncCorpusTask creates a task to refresh the whole corpus.
func NewSyncCorpusTask() *Task {
	return NewTask(TaskTypeSyncCorpus, nil)
}

func (t *Task) FilingID() string { return t.Payload["filing_id"] }

func (t *Task) Ticker() string { return t.Payload["ticker"] }

func (t *Task) CanRetry() bool { return t.Attempts < t.MaxAttempts }

// IsReady reports whether the task is pending and past any backoff delay.
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing transitions to processing and counts the attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry returns the task to pending with exponential backoff based on
// the attempt count, capped at maxRetryBackoff.
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err
	t.ScheduledFor = now.Add(retryBackoff(t.Attempts))
}

func retryBackoff(attempts int) time.Duration {
	backoff := time.Duration(1<<attempts) * time.Second
	if backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}

// TaskResult is the outcome of processing one task.
type TaskResult struct {
	TaskID      string        `json:"task_id"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	ItemsCount  int           `json:"items_count,omitempty"`
	ErrorsCount int           `json:"errors_count,omitempty"`
}

// ScheduledTask is a recurring task definition. The scheduler enqueues
// a Task of the given Type each time the interval elapses.
type ScheduledTask struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      TaskType      `json:"type"`
	Interval  time.Duration `json:"interval"`
	Enabled   bool          `json:"enabled"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	NextRun   time.Time     `json:"next_run"`
	LastError string        `json:"last_error,omitempty"`

	// Payload is copied onto each queue task this schedule triggers.
	// A sync_company schedule carries {"ticker": "AAPL"} here.
	Payload map[string]string `json:"payload,omitempty"`
}

// NewScheduledTask creates an enabled schedule whose first run is one
// interval from now.
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && time.Now().After(s.NextRun)
}

// UpdateNextRun records the run and advances the schedule one interval.
func (s *ScheduledTask) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

// DefaultSchedulerConfig returns the schedules seeded at startup.
func DefaultSchedulerConfig() []*ScheduledTask {
	return []*ScheduledTask{
		NewScheduledTask("corpus-refresh", "Corpus Refresh", TaskTypeSyncCorpus, 24*time.Hour),
	}
}
