package domain

import (
	"context"
	"encoding/json"
	"time"
)

//TaskStatus is the backend-owned lifecycle state of a task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the client should stop observing a task in this state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

//Task ...
type Task struct {
	TaskID  string          `json:"task_id"`
	Status  TaskStatus      `json:"status"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

//PollOptions bounds a poll loop to MaxAttempts status reads, Interval apart
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollOptions returns 180 attempts one second apart.
func DefaultPollOptions() PollOptions {
	return PollOptions{
		MaxAttempts: 180,
		Interval:    time.Second,
	}
}

//TaskRepository ...
type TaskRepository interface {
	Create(ctx context.Context, courseID, assetType string, payload interface{}) (Task, error)
	Update(ctx context.Context, courseID, assetName string, payload interface{}) (Task, error)
	Get(ctx context.Context, taskID string) (Task, error)
	Cancel(ctx context.Context, taskID string) error
}

//TaskUsecase ...
type TaskUsecase interface {
	Create(ctx context.Context, courseID, assetType string, payload interface{}) (string, error)
	Update(ctx context.Context, courseID, assetName string, payload interface{}) (string, error)
	PollUntilComplete(ctx context.Context, taskID string, opts PollOptions) (json.RawMessage, error)
	Cancel(ctx context.Context, taskID string) error
	Run(ctx context.Context, courseID, assetType string, payload interface{}, opts PollOptions) (json.RawMessage, error)
}
