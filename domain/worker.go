package domain

import (
	"context"
	"encoding/json"
)

// Kinds of work the tracking worker can follow.
const (
	KindTask       = "task"
	KindEvaluation = "evaluation"
)

//TrackRequest asks the worker to follow a backend job until it settles
type TrackRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=task evaluation"`
	ID        string `json:"id" validate:"required"`
	FileCount int    `json:"file_count" validate:"gte=0"`
	// Trigger starts grading before following an evaluation.
	Trigger bool `json:"trigger"`
}

//TrackResult ...
type TrackResult struct {
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

//JobManager ...
type JobManager interface {
	Start(ctx context.Context)
	Stop()
}

//Alert ...
type Alert interface {
	PushNotify(msg string) error
}

//TrackerUsecase follows one backend job to a terminal state
type TrackerUsecase interface {
	Track(ctx context.Context, rq TrackRequest) TrackResult
}
