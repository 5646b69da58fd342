package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_task_polls_total",
		Help: "The total number of task status reads",
	})
	taskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copilot_task_outcomes_total",
		Help: "Tasks observed to settle, by how they ended",
	}, []string{"status"})
)

type taskUsecase struct {
	repo   domain.TaskRepository
	logger *slog.Logger
}

//NewTaskUsecase ...
func NewTaskUsecase(repo domain.TaskRepository, logger *slog.Logger) domain.TaskUsecase {
	return &taskUsecase{
		repo:   repo,
		logger: logger,
	}
}

// Create submits a generation request and returns the task id to poll.
func (u *taskUsecase) Create(ctx context.Context, courseID, assetType string, payload interface{}) (string, error) {
	task, err := u.repo.Create(ctx, courseID, assetType, payload)
	if err != nil {
		return "", errors.Wrapf(err, "create %s task", assetType)
	}
	return u.accepted(task)
}

// Update submits an edit of an existing asset and returns the task id to poll.
func (u *taskUsecase) Update(ctx context.Context, courseID, assetName string, payload interface{}) (string, error) {
	task, err := u.repo.Update(ctx, courseID, assetName, payload)
	if err != nil {
		return "", errors.Wrapf(err, "update %s", assetName)
	}
	return u.accepted(task)
}

func (u *taskUsecase) accepted(task domain.Task) (string, error) {
	if task.TaskID == "" {
		return "", errors.New("backend accepted the request but returned no task id")
	}
	u.logger.Info("task submitted", "task_id", task.TaskID, "status", task.Status)
	return task.TaskID, nil
}

// PollUntilComplete reads the task status up to opts.MaxAttempts times,
// opts.Interval apart, and returns the result as soon as the task completes.
// A failed task returns *domain.TaskFailedError carrying the backend message.
func (u *taskUsecase) PollUntilComplete(ctx context.Context, taskID string, opts domain.PollOptions) (json.RawMessage, error) {
	defaults := domain.DefaultPollOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		taskPolls.Inc()
		task, err := u.repo.Get(ctx, taskID)
		switch {
		case err != nil && !retryable(err):
			return nil, errors.Wrapf(err, "poll task %s", taskID)
		case err != nil:
			u.logger.Warn("task status read failed, will retry",
				"task_id", taskID,
				"attempt", attempt,
				"error", err)
		default:
			switch task.Status {
			case domain.TaskCompleted:
				taskOutcomes.WithLabelValues(string(domain.TaskCompleted)).Inc()
				u.logger.Info("task completed", "task_id", taskID, "attempts", attempt)
				return task.Result, nil
			case domain.TaskFailed:
				taskOutcomes.WithLabelValues(string(domain.TaskFailed)).Inc()
				return nil, &domain.TaskFailedError{TaskID: taskID, Message: task.Error}
			case domain.TaskCancelled:
				taskOutcomes.WithLabelValues(string(domain.TaskCancelled)).Inc()
				return nil, domain.ErrTaskCancelled
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			return nil, err
		}
	}

	taskOutcomes.WithLabelValues("timeout").Inc()
	u.logger.Warn("gave up polling task", "task_id", taskID, "attempts", opts.MaxAttempts)
	return nil, domain.ErrTaskTimeout
}

// Cancel asks the backend to stop a task. Work already under way may still finish.
func (u *taskUsecase) Cancel(ctx context.Context, taskID string) error {
	if err := u.repo.Cancel(ctx, taskID); err != nil {
		u.logger.Warn("task cancel failed", "task_id", taskID, "error", err)
		return errors.Wrapf(err, "cancel task %s", taskID)
	}
	u.logger.Info("task cancel requested", "task_id", taskID)
	return nil
}

// Run is Create followed by PollUntilComplete.
func (u *taskUsecase) Run(ctx context.Context, courseID, assetType string, payload interface{}, opts domain.PollOptions) (json.RawMessage, error) {
	taskID, err := u.Create(ctx, courseID, assetType, payload)
	if err != nil {
		return nil, err
	}
	return u.PollUntilComplete(ctx, taskID, opts)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryable reports whether a failed status read is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrSessionExpired) {
		return false
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
