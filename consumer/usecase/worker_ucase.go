package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/4406arthur/copilot/domain"
	"github.com/pkg/errors"
	"github.com/pquerna/ffjson/ffjson"
)

// Result statuses published for settled jobs besides the task statuses.
const (
	StatusTimeout     = "timeout"
	StatusSessionLost = "session_lost"
	StatusExpired     = "session_expired"
	StatusError       = "error"
)

type trackerUsecase struct {
	tasks       domain.TaskUsecase
	evaluations domain.EvaluationUsecase
	pollOpts    domain.PollOptions
	logger      *slog.Logger
}

//NewTrackerUsecase ...
func NewTrackerUsecase(tasks domain.TaskUsecase, evaluations domain.EvaluationUsecase, pollOpts domain.PollOptions, logger *slog.Logger) domain.TrackerUsecase {
	return &trackerUsecase{
		tasks:       tasks,
		evaluations: evaluations,
		pollOpts:    pollOpts,
		logger:      logger,
	}
}

func (w *trackerUsecase) Track(ctx context.Context, rq domain.TrackRequest) domain.TrackResult {
	var (
		result json.RawMessage
		err    error
	)
	switch rq.Kind {
	case domain.KindTask:
		result, err = w.tasks.PollUntilComplete(ctx, rq.ID, w.pollOpts)
	case domain.KindEvaluation:
		result, err = w.evaluation(ctx, rq)
	default:
		err = errors.Errorf("unknown job kind %q", rq.Kind)
	}

	out := domain.TrackResult{Kind: rq.Kind, ID: rq.ID, Result: result}
	if err != nil {
		out.Status = statusOf(err)
		out.Error = domain.Message(err)
		w.logger.Warn("job settled with error", "kind", rq.Kind, "id", rq.ID, "status", out.Status, "error", err)
		return out
	}
	out.Status = string(domain.TaskCompleted)
	w.logger.Info("job completed", "kind", rq.Kind, "id", rq.ID)
	return out
}

func (w *trackerUsecase) evaluation(ctx context.Context, rq domain.TrackRequest) (json.RawMessage, error) {
	logProgress := func(p domain.Progress) {
		w.logger.Debug("evaluation progress", "id", rq.ID, "percent", p.Percent, "stage", p.Stage)
	}
	var (
		ev  domain.Evaluation
		err error
	)
	if rq.Trigger {
		ev, err = w.evaluations.Evaluate(ctx, rq.ID, rq.FileCount, logProgress)
	} else {
		ev, err = w.evaluations.Resume(ctx, rq.ID, logProgress)
	}
	if err != nil {
		return nil, err
	}
	if ev.Result == nil {
		return nil, nil
	}
	return ffjson.Marshal(ev.Result)
}

func statusOf(err error) string {
	var failed *domain.TaskFailedError
	switch {
	case errors.As(err, &failed), errors.Is(err, domain.ErrEvaluationFailed):
		return string(domain.TaskFailed)
	case errors.Is(err, domain.ErrTaskCancelled), errors.Is(err, context.Canceled):
		return string(domain.TaskCancelled)
	case errors.Is(err, domain.ErrTaskTimeout), errors.Is(err, domain.ErrEvaluationTimeout):
		return StatusTimeout
	case errors.Is(err, domain.ErrSessionLost):
		return StatusSessionLost
	case errors.Is(err, domain.ErrSessionExpired):
		return StatusExpired
	}
	return StatusError
}
