package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/logger"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTasks struct {
	domain.TaskUsecase
	result json.RawMessage
	err    error
	opts   domain.PollOptions
}

func (f *fakeTasks) PollUntilComplete(ctx context.Context, taskID string, opts domain.PollOptions) (json.RawMessage, error) {
	f.opts = opts
	return f.result, f.err
}

type fakeEvaluations struct {
	mu        sync.Mutex
	ev        domain.Evaluation
	err       error
	triggered []int
	resumed   []string
}

func (f *fakeEvaluations) Evaluate(ctx context.Context, id string, fileCount int, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	f.mu.Lock()
	f.triggered = append(f.triggered, fileCount)
	f.mu.Unlock()
	onProgress(domain.Progress{Percent: 95})
	return f.ev, f.err
}

func (f *fakeEvaluations) Resume(ctx context.Context, id string, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	f.mu.Lock()
	f.resumed = append(f.resumed, id)
	f.mu.Unlock()
	return f.ev, f.err
}

func (f *fakeEvaluations) Status(ctx context.Context, id string) (domain.Evaluation, error) {
	return f.ev, f.err
}

var pollOpts = domain.PollOptions{MaxAttempts: 3, Interval: time.Millisecond}

func TestTrackTask(t *testing.T) {
	tasks := &fakeTasks{result: json.RawMessage(`{"quiz": []}`)}
	tr := NewTrackerUsecase(tasks, &fakeEvaluations{}, pollOpts, logger.Discard())

	res := tr.Track(context.Background(), domain.TrackRequest{Kind: domain.KindTask, ID: "t1"})
	assert.Equal(t, "completed", res.Status)
	assert.JSONEq(t, `{"quiz": []}`, string(res.Result))
	assert.Empty(t, res.Error)
	assert.Equal(t, pollOpts, tasks.opts)
}

func TestTrackTaskErrors(t *testing.T) {
	tests := []struct {
		err    error
		status string
		msg    string
	}{
		{&domain.TaskFailedError{TaskID: "t1", Message: "out of quota"}, "failed", "out of quota"},
		{domain.ErrTaskCancelled, "cancelled", "task was cancelled"},
		{domain.ErrTaskTimeout, StatusTimeout, "operation is taking longer than expected"},
		{domain.ErrSessionExpired, StatusExpired, "session expired, please log in again"},
		{&domain.APIError{StatusCode: 404, Message: "Task not found"}, StatusError, "Task not found"},
	}
	for _, tt := range tests {
		tr := NewTrackerUsecase(&fakeTasks{err: tt.err}, &fakeEvaluations{}, pollOpts, logger.Discard())
		res := tr.Track(context.Background(), domain.TrackRequest{Kind: domain.KindTask, ID: "t1"})
		assert.Equal(t, tt.status, res.Status)
		assert.Equal(t, tt.msg, res.Error)
	}
}

func TestTrackEvaluation(t *testing.T) {
	evals := &fakeEvaluations{ev: domain.Evaluation{
		Status: domain.EvaluationCompleted,
		Result: &domain.EvaluationResult{Students: []domain.StudentResult{{FileID: "f1", TotalScore: 7}}},
	}}
	tr := NewTrackerUsecase(&fakeTasks{}, evals, pollOpts, logger.Discard())

	res := tr.Track(context.Background(), domain.TrackRequest{Kind: domain.KindEvaluation, ID: "e1"})
	assert.Equal(t, "completed", res.Status)
	var result domain.EvaluationResult
	require.NoError(t, json.Unmarshal(res.Result, &result))
	assert.Equal(t, "f1", result.Students[0].FileID)
	assert.Equal(t, []string{"e1"}, evals.resumed)

	res = tr.Track(context.Background(), domain.TrackRequest{Kind: domain.KindEvaluation, ID: "e2", Trigger: true, FileCount: 4})
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, []int{4}, evals.triggered)
}

func TestTrackEvaluationSessionLost(t *testing.T) {
	tr := NewTrackerUsecase(&fakeTasks{}, &fakeEvaluations{err: domain.ErrSessionLost}, pollOpts, logger.Discard())
	res := tr.Track(context.Background(), domain.TrackRequest{Kind: domain.KindEvaluation, ID: "e1"})
	assert.Equal(t, StatusSessionLost, res.Status)
	assert.Equal(t, "evaluation session lost", res.Error)
}

type recordingAlert struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingAlert) PushNotify(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestJobManager(t *testing.T) {
	tasks := &fakeTasks{err: &domain.TaskFailedError{TaskID: "t1", Message: "out of quota"}}
	tr := NewTrackerUsecase(tasks, &fakeEvaluations{}, pollOpts, logger.Discard())

	jobQueue := make(chan *nats.Msg, 4)
	ansCh := make(chan []byte, 4)
	finished := make(chan bool, 1)
	alert := &recordingAlert{}
	m := NewJobManager(2, validator.New(), tr, jobQueue, ansCh, finished, alert, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)

	jobQueue <- &nats.Msg{Data: []byte(`not json`)}
	jobQueue <- &nats.Msg{Data: []byte(`{"kind": "report", "id": "x"}`)}
	jobQueue <- &nats.Msg{Data: []byte(`{"kind": "task", "id": "t1"}`)}

	var res domain.TrackResult
	select {
	case raw := <-ansCh:
		require.NoError(t, json.Unmarshal(raw, &res))
	case <-time.After(2 * time.Second):
		t.Fatal("no result published")
	}
	assert.Equal(t, "t1", res.ID)
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, "out of quota", res.Error)

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}

	alert.mu.Lock()
	defer alert.mu.Unlock()
	require.Len(t, alert.msgs, 1)
	assert.Contains(t, alert.msgs[0], "out of quota")
	assert.Len(t, ansCh, 0)
}
