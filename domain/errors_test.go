package domain

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"api error", errors.Wrap(&APIError{StatusCode: 400, Message: "email: field required"}, "create"), "email: field required"},
		{"task failed", &TaskFailedError{TaskID: "t1", Message: "out of quota"}, "out of quota"},
		{"task failed without message", &TaskFailedError{TaskID: "t1"}, "task failed"},
		{"session expired wrapped", errors.Wrap(ErrSessionExpired, "refresh"), "session expired, please log in again"},
		{"session lost", errors.Wrap(ErrSessionLost, "evaluation e1"), "evaluation session lost"},
		{"timeout", ErrTaskTimeout, "operation is taking longer than expected"},
		{"cancelled context", errors.Wrap(context.Canceled, "poll"), "request was cancelled"},
		{"deadline", context.DeadlineExceeded, "request timed out"},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, "network error: could not reach the server"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestAPIErrorMatchesNotFound(t *testing.T) {
	assert.True(t, errors.Is(&APIError{StatusCode: 404, Message: "x"}, ErrNotFound))
	assert.False(t, errors.Is(&APIError{StatusCode: 500, Message: "x"}, ErrNotFound))

	assert.True(t, (&APIError{StatusCode: 503}).Temporary())
	assert.True(t, (&APIError{StatusCode: 429}).Temporary())
	assert.False(t, (&APIError{StatusCode: 400}).Temporary())
}

func TestStudentResultRecomputeTotal(t *testing.T) {
	s := StudentResult{
		TotalScore: 99,
		Answers: []Answer{
			{QuestionNumber: 1, Score: 2, MaxScore: 5},
			{QuestionNumber: 2, Score: 3.5, MaxScore: 5},
		},
	}
	s.RecomputeTotal()
	assert.Equal(t, 5.5, s.TotalScore)
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskProcessing.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.True(t, TaskCancelled.Terminal())
}
