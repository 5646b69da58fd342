package domain

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned for a missing store key or a 404 reply.
	ErrNotFound = errors.New("not found")
	// ErrSessionExpired means the refresh token was rejected and the stored session is gone.
	ErrSessionExpired = errors.New("session expired, please log in again")

	ErrTaskCancelled       = errors.New("task was cancelled")
	ErrTaskTimeout         = errors.New("operation is taking longer than expected")
	ErrSessionLost         = errors.New("evaluation session lost")
	ErrEvaluationTimeout   = errors.New("evaluation timed out waiting for results")
	ErrEvaluationFailed    = errors.New("evaluation failed")
	ErrPrerequisiteMissing = errors.New("prerequisite missing: upload a mark scheme first")
	ErrEvaluationInFlight  = errors.New("an evaluation is already running for this id")
	ErrCooldown            = errors.New("evaluation was triggered moments ago, try again shortly")
	ErrInvalidScore        = errors.New("invalid score")
	ErrNoCourseSelected    = errors.New("no course selected")
	ErrLMSNotConnected     = errors.New("not connected to the LMS")
)

//APIError is a non-2xx backend reply with its normalized message
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 replies.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Temporary reports whether the call may succeed when repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

//TaskFailedError carries the backend error string of a failed task verbatim
type TaskFailedError struct {
	TaskID  string
	Message string
}

func (e *TaskFailedError) Error() string {
	if e.Message == "" {
		return "task failed"
	}
	return e.Message
}

var displayed = []error{
	ErrSessionExpired,
	ErrTaskCancelled,
	ErrTaskTimeout,
	ErrSessionLost,
	ErrEvaluationTimeout,
	ErrPrerequisiteMissing,
	ErrEvaluationInFlight,
	ErrCooldown,
	ErrNoCourseSelected,
	ErrLMSNotConnected,
}

// Message turns any error into the one line shown to a user. Raw error values
// never reach the presentation layer.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var failed *TaskFailedError
	if errors.As(err, &failed) {
		return failed.Error()
	}
	for _, known := range displayed {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, context.Canceled) {
		return "request was cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "network error: could not reach the server"
	}
	return err.Error()
}
