package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/4406arthur/copilot/domain"
)

type statusReply struct {
	ev  domain.Evaluation
	err error
}

// fakeRepo scripts Status replies (the last repeats) and records every call.
type fakeRepo struct {
	mu sync.Mutex

	statuses    []statusReply
	statusCalls int
	// statusHang makes Status wait for its context and records the deadline.
	statusHang     bool
	statusDeadline time.Time
	fallback    statusReply
	fallbacks   int
	evaluateErr error
	evaluates   int

	markScheme   domain.MarkSchemeUpload
	markUploads  int
	sheetUploads int
	edits        []domain.ResultEdit
	editErr      map[int]error
	saves        []string
	saveErr      error
	saveBlock    chan struct{}
}

func (f *fakeRepo) UploadMarkScheme(ctx context.Context, userID string, file domain.UploadedFile, handwritten bool) (domain.MarkSchemeUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markUploads++
	return f.markScheme, nil
}

func (f *fakeRepo) UploadAnswerSheets(ctx context.Context, userID, evaluationID string, files []domain.UploadedFile, handwritten bool) (domain.AnswerSheetUpload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheetUploads++
	return domain.AnswerSheetUpload{EvaluationID: evaluationID}, nil
}

func (f *fakeRepo) Evaluate(ctx context.Context, evaluationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluates++
	return f.evaluateErr
}

func (f *fakeRepo) Status(ctx context.Context, evaluationID string) (domain.Evaluation, error) {
	f.mu.Lock()
	if f.statusHang {
		f.statusCalls++
		f.statusDeadline, _ = ctx.Deadline()
		f.mu.Unlock()
		<-ctx.Done()
		return domain.Evaluation{}, ctx.Err()
	}
	defer f.mu.Unlock()
	r := f.statuses[len(f.statuses)-1]
	if f.statusCalls < len(f.statuses) {
		r = f.statuses[f.statusCalls]
	}
	f.statusCalls++
	return r.ev, r.err
}

func (f *fakeRepo) FallbackStatus(ctx context.Context, evaluationID string) (domain.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks++
	return f.fallback.ev, f.fallback.err
}

func (f *fakeRepo) EditResult(ctx context.Context, edit domain.ResultEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editErr[edit.QuestionNumber]; err != nil {
		return err
	}
	f.edits = append(f.edits, edit)
	return nil
}

func (f *fakeRepo) Save(ctx context.Context, evaluationID, assetName string) error {
	if f.saveBlock != nil {
		<-f.saveBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, assetName)
	return f.saveErr
}

func (f *fakeRepo) calls() (status, fallback int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.fallbacks
}

func processing() statusReply {
	return statusReply{ev: domain.Evaluation{Status: domain.EvaluationProcessing}}
}

func notFound() statusReply {
	return statusReply{err: &domain.APIError{StatusCode: 404, Message: "Evaluation not found"}}
}

func completedWith(n int) statusReply {
	res := &domain.EvaluationResult{}
	for i := 0; i < n; i++ {
		res.Students = append(res.Students, domain.StudentResult{
			FileID:        string(rune('a' + i)),
			MaxTotalScore: 10,
			Answers: []domain.Answer{
				{QuestionNumber: 1, Score: 3, MaxScore: 5},
				{QuestionNumber: 2, Score: 4, MaxScore: 5},
			},
			TotalScore: 7,
		})
	}
	return statusReply{ev: domain.Evaluation{Status: domain.EvaluationCompleted, Result: res}}
}
