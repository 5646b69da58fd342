package domain

import (
	"context"
	"time"
)

//EvaluationStatus ...
type EvaluationStatus string

const (
	EvaluationPending    EvaluationStatus = "pending"
	EvaluationProcessing EvaluationStatus = "processing"
	EvaluationCompleted  EvaluationStatus = "completed"
	EvaluationFailed     EvaluationStatus = "failed"
	EvaluationCancelled  EvaluationStatus = "cancelled"
)

//StudentStatus tracks whether a reviewer has looked at or edited a student record
type StudentStatus string

const (
	StudentUnopened StudentStatus = "unopened"
	StudentOpened   StudentStatus = "opened"
	StudentModified StudentStatus = "modified"
)

//Answer is one graded question of a student answer sheet
type Answer struct {
	QuestionNumber int     `json:"question_number"`
	QuestionText   string  `json:"question_text"`
	StudentAnswer  string  `json:"student_answer"`
	Score          float64 `json:"score"`
	MaxScore       float64 `json:"max_score"`
	Feedback       string  `json:"feedback"`
}

//StudentResult ...
type StudentResult struct {
	FileID        string        `json:"file_id"`
	TotalScore    float64       `json:"total_score"`
	MaxTotalScore float64       `json:"max_total_score"`
	Status        StudentStatus `json:"status"`
	Answers       []Answer      `json:"answers"`
}

// RecomputeTotal sets TotalScore to the sum of the per-question scores.
func (s *StudentResult) RecomputeTotal() {
	var total float64
	for _, a := range s.Answers {
		total += a.Score
	}
	s.TotalScore = total
}

//EvaluationResult ...
type EvaluationResult struct {
	Students []StudentResult `json:"students"`
}

//Evaluation is a grading task: answer sheets scored against a mark scheme
type Evaluation struct {
	EvaluationID         string            `json:"evaluation_id"`
	Status               EvaluationStatus  `json:"status"`
	Result               *EvaluationResult `json:"evaluation_result,omitempty"`
	AnswerSheetFilenames []string          `json:"answer_sheet_filenames,omitempty"`
	Error                string            `json:"error,omitempty"`
}

//UploadedFile is a named file body for a multipart upload
type UploadedFile struct {
	Name    string
	Content []byte
}

//MarkSchemeUpload ...
type MarkSchemeUpload struct {
	EvaluationID string `json:"evaluation_id"`
	MarkSchemeID string `json:"mark_scheme_file_id,omitempty"`
}

//AnswerSheetUpload ...
type AnswerSheetUpload struct {
	EvaluationID string   `json:"evaluation_id"`
	FileIDs      []string `json:"answer_sheet_file_ids,omitempty"`
}

//ResultEdit is the body of one per-question edit call
type ResultEdit struct {
	EvaluationID   string  `json:"evaluation_id"`
	FileID         string  `json:"file_id"`
	QuestionNumber int     `json:"question_number"`
	Score          float64 `json:"score"`
	Feedback       string  `json:"feedback"`
}

//Progress is an estimated, non-authoritative view of a running evaluation
type Progress struct {
	Percent int
	Stage   string
	Elapsed time.Duration
}

//EvaluationRepository ...
type EvaluationRepository interface {
	UploadMarkScheme(ctx context.Context, userID string, file UploadedFile, handwritten bool) (MarkSchemeUpload, error)
	UploadAnswerSheets(ctx context.Context, userID, evaluationID string, files []UploadedFile, handwritten bool) (AnswerSheetUpload, error)
	Evaluate(ctx context.Context, evaluationID, userID string) error
	Status(ctx context.Context, evaluationID string) (Evaluation, error)
	FallbackStatus(ctx context.Context, evaluationID string) (Evaluation, error)
	EditResult(ctx context.Context, edit ResultEdit) error
	Save(ctx context.Context, evaluationID, assetName string) error
}

//EvaluationUsecase is the part of the evaluation service other components drive
type EvaluationUsecase interface {
	Evaluate(ctx context.Context, evaluationID string, fileCount int, onProgress func(Progress)) (Evaluation, error)
	Resume(ctx context.Context, evaluationID string, onProgress func(Progress)) (Evaluation, error)
	Status(ctx context.Context, evaluationID string) (Evaluation, error)
}
