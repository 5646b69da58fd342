package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/4406arthur/copilot/domain"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type scoreInput struct {
	Score    float64 `validate:"gte=0,ltefield=MaxScore"`
	MaxScore float64 `validate:"gte=0"`
}

type stagedEdit struct {
	score    float64
	feedback string
}

//Review holds a reviewer's pending score and feedback changes for one student.
//Nothing reaches the backend until Save.
type Review struct {
	evaluationID string
	student      domain.StudentResult
	repo         domain.EvaluationRepository
	validate     *validator.Validate
	staged       map[int]stagedEdit
}

func newReview(repo domain.EvaluationRepository, validate *validator.Validate, evaluationID string, student domain.StudentResult) *Review {
	student.Answers = append([]domain.Answer(nil), student.Answers...)
	if student.Status == "" || student.Status == domain.StudentUnopened {
		student.Status = domain.StudentOpened
	}
	return &Review{
		evaluationID: evaluationID,
		student:      student,
		repo:         repo,
		validate:     validate,
		staged:       make(map[int]stagedEdit),
	}
}

// Student returns the current local view of the record.
func (r *Review) Student() domain.StudentResult {
	s := r.student
	s.Answers = append([]domain.Answer(nil), r.student.Answers...)
	return s
}

// Pending is the number of staged, unsaved questions.
func (r *Review) Pending() int {
	return len(r.staged)
}

// Stage validates a new score for the question at index and queues it.
// scoreText must be a number in [0, max_score]; empty input is rejected.
func (r *Review) Stage(index int, scoreText, feedback string) error {
	if index < 0 || index >= len(r.student.Answers) {
		return fmt.Errorf("%w: question %d does not exist", domain.ErrInvalidScore, index+1)
	}
	answer := r.student.Answers[index]

	text := strings.TrimSpace(scoreText)
	if text == "" {
		return fmt.Errorf("%w: score is required", domain.ErrInvalidScore)
	}
	score, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidScore, text)
	}
	if err := r.validate.Struct(scoreInput{Score: score, MaxScore: answer.MaxScore}); err != nil {
		return fmt.Errorf("%w: score must be between 0 and %s", domain.ErrInvalidScore,
			strconv.FormatFloat(answer.MaxScore, 'f', -1, 64))
	}

	r.staged[index] = stagedEdit{score: score, feedback: feedback}
	return nil
}

// Save sends staged questions one call each, in question order. The first
// failure stops the batch; questions saved before it stay saved on the
// backend and locally, and saved reports how many there were.
func (r *Review) Save(ctx context.Context) (saved int, err error) {
	indices := make([]int, 0, len(r.staged))
	for i := range r.staged {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, i := range indices {
		edit := r.staged[i]
		answer := &r.student.Answers[i]
		number := answer.QuestionNumber
		if number == 0 {
			number = i + 1
		}
		err := r.repo.EditResult(ctx, domain.ResultEdit{
			EvaluationID:   r.evaluationID,
			FileID:         r.student.FileID,
			QuestionNumber: number,
			Score:          edit.score,
			Feedback:       edit.feedback,
		})
		if err != nil {
			return saved, errors.Wrapf(err, "save question %d", number)
		}
		answer.Score = edit.score
		answer.Feedback = edit.feedback
		delete(r.staged, i)
		saved++
		r.student.RecomputeTotal()
		r.student.Status = domain.StudentModified
	}
	return saved, nil
}
