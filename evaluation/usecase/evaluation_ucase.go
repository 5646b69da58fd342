package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/future"
	"github.com/4406arthur/copilot/session"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// DefaultSaveGrace is how long Leave waits for outstanding report saves.
const DefaultSaveGrace = 1500 * time.Millisecond

var _ domain.EvaluationUsecase = (*Service)(nil)

//Service is the entry point for evaluation jobs: uploads, grading with
//progress, result review and report saving
type Service struct {
	repo      domain.EvaluationRepository
	session   *session.Session
	registry  *Registry
	tracker   *Tracker
	validate  *validator.Validate
	logger    *slog.Logger
	saveGrace time.Duration

	mu    sync.Mutex
	saves []*future.Future
}

//NewService ...
func NewService(repo domain.EvaluationRepository, sess *session.Session, registry *Registry, tracker *Tracker, validate *validator.Validate, saveGrace time.Duration, logger *slog.Logger) *Service {
	if saveGrace <= 0 {
		saveGrace = DefaultSaveGrace
	}
	return &Service{
		repo:      repo,
		session:   sess,
		registry:  registry,
		tracker:   tracker,
		validate:  validate,
		logger:    logger,
		saveGrace: saveGrace,
	}
}

// UploadMarkScheme is step one of a job; its reply establishes the evaluation id.
func (s *Service) UploadMarkScheme(ctx context.Context, file domain.UploadedFile, handwritten bool) (string, error) {
	userID, err := s.session.UserID(ctx)
	if err != nil {
		return "", errors.Wrap(err, "read user")
	}
	out, err := s.repo.UploadMarkScheme(ctx, userID, file, handwritten)
	if err != nil {
		return "", errors.Wrap(err, "upload mark scheme")
	}
	if out.EvaluationID == "" {
		return "", errors.New("mark scheme accepted but no evaluation id returned")
	}
	s.registry.RecordMarkScheme(out.EvaluationID)
	s.logger.Info("mark scheme uploaded", "evaluation_id", out.EvaluationID, "file", file.Name)
	return out.EvaluationID, nil
}

// UploadAnswerSheets is step two; it needs a mark scheme uploaded through
// this service for the same evaluation id.
func (s *Service) UploadAnswerSheets(ctx context.Context, evaluationID string, files []domain.UploadedFile, handwritten bool) (domain.AnswerSheetUpload, error) {
	if evaluationID == "" || !s.registry.HasMarkScheme(evaluationID) {
		return domain.AnswerSheetUpload{}, domain.ErrPrerequisiteMissing
	}
	if len(files) == 0 {
		return domain.AnswerSheetUpload{}, errors.New("no answer sheets to upload")
	}
	userID, err := s.session.UserID(ctx)
	if err != nil {
		return domain.AnswerSheetUpload{}, errors.Wrap(err, "read user")
	}
	out, err := s.repo.UploadAnswerSheets(ctx, userID, evaluationID, files, handwritten)
	if err != nil {
		return out, errors.Wrap(err, "upload answer sheets")
	}
	s.logger.Info("answer sheets uploaded", "evaluation_id", evaluationID, "count", len(files))
	return out, nil
}

// CreateEvaluationJob uploads the mark scheme, then the answer sheets, and
// returns the evaluation id to grade.
func (s *Service) CreateEvaluationJob(ctx context.Context, markScheme domain.UploadedFile, answerSheets []domain.UploadedFile, handwritten bool) (string, error) {
	id, err := s.UploadMarkScheme(ctx, markScheme, handwritten)
	if err != nil {
		return "", err
	}
	if _, err := s.UploadAnswerSheets(ctx, id, answerSheets, handwritten); err != nil {
		return id, err
	}
	return id, nil
}

// Evaluate triggers grading and follows it to the end. See Tracker.Run.
func (s *Service) Evaluate(ctx context.Context, evaluationID string, fileCount int, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	userID, err := s.session.UserID(ctx)
	if err != nil {
		return domain.Evaluation{}, errors.Wrap(err, "read user")
	}
	return s.tracker.Run(ctx, evaluationID, userID, fileCount, onProgress)
}

// Resume re-attaches to an evaluation by id. See Tracker.Resume.
func (s *Service) Resume(ctx context.Context, evaluationID string, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	return s.tracker.Resume(ctx, evaluationID, onProgress)
}

// Status reads the evaluation once.
func (s *Service) Status(ctx context.Context, evaluationID string) (domain.Evaluation, error) {
	return s.repo.Status(ctx, evaluationID)
}

// Review opens the record of one student for editing.
func (s *Service) Review(ev domain.Evaluation, fileID string) (*Review, error) {
	if ev.Result == nil {
		return nil, errors.Errorf("evaluation %s has no results yet", ev.EvaluationID)
	}
	for _, st := range ev.Result.Students {
		if st.FileID == fileID {
			return newReview(s.repo, s.validate, ev.EvaluationID, st), nil
		}
	}
	return nil, errors.Wrapf(domain.ErrNotFound, "student %s", fileID)
}

// SaveReport stores the results as a named asset in the background. An empty
// assetName falls back to the pending name kept in the session. The save is
// detached from ctx cancellation; use Leave to give it a chance to land.
func (s *Service) SaveReport(ctx context.Context, evaluationID, assetName string) *future.Future {
	f := future.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		name := assetName
		if name == "" {
			pending, err := s.session.PendingEvaluationAssetName(ctx)
			if err != nil {
				return err
			}
			name = pending
		}
		if name == "" {
			return errors.New("no report name given")
		}
		if err := s.repo.Save(ctx, evaluationID, name); err != nil {
			s.logger.Error("report save failed", "evaluation_id", evaluationID, "asset_name", name, "error", err)
			return errors.Wrap(err, "save report")
		}
		s.logger.Info("report saved", "evaluation_id", evaluationID, "asset_name", name)
		return s.session.ClearPendingEvaluationAssetName(ctx)
	})

	s.mu.Lock()
	s.saves = append(s.saves, f)
	s.mu.Unlock()
	return f
}

// Leave waits up to the save grace period, in total, for report saves still
// running. It returns future.ErrAbandoned if any had to be left behind, or
// the first save error.
func (s *Service) Leave() error {
	s.mu.Lock()
	saves := s.saves
	s.saves = nil
	s.mu.Unlock()

	deadline := time.Now().Add(s.saveGrace)
	var first error
	for _, f := range saves {
		err := f.WaitFor(time.Until(deadline))
		if err != nil && first == nil {
			first = err
		}
	}
	if errors.Is(first, future.ErrAbandoned) {
		s.logger.Warn("left before report save finished")
	}
	return first
}
