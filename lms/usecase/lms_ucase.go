package usecase

import (
	"context"
	"log/slog"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/session"
	"github.com/pkg/errors"
)

//Service keeps the LMS connection in the session and reuses it per call
type Service struct {
	repo    domain.LMSRepository
	session *session.Session
	logger  *slog.Logger
}

//NewService ...
func NewService(repo domain.LMSRepository, sess *session.Session, logger *slog.Logger) *Service {
	return &Service{repo: repo, session: sess, logger: logger}
}

// Connect logs in to the LMS through the backend and stores the session.
func (s *Service) Connect(ctx context.Context, lmsURL, username, password string) (domain.LMSSession, error) {
	l, err := s.repo.Login(ctx, lmsURL, username, password)
	if err != nil {
		return l, errors.Wrap(err, "lms login")
	}
	if err := s.session.SetLMS(ctx, l); err != nil {
		return l, err
	}
	s.logger.Info("connected to lms", "lms_user", l.User)
	return l, nil
}

// Courses lists LMS courses and caches them in the session.
func (s *Service) Courses(ctx context.Context) ([]domain.LMSCourse, error) {
	l, err := s.session.LMS(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.Courses(ctx, l)
	if err != nil {
		return nil, errors.Wrap(err, "list lms courses")
	}
	if err := s.session.SetLMSCourses(ctx, courses); err != nil {
		s.logger.Warn("could not cache lms courses", "error", err)
	}
	return courses, nil
}

func (s *Service) Modules(ctx context.Context, courseID string) ([]domain.LMSModule, error) {
	l, err := s.session.LMS(ctx)
	if err != nil {
		return nil, err
	}
	modules, err := s.repo.Modules(ctx, l, courseID)
	return modules, errors.Wrap(err, "list lms modules")
}

func (s *Service) CreateModule(ctx context.Context, courseID, name string) (domain.LMSModule, error) {
	l, err := s.session.LMS(ctx)
	if err != nil {
		return domain.LMSModule{}, err
	}
	m, err := s.repo.CreateModule(ctx, l, courseID, name)
	if err != nil {
		return m, errors.Wrap(err, "create lms module")
	}
	s.logger.Info("lms module created", "course_id", courseID, "module_id", m.ID)
	return m, nil
}
