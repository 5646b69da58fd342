package usecase

import (
	"context"
	"testing"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/logger"
	"github.com/4406arthur/copilot/session"
	"github.com/4406arthur/copilot/storage/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLMS struct {
	seen     []domain.LMSSession
	loginErr error
}

func (f *fakeLMS) Login(ctx context.Context, lmsURL, username, password string) (domain.LMSSession, error) {
	if f.loginErr != nil {
		return domain.LMSSession{}, f.loginErr
	}
	return domain.LMSSession{Cookies: "sid=1", Token: "lt", User: username}, nil
}

func (f *fakeLMS) Courses(ctx context.Context, s domain.LMSSession) ([]domain.LMSCourse, error) {
	f.seen = append(f.seen, s)
	return []domain.LMSCourse{{ID: "101", Name: "Biology"}}, nil
}

func (f *fakeLMS) Modules(ctx context.Context, s domain.LMSSession, courseID string) ([]domain.LMSModule, error) {
	f.seen = append(f.seen, s)
	return []domain.LMSModule{{ID: "m1", Name: "Cells", CourseID: courseID}}, nil
}

func (f *fakeLMS) CreateModule(ctx context.Context, s domain.LMSSession, courseID, name string) (domain.LMSModule, error) {
	f.seen = append(f.seen, s)
	return domain.LMSModule{ID: "m2", Name: name, CourseID: courseID}, nil
}

func TestLMSRequiresConnection(t *testing.T) {
	svc := NewService(&fakeLMS{}, session.New(memory.NewStore()), logger.Discard())

	_, err := svc.Courses(context.Background())
	assert.ErrorIs(t, err, domain.ErrLMSNotConnected)
	_, err = svc.CreateModule(context.Background(), "101", "Genetics")
	assert.ErrorIs(t, err, domain.ErrLMSNotConnected)
}

func TestLMSConnectThenUse(t *testing.T) {
	ctx := context.Background()
	repo := &fakeLMS{}
	sess := session.New(memory.NewStore())
	svc := NewService(repo, sess, logger.Discard())

	_, err := svc.Connect(ctx, "https://lms.example.edu", "instructor", "secret")
	require.NoError(t, err)

	courses, err := svc.Courses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	cached, err := sess.LMSCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, courses, cached)

	modules, err := svc.Modules(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "101", modules[0].CourseID)

	m, err := svc.CreateModule(ctx, "101", "Genetics")
	require.NoError(t, err)
	assert.Equal(t, "Genetics", m.Name)

	require.Len(t, repo.seen, 3)
	for _, s := range repo.seen {
		assert.Equal(t, "sid=1", s.Cookies)
	}
}

func TestLMSConnectFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	sess := session.New(memory.NewStore())
	svc := NewService(&fakeLMS{loginErr: &domain.APIError{StatusCode: 401, Message: "bad LMS credentials"}}, sess, logger.Discard())

	_, err := svc.Connect(ctx, "https://lms.example.edu", "instructor", "wrong")
	assert.Equal(t, "bad LMS credentials", domain.Message(err))
	_, err = sess.LMS(ctx)
	assert.True(t, errors.Is(err, domain.ErrLMSNotConnected))
}
