// Package session gives typed access to the persisted client state: the
// backend credentials, the current course, and the LMS connection.
package session

import (
	"context"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/pquerna/ffjson/ffjson"
)

// Session wraps a Store. It holds no state of its own, so any number of
// Session values over the same Store agree with each other.
type Session struct {
	store domain.Store
}

// New returns a Session backed by store.
func New(store domain.Store) *Session {
	return &Session{store: store}
}

// Store exposes the underlying store.
func (s *Session) Store() domain.Store {
	return s.store
}

// AccessToken returns the stored access token, or "" when none is stored.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	return s.optional(ctx, domain.KeyToken)
}

// RefreshToken returns the stored refresh token, or "" when none is stored.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	return s.optional(ctx, domain.KeyRefreshToken)
}

// SetTokens persists a new token pair. An empty refresh token keeps the old one.
func (s *Session) SetTokens(ctx context.Context, pair domain.TokenPair) error {
	if err := s.store.Set(ctx, domain.KeyToken, pair.AccessToken); err != nil {
		return err
	}
	if pair.RefreshToken == "" {
		return nil
	}
	return s.store.Set(ctx, domain.KeyRefreshToken, pair.RefreshToken)
}

// User returns the stored user record.
func (s *Session) User(ctx context.Context) (domain.User, error) {
	var u domain.User
	raw, err := s.store.Get(ctx, domain.KeyUser)
	if err != nil {
		return u, err
	}
	if err := ffjson.Unmarshal([]byte(raw), &u); err != nil {
		return u, errors.Wrap(err, "decode stored user")
	}
	return u, nil
}

// SetUser persists the user record as JSON.
func (s *Session) SetUser(ctx context.Context, u domain.User) error {
	raw, err := ffjson.Marshal(&u)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}
	return s.store.Set(ctx, domain.KeyUser, string(raw))
}

// UserID is a shortcut for User().ID.
func (s *Session) UserID(ctx context.Context) (string, error) {
	u, err := s.User(ctx)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// CurrentCourse returns the selected course id and title.
func (s *Session) CurrentCourse(ctx context.Context) (id, title string, err error) {
	id, err = s.optional(ctx, domain.KeyCurrentCourseID)
	if err != nil {
		return "", "", err
	}
	if id == "" {
		return "", "", domain.ErrNoCourseSelected
	}
	title, err = s.optional(ctx, domain.KeyCurrentCourseTitle)
	return id, title, err
}

// SetCurrentCourse selects the course later commands operate on.
func (s *Session) SetCurrentCourse(ctx context.Context, id, title string) error {
	if err := s.store.Set(ctx, domain.KeyCurrentCourseID, id); err != nil {
		return err
	}
	return s.store.Set(ctx, domain.KeyCurrentCourseTitle, title)
}

// PendingEvaluationAssetName is the report name to save once an evaluation completes.
func (s *Session) PendingEvaluationAssetName(ctx context.Context) (string, error) {
	return s.optional(ctx, domain.KeyPendingEvaluationAssetName)
}

func (s *Session) SetPendingEvaluationAssetName(ctx context.Context, name string) error {
	return s.store.Set(ctx, domain.KeyPendingEvaluationAssetName, name)
}

func (s *Session) ClearPendingEvaluationAssetName(ctx context.Context) error {
	return s.store.Delete(ctx, domain.KeyPendingEvaluationAssetName)
}

// LMS returns the stored LMS connection, or ErrLMSNotConnected.
func (s *Session) LMS(ctx context.Context) (domain.LMSSession, error) {
	var l domain.LMSSession
	var err error
	if l.Cookies, err = s.optional(ctx, domain.KeyLMSCookies); err != nil {
		return l, err
	}
	if l.Token, err = s.optional(ctx, domain.KeyLMSToken); err != nil {
		return l, err
	}
	if l.User, err = s.optional(ctx, domain.KeyLMSUser); err != nil {
		return l, err
	}
	if l.Cookies == "" && l.Token == "" {
		return l, domain.ErrLMSNotConnected
	}
	return l, nil
}

func (s *Session) SetLMS(ctx context.Context, l domain.LMSSession) error {
	for key, value := range map[string]string{
		domain.KeyLMSCookies: l.Cookies,
		domain.KeyLMSToken:   l.Token,
		domain.KeyLMSUser:    l.User,
	} {
		if err := s.store.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetLMSCourses caches the course list last fetched from the LMS.
func (s *Session) SetLMSCourses(ctx context.Context, courses []domain.LMSCourse) error {
	raw, err := ffjson.Marshal(courses)
	if err != nil {
		return errors.Wrap(err, "encode lms courses")
	}
	return s.store.Set(ctx, domain.KeyLMSCourses, string(raw))
}

func (s *Session) LMSCourses(ctx context.Context) ([]domain.LMSCourse, error) {
	raw, err := s.optional(ctx, domain.KeyLMSCourses)
	if err != nil || raw == "" {
		return nil, err
	}
	var courses []domain.LMSCourse
	if err := ffjson.Unmarshal([]byte(raw), &courses); err != nil {
		return nil, errors.Wrap(err, "decode lms courses")
	}
	return courses, nil
}

// Clear wipes all persisted state.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// AccessTokenExpiry reads the exp claim of the stored access token. The
// signature is not checked; only the backend can do that.
func (s *Session) AccessTokenExpiry(ctx context.Context) (time.Time, error) {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if token == "" {
		return time.Time{}, domain.ErrNotFound
	}
	return TokenExpiry(token)
}

// TokenExpiry returns the exp claim of an unverified JWT.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, errors.Wrap(err, "parse access token")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("access token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

func (s *Session) optional(ctx context.Context, key string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return v, err
}
