package domain

import "context"

// Keys of the persisted client state.
const (
	KeyUser                       = "user"
	KeyToken                      = "token"
	KeyRefreshToken               = "refresh_token"
	KeyLMSCookies                 = "lms_cookies"
	KeyLMSToken                   = "lms_token"
	KeyLMSUser                    = "lms_user"
	KeyLMSCourses                 = "lms_courses"
	KeyCurrentCourseID            = "currentCourseId"
	KeyCurrentCourseTitle         = "currentCourseTitle"
	KeyPendingEvaluationAssetName = "pendingEvaluationAssetName"
)

//Store is the persisted key/value client state.
//Get returns ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

//TokenPair ...
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

//User ...
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
