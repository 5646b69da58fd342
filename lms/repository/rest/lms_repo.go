package rest

import (
	"context"
	"net/http"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/transport/rest"
)

type lmsRepository struct {
	client *rest.Client
}

//NewLMSRepository proxies LMS calls through the backend
func NewLMSRepository(client *rest.Client) domain.LMSRepository {
	return &lmsRepository{client: client}
}

type lmsLoginRQ struct {
	LMSURL   string `json:"lms_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type lmsSessionRQ struct {
	Cookies  string `json:"cookies"`
	Token    string `json:"token,omitempty"`
	CourseID string `json:"course_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (r *lmsRepository) Login(ctx context.Context, lmsURL, username, password string) (domain.LMSSession, error) {
	var out domain.LMSSession
	req, err := rest.NewJSONRequest(http.MethodPost, "/login-lms", &lmsLoginRQ{
		LMSURL:   lmsURL,
		Username: username,
		Password: password,
	})
	if err != nil {
		return out, err
	}
	err = r.client.DoJSON(ctx, req, &out)
	return out, err
}

func (r *lmsRepository) Courses(ctx context.Context, s domain.LMSSession) ([]domain.LMSCourse, error) {
	var out struct {
		Courses []domain.LMSCourse `json:"courses"`
	}
	if err := r.post(ctx, "/courses-lms", &lmsSessionRQ{Cookies: s.Cookies, Token: s.Token}, &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

func (r *lmsRepository) Modules(ctx context.Context, s domain.LMSSession, courseID string) ([]domain.LMSModule, error) {
	var out struct {
		Modules []domain.LMSModule `json:"modules"`
	}
	rq := &lmsSessionRQ{Cookies: s.Cookies, Token: s.Token, CourseID: courseID}
	if err := r.post(ctx, "/modules-lms", rq, &out); err != nil {
		return nil, err
	}
	return out.Modules, nil
}

func (r *lmsRepository) CreateModule(ctx context.Context, s domain.LMSSession, courseID, name string) (domain.LMSModule, error) {
	var out domain.LMSModule
	rq := &lmsSessionRQ{Cookies: s.Cookies, Token: s.Token, CourseID: courseID, Name: name}
	err := r.post(ctx, "/create-module-lms", rq, &out)
	return out, err
}

func (r *lmsRepository) post(ctx context.Context, path string, body, out interface{}) error {
	req, err := rest.NewJSONRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return r.client.DoJSON(ctx, req, out)
}
