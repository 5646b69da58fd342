package domain

import "context"

//LMSSession is what the backend hands back after proxying an LMS login
type LMSSession struct {
	Cookies string `json:"cookies"`
	Token   string `json:"token"`
	User    string `json:"user"`
}

//LMSCourse ...
type LMSCourse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

//LMSModule ...
type LMSModule struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CourseID string `json:"course_id,omitempty"`
}

//LMSRepository ...
type LMSRepository interface {
	Login(ctx context.Context, lmsURL, username, password string) (LMSSession, error)
	Courses(ctx context.Context, session LMSSession) ([]LMSCourse, error)
	Modules(ctx context.Context, session LMSSession, courseID string) ([]LMSModule, error)
	CreateModule(ctx context.Context, session LMSSession, courseID, name string) (LMSModule, error)
}
