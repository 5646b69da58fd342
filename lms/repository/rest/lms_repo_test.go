package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/logger"
	"github.com/4406arthur/copilot/session"
	"github.com/4406arthur/copilot/storage/memory"
	"github.com/4406arthur/copilot/transport/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLMSRepository(t *testing.T) {
	bodies := map[string]map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		bodies[r.URL.Path] = body
		switch r.URL.Path {
		case "/login-lms":
			fmt.Fprint(w, `{"cookies": "sid=1", "token": "lt", "user": "instructor"}`)
		case "/courses-lms":
			fmt.Fprint(w, `{"courses": [{"id": "101", "name": "Biology"}]}`)
		case "/modules-lms":
			fmt.Fprint(w, `{"modules": [{"id": "m1", "name": "Cells"}]}`)
		case "/create-module-lms":
			fmt.Fprint(w, `{"id": "m2", "name": "Genetics", "course_id": "101"}`)
		}
	}))
	defer srv.Close()

	sess := session.New(memory.NewStore())
	client := rest.NewClient(rest.NewHTTPClient(rest.Options{Timeout: time.Second}), srv.URL, sess, logger.Discard())
	repo := NewLMSRepository(client)
	ctx := context.Background()

	l, err := repo.Login(ctx, "https://lms.example.edu", "instructor", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.LMSSession{Cookies: "sid=1", Token: "lt", User: "instructor"}, l)
	assert.Equal(t, "https://lms.example.edu", bodies["/login-lms"]["lms_url"])

	courses, err := repo.Courses(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, []domain.LMSCourse{{ID: "101", Name: "Biology"}}, courses)
	assert.Equal(t, "sid=1", bodies["/courses-lms"]["cookies"])

	modules, err := repo.Modules(ctx, l, "101")
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Cells", modules[0].Name)
	assert.Equal(t, "101", bodies["/modules-lms"]["course_id"])

	m, err := repo.CreateModule(ctx, l, "101", "Genetics")
	require.NoError(t, err)
	assert.Equal(t, "m2", m.ID)
	assert.Equal(t, "Genetics", bodies["/create-module-lms"]["name"])
}
