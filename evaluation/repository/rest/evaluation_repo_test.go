package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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

func newRepo(t *testing.T, h http.HandlerFunc) domain.EvaluationRepository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sess := session.New(memory.NewStore())
	require.NoError(t, sess.SetTokens(context.Background(), domain.TokenPair{AccessToken: "tok"}))
	client := rest.NewClient(rest.NewHTTPClient(rest.Options{Timeout: time.Second}), srv.URL, sess, logger.Discard())
	client.SetIdempotentDoer(rest.NewHTTPClient(rest.Options{
		Timeout:        time.Second,
		RetryCount:     2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}))
	return NewEvaluationRepository(client)
}

func TestUploadMarkScheme(t *testing.T) {
	var path, userID, fileName, content string
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		userID = r.FormValue("user_id")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		fileName, content = hdr.Filename, string(b)
		fmt.Fprint(w, `{"evaluation_id": "e1", "mark_scheme_file_id": "m1"}`)
	})

	out, err := repo.UploadMarkScheme(context.Background(), "u1", domain.UploadedFile{Name: "scheme.pdf", Content: []byte("Q1 = 5")}, false)
	require.NoError(t, err)
	assert.Equal(t, "/evaluation/upload-mark-scheme", path)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "scheme.pdf", fileName)
	assert.Equal(t, "Q1 = 5", content)
	assert.Equal(t, "e1", out.EvaluationID)
	assert.Equal(t, "m1", out.MarkSchemeID)
}

func TestUploadAnswerSheetsHandwritten(t *testing.T) {
	var path, evalID string
	var names []string
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		evalID = r.FormValue("evaluation_id")
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
		}
		fmt.Fprint(w, `{"answer_sheet_file_ids": ["f1", "f2"]}`)
	})

	files := []domain.UploadedFile{{Name: "a.pdf", Content: []byte("a")}, {Name: "b.pdf", Content: []byte("b")}}
	out, err := repo.UploadAnswerSheets(context.Background(), "u1", "e1", files, true)
	require.NoError(t, err)
	assert.Equal(t, "/evaluation/upload-answer-sheets-handwritten", path)
	assert.Equal(t, "e1", evalID)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, names)
	assert.Equal(t, "e1", out.EvaluationID)
	assert.Equal(t, []string{"f1", "f2"}, out.FileIDs)
}

func TestEvaluateAndStatus(t *testing.T) {
	var seen []string
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RequestURI())
		switch r.URL.Path {
		case "/evaluation/evaluate-files":
			fmt.Fprint(w, `{"status": "processing"}`)
		case "/evaluation/status/e1":
			fmt.Fprint(w, `{"status": "completed", "evaluation_result": {"students": [{"file_id": "f1", "total_score": 7, "max_total_score": 10, "answers": [{"question_number": 1, "score": 7, "max_score": 10}]}]}}`)
		case "/evaluation/e1":
			fmt.Fprint(w, `{"evaluation_id": "e1", "status": "processing"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	require.NoError(t, repo.Evaluate(ctx, "e1", "u1"))

	ev, err := repo.Status(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", ev.EvaluationID)
	assert.Equal(t, domain.EvaluationCompleted, ev.Status)
	require.NotNil(t, ev.Result)
	require.Len(t, ev.Result.Students, 1)
	assert.Equal(t, 7.0, ev.Result.Students[0].TotalScore)

	ev, err = repo.FallbackStatus(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationProcessing, ev.Status)

	assert.Equal(t, []string{
		"/evaluation/evaluate-files?evaluation_id=e1&user_id=u1",
		"/evaluation/status/e1",
		"/evaluation/e1",
	}, seen)
}

func TestStatusNotFound(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail": "Evaluation not found"}`)
	})

	_, err := repo.Status(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Evaluation not found", domain.Message(err))
}

func TestEditResultAndSave(t *testing.T) {
	var edit domain.ResultEdit
	var save map[string]string
	var paths []string
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/evaluation/edit-results":
			json.NewDecoder(r.Body).Decode(&edit)
		default:
			json.NewDecoder(r.Body).Decode(&save)
		}
		fmt.Fprint(w, `{"ok": true}`)
	})
	ctx := context.Background()

	require.NoError(t, repo.EditResult(ctx, domain.ResultEdit{EvaluationID: "e1", FileID: "f1", QuestionNumber: 2, Score: 4, Feedback: "good"}))
	require.NoError(t, repo.Save(ctx, "e1", "Midterm results"))

	assert.Equal(t, []string{"PUT /evaluation/edit-results", "POST /evaluation/save/e1"}, paths)
	assert.Equal(t, 2, edit.QuestionNumber)
	assert.Equal(t, 4.0, edit.Score)
	assert.Equal(t, "good", edit.Feedback)
	assert.Equal(t, "Midterm results", save["asset_name"])
}

func TestEvaluateIsSentOnceOnServerError(t *testing.T) {
	var triggers, reads int32
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/evaluation/evaluate-files":
			atomic.AddInt32(&triggers, 1)
			w.WriteHeader(http.StatusBadGateway)
		case "/evaluation/status/e1":
			if atomic.AddInt32(&reads, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"status": "processing"}`)
		}
	})
	ctx := context.Background()

	err := repo.Evaluate(ctx, "e1", "u1")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&triggers))

	ev, err := repo.Status(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationProcessing, ev.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&reads))
}
