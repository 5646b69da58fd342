package rest

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/transport/rest"
	"github.com/pkg/errors"
)

type evaluationRepository struct {
	client *rest.Client
}

//NewEvaluationRepository ...
func NewEvaluationRepository(client *rest.Client) domain.EvaluationRepository {
	return &evaluationRepository{client: client}
}

func (r *evaluationRepository) UploadMarkScheme(ctx context.Context, userID string, file domain.UploadedFile, handwritten bool) (domain.MarkSchemeUpload, error) {
	var out domain.MarkSchemeUpload
	path := "/evaluation/upload-mark-scheme"
	if handwritten {
		path += "-handwritten"
	}
	req, err := multipartRequest(path, map[string]string{"user_id": userID}, "file", []domain.UploadedFile{file})
	if err != nil {
		return out, err
	}
	err = r.client.DoJSON(ctx, req, &out)
	return out, err
}

func (r *evaluationRepository) UploadAnswerSheets(ctx context.Context, userID, evaluationID string, files []domain.UploadedFile, handwritten bool) (domain.AnswerSheetUpload, error) {
	var out domain.AnswerSheetUpload
	path := "/evaluation/upload-answer-sheets"
	if handwritten {
		path += "-handwritten"
	}
	fields := map[string]string{
		"user_id":       userID,
		"evaluation_id": evaluationID,
	}
	req, err := multipartRequest(path, fields, "files", files)
	if err != nil {
		return out, err
	}
	if err := r.client.DoJSON(ctx, req, &out); err != nil {
		return out, err
	}
	if out.EvaluationID == "" {
		out.EvaluationID = evaluationID
	}
	return out, nil
}

func (r *evaluationRepository) Evaluate(ctx context.Context, evaluationID, userID string) error {
	req := &rest.Request{
		Method: http.MethodGet,
		Path:   "/evaluation/evaluate-files",
		Query: url.Values{
			"evaluation_id": {evaluationID},
			"user_id":       {userID},
		},
	}
	return r.client.DoJSON(ctx, req, nil)
}

func (r *evaluationRepository) Status(ctx context.Context, evaluationID string) (domain.Evaluation, error) {
	return r.read(ctx, "/evaluation/status/"+url.PathEscape(evaluationID), evaluationID)
}

// FallbackStatus reads the evaluation record directly instead of the status view.
func (r *evaluationRepository) FallbackStatus(ctx context.Context, evaluationID string) (domain.Evaluation, error) {
	return r.read(ctx, "/evaluation/"+url.PathEscape(evaluationID), evaluationID)
}

func (r *evaluationRepository) read(ctx context.Context, path, evaluationID string) (domain.Evaluation, error) {
	var ev domain.Evaluation
	req := &rest.Request{Method: http.MethodGet, Path: path, Idempotent: true}
	if err := r.client.DoJSON(ctx, req, &ev); err != nil {
		return ev, err
	}
	if ev.EvaluationID == "" {
		ev.EvaluationID = evaluationID
	}
	return ev, nil
}

func (r *evaluationRepository) EditResult(ctx context.Context, edit domain.ResultEdit) error {
	req, err := rest.NewJSONRequest(http.MethodPut, "/evaluation/edit-results", edit)
	if err != nil {
		return err
	}
	return r.client.DoJSON(ctx, req, nil)
}

func (r *evaluationRepository) Save(ctx context.Context, evaluationID, assetName string) error {
	req, err := rest.NewJSONRequest(http.MethodPost, "/evaluation/save/"+url.PathEscape(evaluationID),
		map[string]string{"asset_name": assetName})
	if err != nil {
		return err
	}
	return r.client.DoJSON(ctx, req, nil)
}

func multipartRequest(path string, fields map[string]string, fileField string, files []domain.UploadedFile) (*rest.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, errors.Wrapf(err, "write form field %s", k)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "add %s", f.Name)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, errors.Wrapf(err, "add %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart body")
	}
	return &rest.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, nil
}
