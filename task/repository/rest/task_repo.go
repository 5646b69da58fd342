package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/transport/rest"
)

type taskRepository struct {
	client *rest.Client
}

//NewTaskRepository talks to the asset_chat and tasks endpoints
func NewTaskRepository(client *rest.Client) domain.TaskRepository {
	return &taskRepository{client: client}
}

func (r *taskRepository) Create(ctx context.Context, courseID, assetType string, payload interface{}) (domain.Task, error) {
	path := "/courses/" + url.PathEscape(courseID) + "/asset_chat/" + url.PathEscape(assetType)
	return r.submit(ctx, http.MethodPost, path, payload)
}

func (r *taskRepository) Update(ctx context.Context, courseID, assetName string, payload interface{}) (domain.Task, error) {
	path := "/courses/" + url.PathEscape(courseID) + "/asset_chat/" + url.PathEscape(assetName)
	return r.submit(ctx, http.MethodPut, path, payload)
}

func (r *taskRepository) submit(ctx context.Context, method, path string, payload interface{}) (domain.Task, error) {
	var task domain.Task
	req, err := rest.NewJSONRequest(method, path, payload)
	if err != nil {
		return task, err
	}
	if err := r.client.DoJSON(ctx, req, &task); err != nil {
		return task, err
	}
	return task, nil
}

func (r *taskRepository) Get(ctx context.Context, taskID string) (domain.Task, error) {
	var task domain.Task
	req := &rest.Request{Method: http.MethodGet, Path: "/tasks/" + url.PathEscape(taskID), Idempotent: true}
	err := r.client.DoJSON(ctx, req, &task)
	return task, err
}

func (r *taskRepository) Cancel(ctx context.Context, taskID string) error {
	req := &rest.Request{Method: http.MethodDelete, Path: "/tasks/" + url.PathEscape(taskID)}
	return r.client.DoJSON(ctx, req, nil)
}
