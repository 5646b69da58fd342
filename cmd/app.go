package cmd

import (
	"log/slog"

	"github.com/4406arthur/copilot/config"
	"github.com/4406arthur/copilot/domain"
	_evaluationUcase "github.com/4406arthur/copilot/evaluation/usecase"
	_lmsUcase "github.com/4406arthur/copilot/lms/usecase"
	"github.com/4406arthur/copilot/session"
	"github.com/gojektech/heimdall/v6"
)

//App carries everything a command needs; it is built once the config flag
//has been parsed
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       domain.Store
	Session     *session.Session
	HTTPClient  heimdall.Doer
	Tasks       domain.TaskUsecase
	Evaluations *_evaluationUcase.Service
	LMS         *_lmsUcase.Service
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// PollOptions is the task polling policy from config.
func (a *App) PollOptions() domain.PollOptions {
	return domain.PollOptions{
		MaxAttempts: a.Config.Task.MaxAttempts,
		Interval:    a.Config.Task.PollInterval,
	}
}

//Builder makes the App from the config directory given on the command line
type Builder func(configDir string) (*App, error)
