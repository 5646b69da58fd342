package main

import (
	"context"
	"fmt"
	"os"

	"github.com/4406arthur/copilot/cmd"
	"github.com/4406arthur/copilot/config"
	"github.com/4406arthur/copilot/domain"
	_evaluationRepo "github.com/4406arthur/copilot/evaluation/repository/rest"
	_evaluationUcase "github.com/4406arthur/copilot/evaluation/usecase"
	_lmsRepo "github.com/4406arthur/copilot/lms/repository/rest"
	_lmsUcase "github.com/4406arthur/copilot/lms/usecase"
	"github.com/4406arthur/copilot/logger"
	"github.com/4406arthur/copilot/session"
	"github.com/4406arthur/copilot/storage"
	_taskRepo "github.com/4406arthur/copilot/task/repository/rest"
	_taskUcase "github.com/4406arthur/copilot/task/usecase"
	"github.com/4406arthur/copilot/transport/rest"
	"github.com/go-playground/validator/v10"
)

var version = "0.1.0"

func build(configDir string) (*cmd.App, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	log := logger.Setup(cfg.Log.Level)

	store, err := storage.Open(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	sess := session.New(store)

	// writes go out once; only status reads are retried
	httpCli := rest.NewHTTPClient(rest.Options{Timeout: cfg.API.Timeout})
	retryCli := rest.NewHTTPClient(rest.Options{
		Timeout:        cfg.API.Timeout,
		RetryCount:     cfg.API.RetryCount,
		BackoffInitial: cfg.API.BackoffInitial,
		BackoffMax:     cfg.API.BackoffMax,
	})
	client := rest.NewClient(httpCli, cfg.API.BaseURL, sess, log)
	client.SetIdempotentDoer(retryCli)
	client.SetRefreshPath(cfg.API.RefreshPath)
	client.OnSessionExpired = func() {
		fmt.Fprintln(os.Stderr, domain.ErrSessionExpired.Error())
	}

	ec := cfg.Evaluation
	registry := _evaluationUcase.NewRegistry(ec.Cooldown)
	evalRepo := _evaluationRepo.NewEvaluationRepository(client)
	tracker := _evaluationUcase.NewTracker(evalRepo, registry,
		_evaluationUcase.TimeBudgetEstimator{PerFile: ec.PerFileBudget, Floor: ec.MinBudget},
		_evaluationUcase.TrackerConfig{
			TickInterval: ec.TickInterval,
			PollInterval: ec.PollInterval,
			MaxNotFound:  ec.MaxNotFound,
			Deadline:     ec.Deadline,
		}, log)

	return &cmd.App{
		Config:      cfg,
		Logger:      log,
		Store:       store,
		Session:     sess,
		HTTPClient:  httpCli,
		Tasks:       _taskUcase.NewTaskUsecase(_taskRepo.NewTaskRepository(client), log),
		Evaluations: _evaluationUcase.NewService(evalRepo, sess, registry, tracker, validator.New(), ec.SaveGrace, log),
		LMS:         _lmsUcase.NewService(_lmsRepo.NewLMSRepository(client), sess, log),
	}, nil
}

func main() {
	cmd.Execute(version, build)
}
