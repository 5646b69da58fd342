package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	_alert "github.com/4406arthur/copilot/consumer/alert"
	_natsDeliver "github.com/4406arthur/copilot/consumer/delivery/nats"
	_workerUsecase "github.com/4406arthur/copilot/consumer/usecase"
	"github.com/4406arthur/copilot/domain"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// WorkerCmd runs the tracking worker that follows jobs queued on NATS.
func WorkerCmd(app *App) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Follow queued tasks and evaluations in the background",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Consume track requests until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.Config.Worker
			logger := app.Logger

			messageQueue, err := _natsDeliver.NewMessageQueue(cfg.NatsHost, logger)
			if err != nil {
				return err
			}
			defer messageQueue.Close()

			//could be buffer queue
			jobQueue := make(chan *nats.Msg, cfg.PoolSize*4)
			ansCh := make(chan []byte)
			finished := make(chan bool)

			sub, err := messageQueue.Subscribe(cfg.Subject, cfg.QueueGroup, jobQueue)
			if err != nil {
				return err
			}
			published := make(chan struct{})
			go func() {
				messageQueue.Publish(cfg.ResultSubject, ansCh)
				close(published)
			}()

			if cfg.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics server stopped", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			alerts, flush := buildAlert(app)
			defer flush()

			tracker := _workerUsecase.NewTrackerUsecase(app.Tasks, app.Evaluations, app.PollOptions(), logger)
			manager := _workerUsecase.NewJobManager(cfg.PoolSize, validator.New(), tracker, jobQueue, ansCh, finished, alerts, logger)
			go manager.Start(ctx)
			logger.Info("worker started", "subject", cfg.Subject, "queue_group", cfg.QueueGroup, "pool_size", cfg.PoolSize)

			<-finished
			if err := sub.Unsubscribe(); err != nil {
				logger.Warn("unsubscribe failed", "error", err)
			}
			close(ansCh)
			<-published
			logger.Info("worker stopped")
			return nil
		},
	}

	var (
		trigger   bool
		fileCount int
	)
	submitCmd := &cobra.Command{
		Use:   "submit <task|evaluation> <id>",
		Short: "Queue a job for the workers to follow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rq := domain.TrackRequest{Kind: args[0], ID: args[1], FileCount: fileCount, Trigger: trigger}
			if err := validator.New().Struct(rq); err != nil {
				return err
			}
			messageQueue, err := _natsDeliver.NewMessageQueue(app.Config.Worker.NatsHost, app.Logger)
			if err != nil {
				return err
			}
			defer messageQueue.Close()
			if err := messageQueue.Submit(app.Config.Worker.Subject, rq); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s %s.\n", rq.Kind, rq.ID)
			return nil
		},
	}
	submitCmd.Flags().BoolVar(&trigger, "trigger", false, "Start grading before following (evaluations only)")
	submitCmd.Flags().IntVarP(&fileCount, "files", "n", 0, "Number of answer sheets, for the progress estimate")

	workerCmd.AddCommand(startCmd, submitCmd)
	return workerCmd
}

// buildAlert combines the configured alert sinks. With none configured the
// result drops every notice.
func buildAlert(app *App) (domain.Alert, func()) {
	var alerts _alert.Multi
	flush := func() {}
	if url := app.Config.Alert.SlackWebhook; url != "" {
		alerts = append(alerts, _alert.NewSlackWebhook(app.HTTPClient, url))
	}
	if token := app.Config.Alert.RollbarToken; token != "" {
		rb := _alert.NewRollbar(token, app.Config.Alert.Environment)
		alerts = append(alerts, rb)
		flush = rb.Flush
	}
	return alerts, flush
}
