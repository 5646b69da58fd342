package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/gammazero/workerpool"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/pquerna/ffjson/ffjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type jobManager struct {
	workerPool *workerpool.WorkerPool
	validate   *validator.Validate
	tracker    domain.TrackerUsecase
	jobQueue   <-chan *nats.Msg
	ansCh      chan<- []byte
	finished   chan<- bool
	alert      domain.Alert
	logger     *slog.Logger
}

//NewJobManager ...
func NewJobManager(poolSize int, validate *validator.Validate, tracker domain.TrackerUsecase, jobQueue <-chan *nats.Msg, ansCh chan<- []byte, finished chan<- bool, alert domain.Alert, logger *slog.Logger) domain.JobManager {
	wp := workerpool.New(poolSize)
	return &jobManager{
		workerPool: wp,
		validate:   validate,
		tracker:    tracker,
		jobQueue:   jobQueue,
		ansCh:      ansCh,
		finished:   finished,
		alert:      alert,
		logger:     logger,
	}
}

var (
	opsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_manager_total_jobs",
		Help: "The total number of tracking jobs",
	})
	opsError = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_manager_failed_job",
		Help: "The number of tracking jobs that did not complete",
	})
	opsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_manager_rejected_job",
		Help: "Messages dropped for a malformed request",
	})
	jobLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copilot_job_seconds",
			Help:    "Time spent following a job",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"kind"},
	)
)

func (m *jobManager) Start(ctx context.Context) {
	m.logger.Info("job manager starting")
	for {
		select {
		case element, ok := <-m.jobQueue:
			if !ok {
				m.Stop()
				return
			}
			var job domain.TrackRequest
			if err := ffjson.Unmarshal(element.Data, &job); err != nil {
				opsRejected.Inc()
				m.logger.Error("got undecodable job", "error", err)
				continue
			}
			if err := m.validate.Struct(job); err != nil {
				opsRejected.Inc()
				m.logger.Error("got wrong job format", "error", err)
				continue
			}
			m.logger.Debug("receive job", "kind", job.Kind, "id", job.ID)
			m.workerPool.Submit(
				func() {
					opsProcessed.Inc()
					m.Task(ctx, job)
				})
		case <-ctx.Done():
			m.logger.Info("close workers")
			m.Stop()
			return
		}
	}
}

func (m *jobManager) Stop() {
	m.workerPool.StopWait()
	m.logger.Info("already completed pending task")
	m.finished <- true
}

// Task follows one job and publishes its result; anything short of completed
// is also pushed to the alert channel.
func (m *jobManager) Task(ctx context.Context, job domain.TrackRequest) {
	start := time.Now()
	res := m.tracker.Track(ctx, job)
	jobLatency.WithLabelValues(job.Kind).Observe(time.Since(start).Seconds())

	if res.Status != string(domain.TaskCompleted) {
		opsError.Inc()
		errMsg := fmt.Sprintf("[ERROR] %s %s settled as %s: %s", job.Kind, job.ID, res.Status, res.Error)
		if err := m.alert.PushNotify(errMsg); err != nil {
			m.logger.Warn("alert push failed", "error", err)
		}
	}
	jsonByte, err := ffjson.Marshal(&res)
	if err != nil {
		m.logger.Error("encode result", "id", job.ID, "error", err)
		return
	}
	m.ansCh <- jsonByte
}
