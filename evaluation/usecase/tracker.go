package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_evaluation_polls_total",
		Help: "The total number of evaluation status reads",
	})
	evaluationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copilot_evaluation_outcomes_total",
		Help: "Evaluations followed to the end, by outcome",
	}, []string{"outcome"})
	evaluationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "copilot_evaluation_seconds",
		Help:    "Time from trigger to results",
		Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600},
	})
)

//TrackerConfig ...
type TrackerConfig struct {
	// TickInterval paces the simulated progress.
	TickInterval time.Duration
	// PollInterval paces status reads once the simulation hits the ceiling.
	PollInterval time.Duration
	// MaxNotFound consecutive 404s lead to one fallback status read.
	MaxNotFound int
	// Deadline bounds the whole run, simulation included.
	Deadline time.Duration
}

// DefaultTrackerConfig ticks every second, polls every 15 seconds, and gives
// up after an hour.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		TickInterval: time.Second,
		PollInterval: 15 * time.Second,
		MaxNotFound:  3,
		Deadline:     time.Hour,
	}
}

//Tracker triggers an evaluation and follows it to completion, showing
//estimated progress while the backend is silent
type Tracker struct {
	repo      domain.EvaluationRepository
	registry  *Registry
	estimator Estimator
	cfg       TrackerConfig
	logger    *slog.Logger
	now       func() time.Time
}

//NewTracker ...
func NewTracker(repo domain.EvaluationRepository, registry *Registry, estimator Estimator, cfg TrackerConfig, logger *slog.Logger) *Tracker {
	def := DefaultTrackerConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxNotFound <= 0 {
		cfg.MaxNotFound = def.MaxNotFound
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	return &Tracker{
		repo:      repo,
		registry:  registry,
		estimator: estimator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run triggers grading of evaluationID and blocks until results arrive, the
// evaluation fails, the session is lost, the deadline passes or ctx ends.
// onProgress may be nil.
func (t *Tracker) Run(ctx context.Context, evaluationID, userID string, fileCount int, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	if err := t.registry.Begin(evaluationID); err != nil {
		return domain.Evaluation{}, err
	}
	completed := false
	defer func() { t.registry.Finish(evaluationID, completed) }()

	start := t.now()
	if err := t.repo.Evaluate(ctx, evaluationID, userID); err != nil {
		return domain.Evaluation{}, errors.Wrapf(err, "start evaluation %s", evaluationID)
	}
	t.logger.Info("evaluation started", "evaluation_id", evaluationID, "file_count", fileCount)

	ev, err := t.follow(ctx, evaluationID, fileCount, true, start, onProgress)
	completed = err == nil
	if completed {
		evaluationLatency.Observe(t.now().Sub(start).Seconds())
	}
	return ev, err
}

// Resume follows an evaluation started earlier (by a previous process, say)
// from its persisted id. It skips the simulation and polls right away.
func (t *Tracker) Resume(ctx context.Context, evaluationID string, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	if err := t.registry.Attach(evaluationID); err != nil {
		return domain.Evaluation{}, err
	}
	completed := false
	defer func() { t.registry.Finish(evaluationID, completed) }()

	ev, err := t.follow(ctx, evaluationID, 0, false, t.now(), onProgress)
	completed = err == nil
	return ev, err
}

func (t *Tracker) follow(ctx context.Context, id string, fileCount int, simulate bool, start time.Time, onProgress func(domain.Progress)) (domain.Evaluation, error) {
	rep := newReporter(onProgress, start, t.now)
	remaining := t.cfg.Deadline - t.now().Sub(start)
	deadline := time.NewTimer(remaining)
	defer deadline.Stop()
	// status reads share the run's deadline
	checkCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	var (
		tick     <-chan time.Time
		poll     <-chan time.Time
		notFound int
	)
	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()
	poller := time.NewTicker(t.cfg.PollInterval)
	poller.Stop()
	defer poller.Stop()

	checkNow := !simulate
	if simulate {
		tick = ticker.C
		rep.advance(0)
	} else {
		ticker.Stop()
		rep.advance(SimulationCeiling)
	}

	for {
		if checkNow {
			checkNow = false
			ev, done, err := t.check(checkCtx, id, &notFound)
			if err != nil && ctx.Err() == nil && checkCtx.Err() != nil {
				return domain.Evaluation{}, t.timeout(id, rep)
			}
			if err != nil {
				rep.reset(err)
				evaluationOutcomes.WithLabelValues(outcome(err)).Inc()
				return ev, err
			}
			if done {
				rep.complete()
				evaluationOutcomes.WithLabelValues("completed").Inc()
				t.logger.Info("evaluation completed", "evaluation_id", id, "elapsed", t.now().Sub(start))
				return ev, nil
			}
			if poll == nil {
				poller.Reset(t.cfg.PollInterval)
				poll = poller.C
			}
		}

		select {
		case <-ctx.Done():
			evaluationOutcomes.WithLabelValues("cancelled").Inc()
			return domain.Evaluation{}, ctx.Err()
		case <-deadline.C:
			return domain.Evaluation{}, t.timeout(id, rep)
		case <-tick:
			pct := rep.advance(t.estimator.Estimate(t.now().Sub(start), fileCount))
			if pct >= SimulationCeiling {
				ticker.Stop()
				tick = nil
				checkNow = true
				t.logger.Debug("simulation reached ceiling, polling backend", "evaluation_id", id)
			}
		case <-poll:
			checkNow = true
		}
	}
}

func (t *Tracker) timeout(id string, rep *reporter) error {
	evaluationOutcomes.WithLabelValues("timeout").Inc()
	t.logger.Warn("evaluation deadline passed", "evaluation_id", id, "deadline", t.cfg.Deadline)
	rep.reset(domain.ErrEvaluationTimeout)
	return domain.ErrEvaluationTimeout
}

// check reads the status once. done is true when results are in.
func (t *Tracker) check(ctx context.Context, id string, notFound *int) (domain.Evaluation, bool, error) {
	evaluationPolls.Inc()
	ev, err := t.repo.Status(ctx, id)
	if err == nil {
		*notFound = 0
		return settle(id, ev)
	}

	if !errors.Is(err, domain.ErrNotFound) {
		if errors.Is(err, domain.ErrSessionExpired) || ctx.Err() != nil {
			return ev, false, err
		}
		t.logger.Warn("evaluation status read failed, will retry", "evaluation_id", id, "error", err)
		return ev, false, nil
	}

	*notFound++
	t.logger.Warn("evaluation not found", "evaluation_id", id, "consecutive", *notFound)
	if *notFound < t.cfg.MaxNotFound {
		return ev, false, nil
	}

	ev, err = t.repo.FallbackStatus(ctx, id)
	if err != nil && ctx.Err() != nil {
		return ev, false, ctx.Err()
	}
	if err != nil {
		t.logger.Error("fallback status check failed, abandoning evaluation", "evaluation_id", id, "error", err)
		return ev, false, domain.ErrSessionLost
	}
	*notFound = 0
	return settle(id, ev)
}

func settle(id string, ev domain.Evaluation) (domain.Evaluation, bool, error) {
	switch ev.Status {
	case domain.EvaluationCompleted:
		return ev, true, nil
	case domain.EvaluationFailed:
		msg := ev.Error
		if msg == "" {
			msg = domain.ErrEvaluationFailed.Error()
		}
		return ev, false, &domain.TaskFailedError{TaskID: id, Message: msg}
	case domain.EvaluationCancelled:
		return ev, false, domain.ErrTaskCancelled
	}
	return ev, false, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionLost):
		return "session_lost"
	case errors.Is(err, domain.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, context.Canceled), errors.Is(err, domain.ErrTaskCancelled):
		return "cancelled"
	}
	return "failed"
}

// reporter forwards progress to the caller. Once complete or reset, late
// simulation ticks are dropped so they cannot overwrite the final value.
type reporter struct {
	mu    sync.Mutex
	fn    func(domain.Progress)
	start time.Time
	now   func() time.Time
	last  int
	done  bool
}

func newReporter(fn func(domain.Progress), start time.Time, now func() time.Time) *reporter {
	return &reporter{fn: fn, start: start, now: now}
}

// advance shows max(last, pct), capped at the simulation ceiling.
func (r *reporter) advance(pct int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return r.last
	}
	if pct > SimulationCeiling {
		pct = SimulationCeiling
	}
	if pct > r.last {
		r.last = pct
	}
	r.emit(r.last, StageFor(r.last))
	return r.last
}

func (r *reporter) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	r.last = 100
	r.emit(100, StageFor(100))
}

// reset drops the bar back to zero after a terminal failure.
func (r *reporter) reset(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	r.last = 0
	r.emit(0, domain.Message(cause))
}

func (r *reporter) emit(pct int, stage string) {
	if r.fn == nil {
		return
	}
	r.fn(domain.Progress{Percent: pct, Stage: stage, Elapsed: r.now().Sub(r.start)})
}
