// Package engine implements the asynchronous external-operation job
// engine: a priority queue of distribution and ingestion jobs drained
// by a single cooperative scheduler loop. Platform specifics live
// behind the platform.Registry; results leave through narrow sink
// interfaces.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hardbanrecords/backoffice/internal/client"
	"github.com/hardbanrecords/backoffice/internal/config"
	"github.com/hardbanrecords/backoffice/internal/model"
	"github.com/hardbanrecords/backoffice/internal/observability"
	"github.com/hardbanrecords/backoffice/internal/platform"
)

var (
	ErrJobNotFound    = errors.New("engine: job not found")
	ErrInvalidPayload = errors.New("engine: invalid payload")
)

// etaPerQueuedJob is the rough per-job duration used for queue ETA
// estimates returned at enqueue time.
const etaPerQueuedJob = 90 * time.Second

// Options wires an Engine. Registry is required; nil sinks default to
// no-ops and a nil store disables snapshot mirroring.
type Options struct {
	Config    config.EngineConfig
	Registry  *platform.Registry
	Fetcher   client.ReportFetcher
	Converter client.CurrencyConverter
	Resolver  CatalogResolver
	Channels  ChannelStatusSink
	Earnings  EarningsSink
	Notifier  Notifier
	Store     JobStore
	Logger    *slog.Logger

	ReportingCurrency string
	CommissionRate    float64
}

// Engine owns all job state. The queue and the active set are only
// mutated under mu; the scheduler loop is the single execution context
// that processes jobs, and the running flag guarantees at most one loop.
type Engine struct {
	cfg      config.EngineConfig
	registry *platform.Registry
	fetcher  client.ReportFetcher
	policy   RetryPolicy
	agg      *aggregator
	notifier Notifier
	store    JobStore
	logger   *slog.Logger

	mu      sync.Mutex
	queue   *jobQueue
	active  map[string]*model.Job
	jobs    map[string]*model.Job
	running bool

	wake chan struct{}
	done chan struct{}
}

// New constructs an engine from its collaborators.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("engine: platform registry is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config.MaxAttempts <= 0 {
		opts.Config.MaxAttempts = 3
	}
	if opts.Config.PollInterval <= 0 {
		opts.Config.PollInterval = 60 * time.Second
	}
	if opts.Config.JobTimeout <= 0 {
		opts.Config.JobTimeout = 2 * time.Hour
	}
	if opts.Config.DistributionRetryDelay <= 0 {
		opts.Config.DistributionRetryDelay = 5 * time.Minute
	}
	if opts.Config.IngestionRetryDelay <= 0 {
		opts.Config.IngestionRetryDelay = 10 * time.Minute
	}
	if opts.ReportingCurrency == "" {
		opts.ReportingCurrency = "USD"
	}
	if opts.Fetcher == nil {
		opts.Fetcher = client.NewReportFetcher()
	}
	if opts.Converter == nil {
		opts.Converter = client.NewExchangeClient(&config.ExchangeConfig{})
	}

	e := &Engine{
		cfg:      opts.Config,
		registry: opts.Registry,
		fetcher:  opts.Fetcher,
		policy: RetryPolicy{
			MaxAttempts:            opts.Config.MaxAttempts,
			DistributionRetryDelay: opts.Config.DistributionRetryDelay,
			IngestionRetryDelay:    opts.Config.IngestionRetryDelay,
		},
		notifier: opts.Notifier,
		store:    opts.Store,
		logger:   opts.Logger,
		queue:    newJobQueue(),
		active:   make(map[string]*model.Job),
		jobs:     make(map[string]*model.Job),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	e.agg = &aggregator{
		converter:  opts.Converter,
		resolver:   opts.Resolver,
		channels:   opts.Channels,
		earnings:   opts.Earnings,
		logger:     opts.Logger,
		currency:   opts.ReportingCurrency,
		commission: opts.CommissionRate,
	}
	return e, nil
}

// EnqueueOption adjusts a job at enqueue time.
type EnqueueOption func(*model.Job)

// WithScheduleAt defers the job until the given instant.
func WithScheduleAt(t time.Time) EnqueueOption {
	return func(j *model.Job) { j.ScheduledFor = t }
}

// WithTimeout overrides the configured job deadline.
func WithTimeout(d time.Duration) EnqueueOption {
	return func(j *model.Job) { j.TimeoutAt = j.CreatedAt.Add(d) }
}

// Enqueue validates the payload for the kind, creates the job record,
// inserts it into the priority queue, and (re)starts the scheduler
// loop. It is the only operation that raises synchronously to the
// caller.
func (e *Engine) Enqueue(ctx context.Context, kind model.JobKind, payload interface{}, priority int, opts ...EnqueueOption) (*model.EnqueueReceipt, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := e.validatePayload(kind, raw); err != nil {
		return nil, err
	}

	if priority < model.PriorityUrgent || priority > model.PriorityBatch {
		priority = model.PriorityNormal
	}

	now := time.Now()
	job := &model.Job{
		ID:           uuid.New().String(),
		Kind:         kind,
		Priority:     priority,
		Status:       model.JobStatusQueued,
		Payload:      raw,
		CreatedAt:    now,
		ScheduledFor: now,
		TimeoutAt:    now.Add(e.cfg.JobTimeout),
		Progress:     make(map[string]model.ProgressEntry),
		Results:      make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(job)
	}

	e.mu.Lock()
	e.jobs[job.ID] = job
	e.queue.insert(job)
	position := e.queue.positionOf(job.ID)
	e.mu.Unlock()

	e.persist(ctx, job)
	observability.JobsSubmitted.WithLabelValues(string(kind), strconv.Itoa(priority)).Inc()

	e.logger.Info("job enqueued",
		slog.String("job_id", job.ID),
		slog.String("kind", string(kind)),
		slog.Int("priority", priority),
		slog.Int("queue_position", position),
	)

	e.ensureLoop()

	eta := job.ScheduledFor.Add(time.Duration(position) * etaPerQueuedJob)
	return &model.EnqueueReceipt{
		JobID:         job.ID,
		Status:        model.JobStatusQueued,
		QueuePosition: position,
		ETA:           eta,
		CreatedAt:     now,
	}, nil
}

// validatePayload enforces the kind-specific required fields before a
// job record is ever created.
func (e *Engine) validatePayload(kind model.JobKind, raw []byte) error {
	switch kind {
	case model.JobKindDistribution:
		var p model.DistributionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if p.ReleaseID == "" || p.Artist == "" || p.Title == "" {
			return fmt.Errorf("%w: releaseId, artist and title are required", ErrInvalidPayload)
		}
		if len(p.Platforms) == 0 {
			return fmt.Errorf("%w: at least one platform is required", ErrInvalidPayload)
		}
		for _, name := range p.Platforms {
			if !e.registry.Has(name) {
				return fmt.Errorf("%w: platform %q is not configured", ErrInvalidPayload, name)
			}
		}
	case model.JobKindIngestion:
		var p model.IngestionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if p.Platform == "" {
			return fmt.Errorf("%w: platform is required", ErrInvalidPayload)
		}
		adapter, err := e.registry.Get(p.Platform)
		if err != nil {
			return fmt.Errorf("%w: platform %q is not configured", ErrInvalidPayload, p.Platform)
		}
		if p.Format != adapter.ReportFormat() {
			return fmt.Errorf("%w: platform %q reports are %s, got %s",
				ErrInvalidPayload, p.Platform, adapter.ReportFormat(), p.Format)
		}
		if p.Source.URL == "" && len(p.Source.Inline) == 0 {
			return fmt.Errorf("%w: report source is required", ErrInvalidPayload)
		}
		if p.Period.From.IsZero() || p.Period.To.IsZero() || p.Period.To.Before(p.Period.From) {
			return fmt.Errorf("%w: reporting period is invalid", ErrInvalidPayload)
		}
	default:
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidPayload, kind)
	}
	return nil
}

// Cancel requests cancellation. Queued jobs are removed immediately;
// an active job is flagged and finishes its current sub-target first.
func (e *Engine) Cancel(ctx context.Context, jobID, reason string) (model.CancelOutcome, error) {
	e.mu.Lock()
	job, ok := e.jobs[jobID]
	if !ok {
		e.mu.Unlock()
		return model.CancelOutcomeNotFound, ErrJobNotFound
	}

	if removed := e.queue.remove(jobID); removed != nil {
		now := time.Now()
		job.Status = model.JobStatusCancelled
		job.CompletedAt = &now
		if reason != "" {
			job.LastError = &reason
		}
		e.mu.Unlock()
		e.persist(ctx, job)
		e.logger.Info("job cancelled from queue",
			slog.String("job_id", jobID), slog.String("reason", reason))
		return model.CancelOutcomeCancelled, nil
	}

	if _, isActive := e.active[jobID]; isActive && !job.Status.Terminal() {
		job.Status = model.JobStatusCancelling
		if reason != "" {
			job.LastError = &reason
		}
		e.mu.Unlock()
		e.persist(ctx, job)
		e.logger.Info("job cancellation requested",
			slog.String("job_id", jobID), slog.String("reason", reason))
		return model.CancelOutcomeCancelling, nil
	}

	e.mu.Unlock()
	return model.CancelOutcomeNotFound, ErrJobNotFound
}

// Status returns a read-only snapshot, including the queue position for
// pending jobs.
func (e *Engine) Status(jobID string) (*model.JobSnapshot, error) {
	e.mu.Lock()
	job, ok := e.jobs[jobID]
	if !ok {
		e.mu.Unlock()
		return nil, ErrJobNotFound
	}
	c := job.Clone()
	position := e.queue.positionOf(jobID)
	e.mu.Unlock()

	return &model.JobSnapshot{
		JobID:         c.ID,
		Kind:          c.Kind,
		Status:        c.Status,
		Priority:      c.Priority,
		Attempts:      c.Attempts,
		QueuePosition: position,
		ProgressPct:   c.ProgressPercentage(e.subTargetCount(c)),
		Progress:      c.Progress,
		Results:       c.Results,
		LastError:     c.LastError,
		CreatedAt:     c.CreatedAt,
		ScheduledFor:  c.ScheduledFor,
		StartedAt:     c.StartedAt,
		CompletedAt:   c.CompletedAt,
		FailedAt:      c.FailedAt,
	}, nil
}

// QueueLength reports the number of pending jobs.
func (e *Engine) QueueLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.len()
}

// Close stops the scheduler loop after the current job finishes.
func (e *Engine) Close() {
	close(e.done)
}

// ensureLoop starts the scheduler goroutine unless one is already
// draining the queue.
func (e *Engine) ensureLoop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.nudge()
		return
	}
	e.running = true
	go e.runLoop()
}

// nudge wakes a loop that is sleeping on a not-yet-due head job.
func (e *Engine) nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// runLoop drains the queue one job at a time and exits when it is
// empty. Enqueue restarts it.
func (e *Engine) runLoop() {
	for {
		select {
		case <-e.done:
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			return
		default:
		}

		e.mu.Lock()
		job := e.queue.removeNext()
		if job == nil {
			e.running = false
			e.mu.Unlock()
			return
		}

		now := time.Now()

		// Not due yet: put it back and wait, bounded by the poll
		// interval so timeouts are still noticed.
		if now.Before(job.ScheduledFor) {
			e.queue.insert(job)
			wait := time.Until(job.ScheduledFor)
			if wait > e.cfg.PollInterval {
				wait = e.cfg.PollInterval
			}
			e.mu.Unlock()
			e.sleep(wait)
			continue
		}

		// Timeout precedence: an expired job never reaches the
		// processor.
		if now.After(job.TimeoutAt) {
			job.Status = model.JobStatusTimeout
			job.FailedAt = &now
			msg := "job exceeded its deadline before processing finished"
			job.LastError = &msg
			e.mu.Unlock()
			e.persist(context.Background(), job)
			e.notifier.Failed(job.ID, msg, false)
			observability.JobsProcessed.WithLabelValues(string(job.Kind), string(model.JobStatusTimeout)).Inc()
			e.logger.Warn("job timed out", slog.String("job_id", job.ID))
			continue
		}

		e.active[job.ID] = job
		e.mu.Unlock()

		e.process(job)

		e.mu.Lock()
		delete(e.active, job.ID)
		// A retrying job goes straight back into the queue; the loop
		// will hold it until its delay elapses.
		if job.Status == model.JobStatusRetrying {
			e.queue.insert(job)
		}
		e.mu.Unlock()
	}
}

func (e *Engine) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-e.wake:
	case <-e.done:
	}
}

// cancellationRequested reports whether the active job was flagged
// between sub-targets.
func (e *Engine) cancellationRequested(job *model.Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return job.Status == model.JobStatusCancelling
}

// subTargetCount returns the denominator for progress percentages.
func (e *Engine) subTargetCount(job *model.Job) int {
	switch job.Kind {
	case model.JobKindDistribution:
		var p model.DistributionPayload
		if err := json.Unmarshal(job.Payload, &p); err == nil {
			return len(p.Platforms)
		}
	case model.JobKindIngestion:
		return len(ingestionStages)
	}
	return 0
}

// persist mirrors a snapshot into the job store; failures are logged
// and never affect the job.
func (e *Engine) persist(ctx context.Context, job *model.Job) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, job.Clone()); err != nil {
		e.logger.Warn("failed to persist job snapshot",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
