package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hardbanrecords/backoffice/internal/model"
	"github.com/hardbanrecords/backoffice/internal/observability"
)

// ingestionStages are the sub-targets of an ingestion job, in order.
var ingestionStages = []string{"fetch", "parse", "validate", "aggregate"}

// process executes one job to its terminal (or retrying) status.
func (e *Engine) process(job *model.Job) {
	start := time.Now()

	e.mu.Lock()
	// A cancel request may already have landed between pop and start.
	if job.Status != model.JobStatusCancelling {
		job.Status = model.JobStatusProcessing
	}
	job.Attempts++
	job.StartedAt = &start
	e.mu.Unlock()
	e.persist(context.Background(), job)

	e.logger.Info("job processing",
		slog.String("job_id", job.ID),
		slog.String("kind", string(job.Kind)),
		slog.Int("attempt", job.Attempts),
	)

	var status model.JobStatus
	switch job.Kind {
	case model.JobKindDistribution:
		status = e.processDistribution(job)
	case model.JobKindIngestion:
		status = e.processIngestion(job)
	default:
		status = e.finishFailed(job, fmt.Errorf("unknown job kind %q", job.Kind), false)
	}

	observability.JobsProcessed.WithLabelValues(string(job.Kind), string(status)).Inc()
	observability.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(start).Seconds())
}

// processDistribution pushes the release to each requested platform in
// the configured priority order. Platform failures are isolated; only
// payload decoding counts as a job-level error.
func (e *Engine) processDistribution(job *model.Job) model.JobStatus {
	ctx := context.Background()

	var p model.DistributionPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return e.handleJobError(job, fmt.Errorf("decode distribution payload: %w", err))
	}

	order := e.orderPlatforms(p.Platforms)
	total := len(order)
	results := make(map[string]model.SubmissionResult, total)

	for _, name := range order {
		if e.cancellationRequested(job) {
			return e.finishCancelled(job)
		}
		if time.Now().After(job.TimeoutAt) {
			return e.finishTimeout(job)
		}

		res, err := e.submitToPlatform(ctx, name, &p)

		e.mu.Lock()
		if err != nil {
			job.Progress[name] = model.ProgressEntry{
				Status:    model.OutcomeFailed,
				Error:     err.Error(),
				Timestamp: time.Now(),
			}
		} else {
			job.Progress[name] = model.ProgressEntry{
				Status:    model.OutcomeCompleted,
				Timestamp: time.Now(),
			}
			results[name] = *res
			if raw, mErr := json.Marshal(res); mErr == nil {
				job.Results[name] = raw
			}
		}
		pct := job.ProgressPercentage(total)
		perTarget := cloneProgress(job.Progress)
		e.mu.Unlock()

		e.persist(ctx, job)
		e.notifier.Progress(job.ID, pct, perTarget)

		if err != nil {
			e.logger.Warn("platform submission failed",
				slog.String("job_id", job.ID),
				slog.String("platform", name),
				slog.String("error", err.Error()),
			)
		}
	}

	// A cancel during the final submission must still end in cancelled,
	// never in a completion status.
	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}

	summary := e.agg.finalizeDistribution(ctx, job, &p, order, results)

	switch {
	case len(results) == total:
		return e.finishCompleted(job, model.JobStatusCompleted, summary)
	case len(results) > 0:
		return e.finishCompleted(job, model.JobStatusPartiallyCompleted, summary)
	default:
		return e.finishFailed(job, fmt.Errorf("all %d platform submissions failed", total), false)
	}
}

// submitToPlatform resolves the adapter and performs one submission.
func (e *Engine) submitToPlatform(ctx context.Context, name string, p *model.DistributionPayload) (*model.SubmissionResult, error) {
	adapter, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return adapter.Submit(ctx, p)
}

// orderPlatforms intersects the configured priority order with the
// requested platforms; requested platforms missing from the configured
// order are appended last, keeping their request order.
func (e *Engine) orderPlatforms(requested []string) []string {
	requestedSet := make(map[string]bool, len(requested))
	for _, name := range requested {
		requestedSet[name] = true
	}

	ordered := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, name := range e.cfg.PlatformPriority {
		if requestedSet[name] && !seen[name] {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	for _, name := range requested {
		if !seen[name] {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	return ordered
}

// processIngestion runs the fetch → parse → validate → aggregate
// pipeline. Any stage failure is a job-level error subject to the
// retry policy; individual bad records only produce warnings.
func (e *Engine) processIngestion(job *model.Job) model.JobStatus {
	ctx := context.Background()

	var p model.IngestionPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return e.handleJobError(job, fmt.Errorf("decode ingestion payload: %w", err))
	}

	// fetch
	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}
	raw, err := e.fetcher.Fetch(ctx, p.Source)
	if err != nil {
		return e.handleJobError(job, fmt.Errorf("fetch report: %w", err))
	}
	e.markStage(job, "fetch")

	// parse
	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}
	adapter, err := e.registry.Get(p.Platform)
	if err != nil {
		return e.handleJobError(job, err)
	}
	records, err := adapter.ParseReport(raw)
	if err != nil {
		return e.handleJobError(job, fmt.Errorf("parse report: %w", err))
	}
	for i := range records {
		records[i].Period = p.Period
	}
	e.markStage(job, "parse")

	// validate
	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}
	valid, warnings := validateRecords(records)
	if len(valid) == 0 {
		return e.handleJobError(job, fmt.Errorf("report produced no valid records (%d parsed, %d rejected)", len(records), len(warnings)))
	}
	e.markStage(job, "validate")

	// aggregate
	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}
	summary, err := e.agg.finalizeIngestion(ctx, job, &p, valid, warnings)
	if err != nil {
		return e.handleJobError(job, fmt.Errorf("aggregate report: %w", err))
	}
	summary.RecordsParsed = len(records)
	e.markStage(job, "aggregate")

	e.mu.Lock()
	if raw, mErr := json.Marshal(summary); mErr == nil {
		job.Results[p.Platform] = raw
	}
	e.mu.Unlock()

	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}
	return e.finishCompleted(job, model.JobStatusCompleted, summary)
}

// markStage records one completed ingestion stage and emits progress.
func (e *Engine) markStage(job *model.Job, stage string) {
	e.mu.Lock()
	job.Progress[stage] = model.ProgressEntry{
		Status:    model.OutcomeCompleted,
		Timestamp: time.Now(),
	}
	pct := job.ProgressPercentage(len(ingestionStages))
	perTarget := cloneProgress(job.Progress)
	e.mu.Unlock()

	e.persist(context.Background(), job)
	e.notifier.Progress(job.ID, pct, perTarget)
}

// validateRecords drops records with missing identity, territory or
// currency, or negative counts/amounts. Rejections become warnings.
func validateRecords(records []model.NormalizedRecord) ([]model.NormalizedRecord, []string) {
	valid := make([]model.NormalizedRecord, 0, len(records))
	var warnings []string
	for i, r := range records {
		switch {
		case r.ISRC == "" && (r.TrackTitle == "" || r.Artist == ""):
			warnings = append(warnings, fmt.Sprintf("record %d: no ISRC and no title/artist fallback", i+1))
		case r.Territory == "":
			warnings = append(warnings, fmt.Sprintf("record %d: missing territory", i+1))
		case r.Currency == "":
			warnings = append(warnings, fmt.Sprintf("record %d: missing currency", i+1))
		case r.Units < 0:
			warnings = append(warnings, fmt.Sprintf("record %d: negative unit count", i+1))
		case r.Amount < 0:
			warnings = append(warnings, fmt.Sprintf("record %d: negative amount", i+1))
		default:
			valid = append(valid, r)
		}
	}
	return valid, warnings
}

// handleJobError routes a job-level failure through the retry policy.
// A cancel that landed while the stage was in flight wins over both
// retry and permanent failure.
func (e *Engine) handleJobError(job *model.Job, err error) model.JobStatus {
	if e.cancellationRequested(job) {
		return e.finishCancelled(job)
	}
	decision := e.policy.Decide(job, err)
	if !decision.Retry {
		return e.finishFailed(job, err, decision.Retryable)
	}

	msg := err.Error()
	e.mu.Lock()
	job.Status = model.JobStatusRetrying
	job.ScheduledFor = time.Now().Add(decision.Delay)
	job.LastError = &msg
	e.mu.Unlock()
	e.persist(context.Background(), job)

	e.logger.Warn("job scheduled for retry",
		slog.String("job_id", job.ID),
		slog.Int("attempt", job.Attempts),
		slog.Int("max_attempts", e.policy.MaxAttempts),
		slog.Duration("delay", decision.Delay),
		slog.String("error", msg),
	)
	return model.JobStatusRetrying
}

// finishCompleted finalizes a successful (or partially successful) job.
func (e *Engine) finishCompleted(job *model.Job, status model.JobStatus, summary interface{}) model.JobStatus {
	now := time.Now()
	e.mu.Lock()
	job.Status = status
	job.CompletedAt = &now
	e.mu.Unlock()
	e.persist(context.Background(), job)

	e.notifier.Completed(job.ID, status, summary)
	e.logger.Info("job finished",
		slog.String("job_id", job.ID),
		slog.String("status", string(status)),
		slog.Int("attempts", job.Attempts),
	)
	return status
}

// finishFailed finalizes a permanently failed job.
func (e *Engine) finishFailed(job *model.Job, err error, retryable bool) model.JobStatus {
	now := time.Now()
	msg := err.Error()
	e.mu.Lock()
	job.Status = model.JobStatusFailed
	job.FailedAt = &now
	job.LastError = &msg
	e.mu.Unlock()
	e.persist(context.Background(), job)

	e.notifier.Failed(job.ID, msg, retryable)
	e.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
		slog.String("error", msg),
	)
	return model.JobStatusFailed
}

// finishTimeout finalizes a job that exceeded its deadline while
// processing.
func (e *Engine) finishTimeout(job *model.Job) model.JobStatus {
	now := time.Now()
	msg := "job exceeded its deadline before processing finished"
	e.mu.Lock()
	job.Status = model.JobStatusTimeout
	job.FailedAt = &now
	job.LastError = &msg
	e.mu.Unlock()
	e.persist(context.Background(), job)

	e.notifier.Failed(job.ID, msg, false)
	e.logger.Warn("job timed out mid-processing", slog.String("job_id", job.ID))
	return model.JobStatusTimeout
}

// finishCancelled finalizes a cooperatively cancelled job.
func (e *Engine) finishCancelled(job *model.Job) model.JobStatus {
	now := time.Now()
	e.mu.Lock()
	job.Status = model.JobStatusCancelled
	job.CompletedAt = &now
	e.mu.Unlock()
	e.persist(context.Background(), job)

	e.notifier.Completed(job.ID, model.JobStatusCancelled, nil)
	e.logger.Info("job cancelled", slog.String("job_id", job.ID))
	return model.JobStatusCancelled
}

func cloneProgress(in map[string]model.ProgressEntry) map[string]model.ProgressEntry {
	out := make(map[string]model.ProgressEntry, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
