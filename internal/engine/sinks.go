package engine

import (
	"context"
	"log/slog"

	"github.com/hardbanrecords/backoffice/internal/model"
)

// Notifier receives job lifecycle events. Delivery is best-effort: the
// engine logs notifier problems but they never change a job's outcome.
type Notifier interface {
	Progress(jobID string, percent int, perTarget map[string]model.ProgressEntry)
	Completed(jobID string, status model.JobStatus, summary interface{})
	Failed(jobID string, errMsg string, retryable bool)
}

// ChannelStatusSink records the delivery outcome of one release on one
// platform back into the catalog.
type ChannelStatusSink interface {
	Update(ctx context.Context, update model.ChannelUpdate) error
}

// EarningsSink persists ingested earnings and the statements derived
// from them.
type EarningsSink interface {
	CreateEarnings(ctx context.Context, e *model.Earnings) error
	CreateStatement(ctx context.Context, s *model.RoyaltyStatement) error
}

// TrackRef identifies a catalog track and its rights-holder.
type TrackRef struct {
	TrackID  string
	HolderID string
}

// CatalogResolver maps a report line to the catalog: by ISRC when
// present, otherwise by title and artist.
type CatalogResolver interface {
	Resolve(ctx context.Context, isrc, title, artist string) (TrackRef, error)
}

// JobStore mirrors job snapshots for durability and offline inspection.
// The in-memory engine state stays authoritative.
type JobStore interface {
	Save(ctx context.Context, job *model.Job) error
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Progress(string, int, map[string]model.ProgressEntry) {}
func (NopNotifier) Completed(string, model.JobStatus, interface{})       {}
func (NopNotifier) Failed(string, string, bool)                          {}

// LogNotifier writes lifecycle events to the structured log. Usually
// composed with the websocket hub through FanoutNotifier.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Progress(jobID string, percent int, _ map[string]model.ProgressEntry) {
	n.Logger.Debug("job progress", slog.String("job_id", jobID), slog.Int("percent", percent))
}

func (n LogNotifier) Completed(jobID string, status model.JobStatus, _ interface{}) {
	n.Logger.Info("job completion notified", slog.String("job_id", jobID), slog.String("status", string(status)))
}

func (n LogNotifier) Failed(jobID string, errMsg string, retryable bool) {
	n.Logger.Warn("job failure notified",
		slog.String("job_id", jobID),
		slog.String("error", errMsg),
		slog.Bool("retryable", retryable),
	)
}

// FanoutNotifier forwards every event to each wrapped notifier.
type FanoutNotifier []Notifier

func (f FanoutNotifier) Progress(jobID string, percent int, perTarget map[string]model.ProgressEntry) {
	for _, n := range f {
		n.Progress(jobID, percent, perTarget)
	}
}

func (f FanoutNotifier) Completed(jobID string, status model.JobStatus, summary interface{}) {
	for _, n := range f {
		n.Completed(jobID, status, summary)
	}
}

func (f FanoutNotifier) Failed(jobID string, errMsg string, retryable bool) {
	for _, n := range f {
		n.Failed(jobID, errMsg, retryable)
	}
}
