package model

import (
	"encoding/json"
	"time"
)

// Job represents one schedulable unit of asynchronous back-office work:
// a release push to a set of platforms, or the ingestion of one royalty
// report. It is pure data; the engine owns every mutation.
type Job struct {
	ID          string                     `json:"id"`
	Kind        JobKind                    `json:"kind"`
	Priority    int                        `json:"priority"`
	Status      JobStatus                  `json:"status"`
	Payload     json.RawMessage            `json:"-"`
	Attempts    int                        `json:"attempts"`
	Progress    map[string]ProgressEntry   `json:"progress,omitempty"`
	Results     map[string]json.RawMessage `json:"results,omitempty"`
	LastError   *string                    `json:"lastError,omitempty"`
	CreatedAt   time.Time                  `json:"createdAt"`
	ScheduledFor time.Time                 `json:"scheduledFor"`
	TimeoutAt   time.Time                  `json:"timeoutAt"`
	StartedAt   *time.Time                 `json:"startedAt,omitempty"`
	CompletedAt *time.Time                 `json:"completedAt,omitempty"`
	FailedAt    *time.Time                 `json:"failedAt,omitempty"`
}

// ProgressEntry records the outcome of a single sub-target.
type ProgressEntry struct {
	Status    OutcomeStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// ProgressPercentage returns completed sub-targets over the given total.
func (j *Job) ProgressPercentage(total int) int {
	if total == 0 {
		return 0
	}
	done := 0
	for _, p := range j.Progress {
		if p.Status == OutcomeCompleted {
			done++
		}
	}
	return done * 100 / total
}

// Clone returns a deep copy safe to hand outside the engine.
func (j *Job) Clone() *Job {
	c := *j
	if j.Progress != nil {
		c.Progress = make(map[string]ProgressEntry, len(j.Progress))
		for k, v := range j.Progress {
			c.Progress[k] = v
		}
	}
	if j.Results != nil {
		c.Results = make(map[string]json.RawMessage, len(j.Results))
		for k, v := range j.Results {
			c.Results[k] = append(json.RawMessage(nil), v...)
		}
	}
	if j.LastError != nil {
		e := *j.LastError
		c.LastError = &e
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.FailedAt != nil {
		t := *j.FailedAt
		c.FailedAt = &t
	}
	return &c
}

// JobSnapshot is the read model returned by status queries.
type JobSnapshot struct {
	JobID         string                     `json:"jobId"`
	Kind          JobKind                    `json:"kind"`
	Status        JobStatus                  `json:"status"`
	Priority      int                        `json:"priority"`
	Attempts      int                        `json:"attempts"`
	QueuePosition int                        `json:"queuePosition,omitempty"`
	ProgressPct   int                        `json:"progressPercentage"`
	Progress      map[string]ProgressEntry   `json:"progress,omitempty"`
	Results       map[string]json.RawMessage `json:"results,omitempty"`
	LastError     *string                    `json:"lastError,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
	ScheduledFor  time.Time                  `json:"scheduledFor"`
	StartedAt     *time.Time                 `json:"startedAt,omitempty"`
	CompletedAt   *time.Time                 `json:"completedAt,omitempty"`
	FailedAt      *time.Time                 `json:"failedAt,omitempty"`
}

// EnqueueReceipt is returned to the caller when a job is accepted.
type EnqueueReceipt struct {
	JobID         string    `json:"jobId"`
	Status        JobStatus `json:"status"`
	QueuePosition int       `json:"queuePosition"`
	ETA           time.Time `json:"eta"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CancelOutcome describes the result of a cancellation request.
type CancelOutcome string

const (
	CancelOutcomeCancelled  CancelOutcome = "cancelled"
	CancelOutcomeCancelling CancelOutcome = "cancelling"
	CancelOutcomeNotFound   CancelOutcome = "not_found"
)
