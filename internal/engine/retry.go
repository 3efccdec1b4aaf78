package engine

import (
	"strings"
	"time"

	"github.com/hardbanrecords/backoffice/internal/model"
)

// transientMarkers is the allow-list of error fragments treated as
// retryable. Anything else is fatal.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
	"service unavailable",
	"rate limit",
	"too many requests",
	"server error",
	"internal server error",
	"bad gateway",
	"502",
	"503",
	"504",
}

// IsRetryable classifies an error as transient by matching its text
// against the allow-list.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RetryPolicy decides whether a failed job re-enters the queue and
// after what delay. The delay is constant per attempt; ingestion waits
// longer because its failures are usually upstream-report issues rather
// than live-call issues.
type RetryPolicy struct {
	MaxAttempts            int
	DistributionRetryDelay time.Duration
	IngestionRetryDelay    time.Duration
}

// Decision is the policy's verdict for one failed attempt.
type Decision struct {
	Retry     bool
	Delay     time.Duration
	Retryable bool
}

// Decide returns the verdict for a job-level failure. Retry requires
// both attempts remaining and a transient error.
func (p RetryPolicy) Decide(job *model.Job, err error) Decision {
	retryable := IsRetryable(err)
	if !retryable || job.Attempts >= p.MaxAttempts {
		return Decision{Retry: false, Retryable: retryable}
	}
	delay := p.DistributionRetryDelay
	if job.Kind == model.JobKindIngestion {
		delay = p.IngestionRetryDelay
	}
	return Decision{Retry: true, Delay: delay, Retryable: true}
}
