package model

// Job status
type JobStatus string

const (
	JobStatusQueued             JobStatus = "queued"
	JobStatusProcessing         JobStatus = "processing"
	JobStatusRetrying           JobStatus = "retrying"
	JobStatusCompleted          JobStatus = "completed"
	JobStatusPartiallyCompleted JobStatus = "partially_completed"
	JobStatusFailed             JobStatus = "failed"
	JobStatusTimeout            JobStatus = "timeout"
	JobStatusCancelled          JobStatus = "cancelled"
	JobStatusCancelling         JobStatus = "cancelling"
)

// Terminal reports whether a job in this status can never transition again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartiallyCompleted, JobStatusFailed,
		JobStatusTimeout, JobStatusCancelled:
		return true
	}
	return false
}

// Job kinds
type JobKind string

const (
	JobKindDistribution JobKind = "distribution"
	JobKindIngestion    JobKind = "ingestion"
)

// Priorities. Lower value runs first.
const (
	PriorityUrgent = 1
	PriorityHigh   = 2
	PriorityNormal = 3
	PriorityLow    = 4
	PriorityBatch  = 5
)

// Sub-target outcome within a job
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Report formats accepted from platforms
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatTSV  ReportFormat = "tsv"
	ReportFormatJSON ReportFormat = "json"
)

var ValidReportFormats = []ReportFormat{
	ReportFormatCSV, ReportFormatTSV, ReportFormatJSON,
}

// Revenue types found on royalty reports
type RevenueType string

const (
	RevenueStream    RevenueType = "stream"
	RevenueDownload  RevenueType = "download"
	RevenueSync      RevenueType = "sync"
	RevenuePhysical  RevenueType = "physical"
	RevenueUGC       RevenueType = "ugc"
	RevenueUnknown   RevenueType = "unknown"
)

// Channel delivery status reported back to the catalog
type ChannelStatus string

const (
	ChannelStatusDelivered ChannelStatus = "delivered"
	ChannelStatusRejected  ChannelStatus = "rejected"
)
