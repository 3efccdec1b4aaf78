package model

// DistributionStartRequest is the body of POST /api/distribution/start.
type DistributionStartRequest struct {
	Priority int                 `json:"priority" validate:"omitempty,min=1,max=5"`
	Payload  DistributionPayload `json:"payload" validate:"required"`
}

// IngestionStartRequest is the body of POST /api/ingestion/start.
type IngestionStartRequest struct {
	Priority int              `json:"priority" validate:"omitempty,min=1,max=5"`
	Payload  IngestionPayload `json:"payload" validate:"required"`
}

// CancelRequest is the body of POST /api/jobs/:jobId/cancel.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancelResponse reports the outcome of a cancellation.
type CancelResponse struct {
	JobID   string        `json:"jobId"`
	Outcome CancelOutcome `json:"outcome"`
}
