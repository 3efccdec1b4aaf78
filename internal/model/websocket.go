package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update for one job
type WSProgressMessage struct {
	Type        string                   `json:"type"`
	JobID       string                   `json:"jobId"`
	Progress    int                      `json:"progress"`
	PerPlatform map[string]ProgressEntry `json:"perPlatform,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type    string      `json:"type"`
	JobID   string      `json:"jobId"`
	Status  JobStatus   `json:"status"`
	Summary interface{} `json:"summary,omitempty"`
}

// WSErrorMessage represents a terminal failure
type WSErrorMessage struct {
	Type      string `json:"type"`
	JobID     string `json:"jobId"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}
