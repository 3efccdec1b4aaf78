package model

import "time"

// DistributionPayload is the immutable input of a distribution job.
type DistributionPayload struct {
	ReleaseID string               `json:"releaseId" validate:"required,uuid"`
	Artist    string               `json:"artist" validate:"required"`
	Title     string               `json:"title" validate:"required"`
	Platforms []string             `json:"platforms" validate:"required,min=1,dive,required"`
	Settings  DistributionSettings `json:"settings"`
}

// DistributionSettings carries per-release delivery options.
type DistributionSettings struct {
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	Territories    []string `json:"territories,omitempty"`
	PriceTier      string   `json:"priceTier,omitempty"`
	ExplicitLyrics bool     `json:"explicitLyrics,omitempty"`
}

// SubmissionResult is what a platform adapter returns for a successful
// release submission.
type SubmissionResult struct {
	Platform    string    `json:"platform"`
	ExternalID  string    `json:"externalId"`
	ExternalURL string    `json:"externalUrl,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// DistributionSummary is the job-level result of a distribution job.
type DistributionSummary struct {
	ReleaseID   string                      `json:"releaseId"`
	SuccessRate int                         `json:"successRate"`
	Succeeded   []string                    `json:"succeeded"`
	Failed      []string                    `json:"failed,omitempty"`
	Results     map[string]SubmissionResult `json:"results"`
}

// ChannelUpdate is pushed to the catalog's channel status sink after
// each platform finishes.
type ChannelUpdate struct {
	Platform     string        `json:"platform"`
	ReleaseID    string        `json:"releaseId"`
	Status       ChannelStatus `json:"status"`
	ExternalID   string        `json:"externalId,omitempty"`
	ExternalURL  string        `json:"externalUrl,omitempty"`
	ErrorDetails string        `json:"errorDetails,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
