package model

import "time"

// IngestionPayload is the immutable input of an ingestion job.
type IngestionPayload struct {
	Platform string          `json:"platform" validate:"required"`
	Format   ReportFormat    `json:"format" validate:"required,oneof=csv tsv json"`
	Source   ReportSource    `json:"source" validate:"required"`
	Period   ReportingPeriod `json:"period" validate:"required"`
}

// ReportSource describes where the raw report bytes come from.
// Exactly one of URL or Inline must be set.
type ReportSource struct {
	URL    string `json:"url,omitempty" validate:"omitempty,url"`
	Inline []byte `json:"inline,omitempty"`
}

// ReportingPeriod bounds the report being ingested.
type ReportingPeriod struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required,gtefield=From"`
}

// NormalizedRecord is the canonical, platform-independent shape of one
// royalty line item. Parsers produce it, validation and aggregation
// consume it; it is never stored verbatim.
type NormalizedRecord struct {
	ISRC        string          `json:"isrc,omitempty"`
	TrackTitle  string          `json:"trackTitle,omitempty"`
	Artist      string          `json:"artist,omitempty"`
	Territory   string          `json:"territory"`
	RevenueType RevenueType     `json:"revenueType"`
	Units       int64           `json:"units"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	Period      ReportingPeriod `json:"period"`
}

// TrackKey returns the identity used to fold records per track: ISRC
// when present, otherwise title+artist.
func (r *NormalizedRecord) TrackKey() string {
	if r.ISRC != "" {
		return r.ISRC
	}
	return r.TrackTitle + " / " + r.Artist
}

// Earnings is one persisted row per valid normalized record.
type Earnings struct {
	ID             string          `json:"id"`
	JobID          string          `json:"jobId"`
	Platform       string          `json:"platform"`
	TrackID        string          `json:"trackId"`
	HolderID       string          `json:"holderId"`
	Territory      string          `json:"territory"`
	RevenueType    RevenueType     `json:"revenueType"`
	Units          int64           `json:"units"`
	Amount         float64         `json:"amount"`
	Currency       string          `json:"currency"`
	ReportedAmount float64         `json:"reportedAmount"`
	ReportedIn     string          `json:"reportedIn"`
	Period         ReportingPeriod `json:"period"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// RoyaltyStatement is emitted once per rights-holder per ingested report.
type RoyaltyStatement struct {
	ID           string             `json:"id"`
	HolderID     string             `json:"holderId"`
	Platform     string             `json:"platform"`
	Period       ReportingPeriod    `json:"period"`
	Currency     string             `json:"currency"`
	GrossRevenue float64            `json:"grossRevenue"`
	NetRevenue   float64            `json:"netRevenue"`
	TotalUnits   int64              `json:"totalUnits"`
	ByTerritory  map[string]float64 `json:"byTerritory"`
	ByTrack      map[string]float64 `json:"byTrack"`
	Status       string             `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// IngestionSummary is the job-level result of an ingestion job.
type IngestionSummary struct {
	Platform       string             `json:"platform"`
	RecordsParsed  int                `json:"recordsParsed"`
	RecordsValid   int                `json:"recordsValid"`
	RecordsSkipped int                `json:"recordsSkipped"`
	Warnings       []string           `json:"warnings,omitempty"`
	Currency       string             `json:"currency"`
	GrossRevenue   float64            `json:"grossRevenue"`
	TotalUnits     int64              `json:"totalUnits"`
	ByCurrency     map[string]float64 `json:"byCurrency"`
	ByTerritory    map[string]float64 `json:"byTerritory"`
	Statements     int                `json:"statements"`
}
