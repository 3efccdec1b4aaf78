package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hardbanrecords/backoffice/internal/client"
	"github.com/hardbanrecords/backoffice/internal/model"
)

// SpotifyAdapter submits releases through the delivery API and parses
// Spotify's JSON royalty exports.
type SpotifyAdapter struct {
	delivery client.ReleaseDeliverer
}

func NewSpotifyAdapter(delivery client.ReleaseDeliverer) *SpotifyAdapter {
	return &SpotifyAdapter{delivery: delivery}
}

func (a *SpotifyAdapter) Name() string { return "spotify" }

func (a *SpotifyAdapter) ReportFormat() model.ReportFormat { return model.ReportFormatJSON }

func (a *SpotifyAdapter) Submit(ctx context.Context, payload *model.DistributionPayload) (*model.SubmissionResult, error) {
	return submitViaDelivery(ctx, a.delivery, a.Name(), payload, "https://open.spotify.com/album/%s")
}

// spotifyRow mirrors one object of the JSON export array.
type spotifyRow struct {
	ISRC        string  `json:"isrc"`
	TrackName   string  `json:"track_name"`
	ArtistName  string  `json:"artist_name"`
	Country     string  `json:"country"`
	ProductType string  `json:"product_type"`
	Quantity    int64   `json:"quantity"`
	Revenue     float64 `json:"revenue"`
	Currency    string  `json:"currency"`
}

func (a *SpotifyAdapter) ParseReport(raw []byte) ([]model.NormalizedRecord, error) {
	var rows []spotifyRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("spotify report is not a JSON array: %w", err)
	}

	records := make([]model.NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.NormalizedRecord{
			ISRC:        strings.ToUpper(strings.TrimSpace(row.ISRC)),
			TrackTitle:  strings.TrimSpace(row.TrackName),
			Artist:      strings.TrimSpace(row.ArtistName),
			Territory:   strings.ToUpper(strings.TrimSpace(row.Country)),
			RevenueType: revenueTypeFromLabel(row.ProductType),
			Units:       row.Quantity,
			Amount:      row.Revenue,
			Currency:    strings.ToUpper(strings.TrimSpace(row.Currency)),
		})
	}
	return records, nil
}

// submitViaDelivery is the shared submit path for all platforms behind
// the delivery aggregator. When the delivery API is not configured it
// fabricates a result so development environments still exercise the
// full job lifecycle.
func submitViaDelivery(ctx context.Context, d client.ReleaseDeliverer, platformName string, payload *model.DistributionPayload, urlPattern string) (*model.SubmissionResult, error) {
	if d == nil || !d.IsConfigured() {
		externalID := uuid.New().String()
		return &model.SubmissionResult{
			Platform:    platformName,
			ExternalID:  externalID,
			ExternalURL: fmt.Sprintf(urlPattern, externalID),
			SubmittedAt: time.Now(),
		}, nil
	}

	resp, err := d.Deliver(ctx, platformName, &client.DeliveryRequest{
		ReleaseID:      payload.ReleaseID,
		Artist:         payload.Artist,
		Title:          payload.Title,
		ReleaseDate:    payload.Settings.ReleaseDate,
		Territories:    payload.Settings.Territories,
		PriceTier:      payload.Settings.PriceTier,
		ExplicitLyrics: payload.Settings.ExplicitLyrics,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status == "rejected" {
		return nil, fmt.Errorf("%s rejected release %s", platformName, payload.ReleaseID)
	}

	return &model.SubmissionResult{
		Platform:    platformName,
		ExternalID:  resp.ExternalID,
		ExternalURL: resp.ExternalURL,
		SubmittedAt: time.Now(),
	}, nil
}

// revenueTypeFromLabel maps a platform's sale-type label onto the
// canonical revenue types.
func revenueTypeFromLabel(label string) model.RevenueType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "stream", "streaming", "premium stream", "ad-supported stream":
		return model.RevenueStream
	case "download", "sale", "track sale", "album sale":
		return model.RevenueDownload
	case "sync", "synchronization":
		return model.RevenueSync
	case "physical", "vinyl", "cd":
		return model.RevenuePhysical
	case "ugc", "user generated content":
		return model.RevenueUGC
	default:
		return model.RevenueUnknown
	}
}
