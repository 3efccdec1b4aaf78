package platform

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/hardbanrecords/backoffice/internal/client"
	"github.com/hardbanrecords/backoffice/internal/model"
)

// BandcampAdapter submits releases through the delivery API and parses
// Bandcamp's CSV sales reports.
type BandcampAdapter struct {
	delivery client.ReleaseDeliverer
}

func NewBandcampAdapter(delivery client.ReleaseDeliverer) *BandcampAdapter {
	return &BandcampAdapter{delivery: delivery}
}

func (a *BandcampAdapter) Name() string { return "bandcamp" }

func (a *BandcampAdapter) ReportFormat() model.ReportFormat { return model.ReportFormatCSV }

func (a *BandcampAdapter) Submit(ctx context.Context, payload *model.DistributionPayload) (*model.SubmissionResult, error) {
	return submitViaDelivery(ctx, a.delivery, a.Name(), payload, "https://bandcamp.com/album/%s")
}

// Bandcamp reports are CSV with a header row:
// isrc, item name, artist, country, item type, quantity, amount, currency
func (a *BandcampAdapter) ParseReport(raw []byte) ([]model.NormalizedRecord, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("bandcamp report is not valid CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("bandcamp report has no data rows")
	}

	col, err := headerIndex(rows[0], map[string][]string{
		"isrc":      {"isrc"},
		"title":     {"item name", "title"},
		"artist":    {"artist"},
		"territory": {"country", "country code"},
		"salesType": {"item type", "type"},
		"units":     {"quantity", "units"},
		"amount":    {"amount", "net amount"},
		"currency":  {"currency"},
	})
	if err != nil {
		return nil, fmt.Errorf("bandcamp report: %w", err)
	}

	records := make([]model.NormalizedRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := rowToRecord(row, col)
		if err != nil {
			return nil, fmt.Errorf("bandcamp report row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
