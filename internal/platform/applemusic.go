package platform

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/hardbanrecords/backoffice/internal/client"
	"github.com/hardbanrecords/backoffice/internal/model"
)

// AppleMusicAdapter submits releases through the delivery API and
// parses Apple's tab-separated royalty reports.
type AppleMusicAdapter struct {
	delivery client.ReleaseDeliverer
}

func NewAppleMusicAdapter(delivery client.ReleaseDeliverer) *AppleMusicAdapter {
	return &AppleMusicAdapter{delivery: delivery}
}

func (a *AppleMusicAdapter) Name() string { return "applemusic" }

func (a *AppleMusicAdapter) ReportFormat() model.ReportFormat { return model.ReportFormatTSV }

func (a *AppleMusicAdapter) Submit(ctx context.Context, payload *model.DistributionPayload) (*model.SubmissionResult, error) {
	return submitViaDelivery(ctx, a.delivery, a.Name(), payload, "https://music.apple.com/album/%s")
}

// Apple reports are TSV with a header row:
// ISRC, Title, Artist, Country Code, Sales Type, Units, Royalty, Currency
func (a *AppleMusicAdapter) ParseReport(raw []byte) ([]model.NormalizedRecord, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = '\t'
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("applemusic report is not valid TSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("applemusic report has no data rows")
	}

	col, err := headerIndex(rows[0], map[string][]string{
		"isrc":      {"isrc"},
		"title":     {"title", "item title"},
		"artist":    {"artist", "artist name"},
		"territory": {"country code", "country", "territory"},
		"salesType": {"sales type", "product type"},
		"units":     {"units", "quantity"},
		"amount":    {"royalty", "amount", "royalty amount"},
		"currency":  {"currency", "royalty currency"},
	})
	if err != nil {
		return nil, fmt.Errorf("applemusic report: %w", err)
	}

	records := make([]model.NormalizedRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := rowToRecord(row, col)
		if err != nil {
			return nil, fmt.Errorf("applemusic report row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// headerIndex resolves, case-insensitively, each logical column to its
// position in the header row.
func headerIndex(header []string, aliases map[string][]string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}

	col := make(map[string]int, len(aliases))
	for logical, names := range aliases {
		found := -1
		for _, name := range names {
			if i, ok := positions[name]; ok {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("missing column %q", names[0])
		}
		col[logical] = found
	}
	return col, nil
}

// rowToRecord converts one delimited row into a normalized record using
// the resolved column map. Shared by the TSV and CSV adapters.
func rowToRecord(row []string, col map[string]int) (model.NormalizedRecord, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	units, err := strconv.ParseInt(field("units"), 10, 64)
	if err != nil {
		return model.NormalizedRecord{}, fmt.Errorf("bad units %q", field("units"))
	}
	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return model.NormalizedRecord{}, fmt.Errorf("bad amount %q", field("amount"))
	}

	return model.NormalizedRecord{
		ISRC:        strings.ToUpper(field("isrc")),
		TrackTitle:  field("title"),
		Artist:      field("artist"),
		Territory:   strings.ToUpper(field("territory")),
		RevenueType: revenueTypeFromLabel(field("salesType")),
		Units:       units,
		Amount:      amount,
		Currency:    strings.ToUpper(field("currency")),
	}, nil
}
