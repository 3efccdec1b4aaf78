package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hardbanrecords/backoffice/internal/model"
)

// maxReportSize caps downloaded report bodies at 64 MiB.
const maxReportSize = 64 << 20

// ReportFetcher acquires the raw bytes of a royalty report from its
// declared source.
type ReportFetcher interface {
	Fetch(ctx context.Context, source model.ReportSource) ([]byte, error)
}

// HTTPReportFetcher downloads URL-sourced reports and passes inline
// uploads through.
type HTTPReportFetcher struct {
	httpClient *http.Client
}

func NewReportFetcher() *HTTPReportFetcher {
	return &HTTPReportFetcher{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Fetch returns the report bytes, preferring inline content.
func (f *HTTPReportFetcher) Fetch(ctx context.Context, source model.ReportSource) ([]byte, error) {
	if len(source.Inline) > 0 {
		return source.Inline, nil
	}
	if source.URL == "" {
		return nil, errors.New("report source has neither inline content nor URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("report download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read report body: %w", err)
	}
	if len(data) > maxReportSize {
		return nil, fmt.Errorf("report exceeds %d byte limit", maxReportSize)
	}
	if len(data) == 0 {
		return nil, errors.New("report body is empty")
	}
	return data, nil
}
