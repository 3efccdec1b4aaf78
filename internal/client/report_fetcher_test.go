package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardbanrecords/backoffice/internal/config"
	"github.com/hardbanrecords/backoffice/internal/model"
)

func TestFetchPrefersInlineContent(t *testing.T) {
	f := NewReportFetcher()
	got, err := f.Fetch(context.Background(), model.ReportSource{
		Inline: []byte("a,b,c"),
		URL:    "https://reports.example.com/ignored.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("a,b,c"), got)
}

func TestFetchDownloadsFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"isrc":"X"}]`))
	}))
	defer srv.Close()

	f := NewReportFetcher()
	got, err := f.Fetch(context.Background(), model.ReportSource{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"isrc":"X"}]`), got)
}

func TestFetchRejectsEmptySource(t *testing.T) {
	f := NewReportFetcher()
	_, err := f.Fetch(context.Background(), model.ReportSource{})
	require.Error(t, err)
}

func TestFetchPropagatesHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewReportFetcher()
	_, err := f.Fetch(context.Background(), model.ReportSource{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := NewReportFetcher()
	_, err := f.Fetch(context.Background(), model.ReportSource{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestDeliveryClientSubmitsRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/platforms/spotify/releases", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"external_id": "sp-123", "external_url": "https://open.spotify.com/album/sp-123", "status": "accepted"}`))
	}))
	defer srv.Close()

	c := NewDeliveryClient(&config.DeliveryConfig{BaseURL: srv.URL, APIKey: "test-key"})
	resp, err := c.Deliver(context.Background(), "spotify", &DeliveryRequest{
		ReleaseID: "rel-1",
		Artist:    "Mavi Rains",
		Title:     "Neon Tide",
	})
	require.NoError(t, err)
	assert.Equal(t, "sp-123", resp.ExternalID)
	assert.Equal(t, "accepted", resp.Status)
}
