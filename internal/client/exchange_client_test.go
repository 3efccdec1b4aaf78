package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardbanrecords/backoffice/internal/config"
)

func TestConvertSameCurrency(t *testing.T) {
	c := NewExchangeClient(&config.ExchangeConfig{})
	got, err := c.Convert(context.Background(), 12.34, "usd", "USD")
	require.NoError(t, err)
	assert.Equal(t, 12.34, got)
}

func TestConvertStaticFallback(t *testing.T) {
	c := NewExchangeClient(&config.ExchangeConfig{})
	require.False(t, c.IsConfigured())

	got, err := c.Convert(context.Background(), 10, "EUR", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 10.8, got, 1e-9)

	got, err = c.Convert(context.Background(), 10.8, "USD", "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 10, got, 1e-9)
}

func TestConvertUnknownCurrency(t *testing.T) {
	c := NewExchangeClient(&config.ExchangeConfig{})
	_, err := c.Convert(context.Background(), 100, "XDR", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XDR")
}

func TestConvertAgainstAPIAndCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "EUR", r.URL.Query().Get("from"))
		assert.Equal(t, "USD", r.URL.Query().Get("to"))
		w.Write([]byte(`{"success": true, "result": 1.0912}`))
	}))
	defer srv.Close()

	c := NewExchangeClient(&config.ExchangeConfig{BaseURL: srv.URL, APIKey: "test-key"})
	require.True(t, c.IsConfigured())

	got, err := c.Convert(context.Background(), 100, "EUR", "USD")
	require.NoError(t, err)
	assert.InDelta(t, 109.12, got, 1e-9)

	// Second conversion inside the cache TTL must not hit the API.
	_, err = c.Convert(context.Background(), 50, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestConvertAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`upstream unavailable`))
	}))
	defer srv.Close()

	c := NewExchangeClient(&config.ExchangeConfig{BaseURL: srv.URL, APIKey: "test-key"})
	_, err := c.Convert(context.Background(), 100, "EUR", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
