package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hardbanrecords/backoffice/internal/config"
)

// ReleaseDeliverer defines the outbound contract for pushing a release
// to a streaming platform's ingestion endpoint.
type ReleaseDeliverer interface {
	Deliver(ctx context.Context, platform string, req *DeliveryRequest) (*DeliveryResponse, error)
	IsConfigured() bool
}

// DeliveryClient implements ReleaseDeliverer against the label's
// delivery aggregator API.
type DeliveryClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// DeliveryRequest is the body posted per platform submission.
type DeliveryRequest struct {
	ReleaseID      string   `json:"release_id"`
	Artist         string   `json:"artist"`
	Title          string   `json:"title"`
	ReleaseDate    string   `json:"release_date,omitempty"`
	Territories    []string `json:"territories,omitempty"`
	PriceTier      string   `json:"price_tier,omitempty"`
	ExplicitLyrics bool     `json:"explicit_lyrics,omitempty"`
}

// DeliveryResponse is the platform's acknowledgement.
type DeliveryResponse struct {
	ExternalID  string `json:"external_id"`
	ExternalURL string `json:"external_url,omitempty"`
	Status      string `json:"status"`
}

// NewDeliveryClient creates a delivery API client.
func NewDeliveryClient(cfg *config.DeliveryConfig) *DeliveryClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &DeliveryClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true if the client has credentials.
func (c *DeliveryClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Deliver submits one release to one platform.
func (c *DeliveryClient) Deliver(ctx context.Context, platform string, req *DeliveryRequest) (*DeliveryResponse, error) {
	endpoint := fmt.Sprintf("/v1/platforms/%s/releases", platform)
	var result DeliveryResponse
	if err := c.post(ctx, endpoint, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *DeliveryClient) post(ctx context.Context, endpoint string, body, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("delivery API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
