// Package benchclient is a small client for a benchmark node's challenge
// endpoint.
package benchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxnlabs/reduction-bench/internal/report"
)

// Client sends challenges to a benchmark node.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the node at baseURL. A nil httpClient gets a
// default whose timeout is generous enough for large on-device reductions.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, client: httpClient}
}

// challenge mirrors the wire shape of the node's /challenge endpoint.
type challenge struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Challenge posts one challenge and returns the raw response body.
func (c *Client) Challenge(ctx context.Context, challengeType string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(challenge{Type: challengeType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode challenge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/challenge", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("challenge returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

// MaxReductionRequest parameterizes a MAX_REDUCTION challenge. Zero fields
// fall back to the node's defaults.
type MaxReductionRequest struct {
	Size           int    `json:"size,omitempty"`
	Seed           uint64 `json:"seed,omitempty"`
	LocalSize      int    `json:"wg,omitempty"`
	GroupsMax      int    `json:"groups_max,omitempty"`
	ItemsPerThread int    `json:"items,omitempty"`
}

// MaxReduction runs a seeded reduction on the node and returns its record.
func (c *Client) MaxReduction(ctx context.Context, req MaxReductionRequest) (*report.Record, error) {
	raw, err := c.Challenge(ctx, "MAX_REDUCTION", req)
	if err != nil {
		return nil, err
	}
	var rec report.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &rec, nil
}

// DeviceInfo queries the node's capability report.
func (c *Client) DeviceInfo(ctx context.Context) (json.RawMessage, error) {
	return c.Challenge(ctx, "DEVICE_INFO", nil)
}
