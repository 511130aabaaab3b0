package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/platform"
)

// Client talks to the Graph-style REST API: bearer-token auth, JSON bodies,
// one HTTP call per publish/send.
type Client struct {
	baseURL    string
	apiVersion string
	client     *http.Client
	logger     *zap.Logger
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func NewClient(baseURL, apiVersion string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, path)
}

// postJSON issues a single authenticated POST and decodes the response into
// out. Non-2xx responses are surfaced as *platform.PlatformError.
func (c *Client) postJSON(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Message == "" {
			return &platform.PlatformError{
				Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
				HTTPStatus: resp.StatusCode,
			}
		}
		return &platform.PlatformError{
			Code:       envelope.Error.Code,
			Type:       envelope.Error.Type,
			Message:    envelope.Error.Message,
			HTTPStatus: resp.StatusCode,
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
