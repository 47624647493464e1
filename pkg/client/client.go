// Package client talks to a running igproxy gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"igproxy/pkg/config"
	"igproxy/pkg/errors"
	"igproxy/pkg/logger"
	"igproxy/pkg/models"
)

const maxResponseBytes = 4 << 20

// AnonymousToken is sent when no API key is configured. Gateways without a
// shared secret accept it; others answer INVALID_API_KEY.
const AnonymousToken = "anonymous"

// Client sends download requests to the gateway
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     logger.Logger
}

// New creates a client from configuration
func New(cfg *config.ClientConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = AnonymousToken
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     apiKey,
		logger:     log,
	}
}

// Fetch asks the gateway for the download options of postURL. A failure
// envelope is returned as an *errors.Error carrying the gateway's code.
func (c *Client) Fetch(ctx context.Context, postURL string) (*models.MediaResult, error) {
	payload, err := json.Marshal(map[string]string{"url": postURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("gateway request failed", map[string]interface{}{
			"base_url": c.baseURL,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("gateway request completed", map[string]interface{}{
		"status":     resp.StatusCode,
		"request_id": resp.Header.Get("X-Request-ID"),
		"duration":   time.Since(start),
	})

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("gateway returned a non-JSON response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		code := env.ErrorCode
		if code == "" {
			code = errors.CodeInternal
		}
		return nil, &errors.Error{Code: code, Message: env.Error, Status: resp.StatusCode}
	}
	if env.Data == nil {
		return nil, fmt.Errorf("gateway returned success without data")
	}

	return env.Data, nil
}

// Health checks that the gateway is serving
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
