package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igproxy/pkg/config"
	"igproxy/pkg/errors"
	"igproxy/pkg/logger"
	"igproxy/pkg/models"
)

// MaxUpstreamBodyBytes caps how much of an upstream response is read
const MaxUpstreamBodyBytes = 2 << 20

// Upstream outcomes reported to an Observer
const (
	OutcomeSuccess = "success"
	OutcomeNoMedia = "no_media"
	OutcomeFailed  = "failed"
)

// Observer receives the outcome and duration of every upstream call
type Observer func(outcome string, duration time.Duration)

// Fetcher retrieves the media description for an Instagram URL
type Fetcher interface {
	Fetch(ctx context.Context, postURL string) (*models.MediaResult, error)
}

// Client calls the upstream extraction service
type Client struct {
	httpClient *http.Client
	endpoint   string
	headers    map[string]string
	timeout    time.Duration
	logger     logger.Logger
	observer   Observer
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithObserver registers a callback for upstream outcomes
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates an upstream client from configuration
func NewClient(cfg *config.UpstreamConfig, log logger.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	c := &Client{
		httpClient: &http.Client{},
		endpoint:   cfg.Endpoint,
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "application/json",
			"Accept-Language": "en-US,en;q=0.9",
			"Content-Type":    "application/x-www-form-urlencoded",
		},
		timeout: cfg.Timeout,
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the upstream URL requests are sent to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch asks the upstream for the media behind postURL. Every failure is
// an *errors.Error: NO_MEDIA_FOUND when the upstream answered but found
// nothing, FETCH_FAILED for everything else.
func (c *Client) Fetch(ctx context.Context, postURL string) (*models.MediaResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	result, status, err := c.fetch(ctx, postURL)
	duration := time.Since(start)

	logger.LogUpstream(c.logger, c.endpoint, status, duration, err)
	if c.observer != nil {
		c.observer(outcomeOf(err), duration)
	}
	return result, err
}

func (c *Client) fetch(ctx context.Context, postURL string) (*models.MediaResult, int, error) {
	form := url.Values{}
	form.Set("q", postURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, errors.Wrap(errors.CodeFetchFailed, "Failed to fetch media", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(errors.CodeFetchFailed, "Failed to fetch media", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxUpstreamBodyBytes))
		return nil, resp.StatusCode, errors.Wrap(errors.CodeFetchFailed, "Failed to fetch media",
			fmt.Errorf("upstream returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxUpstreamBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(errors.CodeFetchFailed, "Failed to fetch media",
			fmt.Errorf("failed to read response body: %w", err))
	}
	if len(body) > MaxUpstreamBodyBytes {
		return nil, resp.StatusCode, errors.Wrap(errors.CodeFetchFailed, "Failed to fetch media",
			fmt.Errorf("upstream response exceeds %d bytes", MaxUpstreamBodyBytes))
	}

	result, err := Normalize(body, postURL)
	if err != nil && errors.Is(err, errors.CodeFetchFailed) {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse upstream response", map[string]interface{}{
			"status":       resp.StatusCode,
			"body_preview": preview,
		})
	}
	return result, resp.StatusCode, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, errors.CodeNoMediaFound):
		return OutcomeNoMedia
	default:
		return OutcomeFailed
	}
}
