package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igproxy/internal/metrics"
	"igproxy/internal/testutil"
	"igproxy/pkg/config"
	"igproxy/pkg/errors"
	"igproxy/pkg/logger"
	"igproxy/pkg/models"
	"igproxy/pkg/ratelimit"
)

const validURL = "https://www.instagram.com/p/ABC123/"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	server   *Server
	upstream *testutil.MockUpstream
	clock    *clock
	log      *logger.TestLogger
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, apiKey string, mutate func(*config.Config)) *harness {
	t.Helper()

	upstream := testutil.NewMockUpstream(testutil.Response{
		Body: testutil.MediaBody("", "", [3]string{"hd", "x.mp4", "2MB"}),
	})
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.Upstream.Endpoint = upstream.URL()
	cfg.Upstream.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tl := logger.NewTestLogger()
	m := metrics.New(false)

	srv := New(cfg, Options{
		Logger:  tl,
		Limiter: ratelimit.NewFixedWindow(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, ratelimit.WithClock(c.Now)),
		Metrics: m,
		APIKey:  apiKey,
		Clock:   c.Now,
	})

	return &harness{server: srv, upstream: upstream, clock: c, log: tl, metrics: m}
}

type reqOpts struct {
	method  string
	path    string
	body    string
	headers map[string]string
}

func (h *harness) do(t *testing.T, o reqOpts) (*httptest.ResponseRecorder, models.Envelope) {
	t.Helper()
	if o.method == "" {
		o.method = http.MethodPost
	}
	if o.path == "" {
		o.path = "/"
	}

	req := httptest.NewRequest(o.method, o.path, strings.NewReader(o.body))
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	var env models.Envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func urlBody(u string) string {
	return fmt.Sprintf(`{"url":%q}`, u)
}

func assertFailure(t *testing.T, rec *httptest.ResponseRecorder, env models.Envelope, status int, code errors.Code) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, code, env.ErrorCode)
	assert.NotEmpty(t, env.Error)
	assert.Nil(t, env.Data)
	assert.True(t, env.Valid())
}

func TestPreflightShortCircuits(t *testing.T) {
	h := newHarness(t, "secret", nil)

	for _, path := range []string{"/", "/anything"} {
		rec, _ := h.do(t, reqOpts{method: http.MethodOptions, path: path, headers: map[string]string{"Origin": "https://app.example"}})

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}

	assert.Equal(t, 0, h.server.Limiter().Len())
	assert.Equal(t, 0, h.upstream.RequestCount())
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, "", nil)

	for _, headers := range []map[string]string{
		nil,
		{"Authorization": "Basic abc"},
		{"Authorization": "Bearer "},
		{"Authorization": "bearer token"},
	} {
		rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: headers})
		assertFailure(t, rec, env, http.StatusUnauthorized, errors.CodeAuthRequired)
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	}
	assert.Equal(t, 0, h.upstream.RequestCount())
}

func TestInvalidAPIKey(t *testing.T) {
	h := newHarness(t, "secret", nil)

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("wrong")})
	assertFailure(t, rec, env, http.StatusUnauthorized, errors.CodeInvalidAPIKey)

	for _, token := range []string{" secret", "secret\t", "secret ", "\tsecret\n"} {
		rec, env = h.do(t, reqOpts{body: urlBody(validURL), headers: bearer(token)})
		assertFailure(t, rec, env, http.StatusUnauthorized, errors.CodeInvalidAPIKey)
	}
	assert.Equal(t, 0, h.upstream.RequestCount())

	rec, env = h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("secret")})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestAnyTokenAcceptedWithoutSecret(t *testing.T) {
	h := newHarness(t, "", nil)

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("whatever")})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRateLimitSequence(t *testing.T) {
	h := newHarness(t, "", func(c *config.Config) {
		c.RateLimit.MaxRequests = 3
		c.RateLimit.Window = time.Minute
	})

	for i := 1; i <= 3; i++ {
		rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.True(t, env.Success)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, fmt.Sprint(3-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
	assertFailure(t, rec, env, http.StatusTooManyRequests, errors.CodeRateLimited)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 3, h.upstream.RequestCount())

	// a different identity has its own window
	rec, _ = h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("other")})
	assert.Equal(t, http.StatusOK, rec.Code)

	h.clock.Advance(time.Minute + time.Second)
	rec, env = h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

	assert.True(t, h.log.Contains("warn", "rate limit exceeded"))
}

func TestRateLimitCountsInvalidRequests(t *testing.T) {
	h := newHarness(t, "", func(c *config.Config) {
		c.RateLimit.MaxRequests = 2
	})

	h.do(t, reqOpts{body: urlBody("https://example.com"), headers: bearer("tok")})
	h.do(t, reqOpts{body: `{}`, headers: bearer("tok")})

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
	assertFailure(t, rec, env, http.StatusTooManyRequests, errors.CodeRateLimited)
	assert.Equal(t, 0, h.upstream.RequestCount())
}

func TestURLValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"missing url", `{}`, http.StatusBadRequest, errors.CodeURLRequired},
		{"null url", `{"url":null}`, http.StatusBadRequest, errors.CodeURLRequired},
		{"empty url", `{"url":""}`, http.StatusBadRequest, errors.CodeURLRequired},
		{"array body", `[1,2]`, http.StatusBadRequest, errors.CodeURLRequired},
		{"false url", `{"url":false}`, http.StatusBadRequest, errors.CodeURLRequired},
		{"zero url", `{"url":0}`, http.StatusBadRequest, errors.CodeURLRequired},
		{"numeric url", `{"url":42}`, http.StatusBadRequest, errors.CodeInvalidInstagramURL},
		{"true url", `{"url":true}`, http.StatusBadRequest, errors.CodeInvalidInstagramURL},
		{"object url", `{"url":{}}`, http.StatusBadRequest, errors.CodeInvalidInstagramURL},
		{"profile url", urlBody("https://www.instagram.com/someone/"), http.StatusBadRequest, errors.CodeInvalidInstagramURL},
		{"other site", urlBody("https://example.com/p/ABC"), http.StatusBadRequest, errors.CodeInvalidInstagramURL},
		{"malformed json", `{"url":`, http.StatusInternalServerError, errors.CodeInternal},
		{"empty body", ``, http.StatusInternalServerError, errors.CodeInternal},
		{"null body", `null`, http.StatusInternalServerError, errors.CodeInternal},
		{"oversized body", `{"url":"` + strings.Repeat("a", 70<<10) + `"}`, http.StatusInternalServerError, errors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "", nil)
			rec, env := h.do(t, reqOpts{body: tt.body, headers: bearer("tok")})
			assertFailure(t, rec, env, tt.status, tt.code)
			assert.Equal(t, 0, h.upstream.RequestCount())
		})
	}
}

func TestAcceptedURLShapes(t *testing.T) {
	for _, u := range []string{
		"https://www.instagram.com/p/ABC123/",
		"instagram.com/reel/xyz_-9",
		"http://instagram.com/tv/TV1/?igsh=1",
	} {
		t.Run(u, func(t *testing.T) {
			h := newHarness(t, "", nil)
			rec, env := h.do(t, reqOpts{body: urlBody(u), headers: bearer("tok")})
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, u, env.Data.OriginalURL)
			assert.Equal(t, u, h.upstream.LastQuery())
		})
	}
}

func TestSuccessNormalization(t *testing.T) {
	h := newHarness(t, "", nil)

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.True(t, env.Valid())

	assert.Equal(t, &models.MediaResult{
		Type:            models.MediaTypePost,
		OriginalURL:     validURL,
		Thumbnail:       "",
		DownloadOptions: []models.DownloadOption{{Quality: "hd", URL: "x.mp4", Size: "2MB"}},
	}, env.Data)
	assert.Equal(t, config.DefaultUserAgent, h.upstream.LastUserAgent())
}

func TestNoMediaFound(t *testing.T) {
	h := newHarness(t, "", nil)
	h.upstream.SetResponse(validURL, testutil.Response{Body: `{"status":false}`})

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
	assertFailure(t, rec, env, http.StatusNotFound, errors.CodeNoMediaFound)

	empty := "https://www.instagram.com/p/EMPTY/"
	h.upstream.SetResponse(empty, testutil.Response{Body: `{"status":true,"data":{"medias":[]}}`})
	rec, env = h.do(t, reqOpts{body: urlBody(empty), headers: bearer("tok")})
	assertFailure(t, rec, env, http.StatusNotFound, errors.CodeNoMediaFound)
}

func TestFetchFailed(t *testing.T) {
	t.Run("upstream unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		h := newHarness(t, "", func(c *config.Config) {
			c.Upstream.Endpoint = "http://" + addr
		})
		rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
		assertFailure(t, rec, env, http.StatusInternalServerError, errors.CodeFetchFailed)
	})

	t.Run("upstream error status", func(t *testing.T) {
		h := newHarness(t, "", nil)
		h.upstream.SetResponse(validURL, testutil.Response{Status: http.StatusBadGateway, Body: "bad gateway"})
		rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
		assertFailure(t, rec, env, http.StatusInternalServerError, errors.CodeFetchFailed)
	})

	t.Run("upstream timeout", func(t *testing.T) {
		h := newHarness(t, "", func(c *config.Config) {
			c.Upstream.Timeout = 50 * time.Millisecond
		})
		h.upstream.SetResponse(validURL, testutil.Response{Delay: time.Second, Body: "{}"})
		rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
		assertFailure(t, rec, env, http.StatusInternalServerError, errors.CodeFetchFailed)
	})
}

func TestClassificationIsIdempotentWithinWindow(t *testing.T) {
	h := newHarness(t, "", nil)

	for i := 0; i < 3; i++ {
		rec, env := h.do(t, reqOpts{body: urlBody("https://example.com"), headers: bearer("tok")})
		assertFailure(t, rec, env, http.StatusBadRequest, errors.CodeInvalidInstagramURL)
	}
	for i := 0; i < 3; i++ {
		rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "x.mp4", env.Data.DownloadOptions[0].URL)
	}
}

func TestCORSHeaders(t *testing.T) {
	h := newHarness(t, "", func(c *config.Config) {
		c.CORS.AllowedOrigins = []string{"https://app.example"}
	})

	rec, _ := h.do(t, reqOpts{body: urlBody(validURL), headers: map[string]string{
		"Authorization": "Bearer tok",
		"Origin":        "https://app.example",
	}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: map[string]string{
		"Authorization": "Bearer tok",
		"Origin":        "https://evil.example",
	}})
	assert.Equal(t, http.StatusOK, rec.Code, "disallowed origins are not rejected by default")
	assert.True(t, env.Success)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEnforced(t *testing.T) {
	h := newHarness(t, "", func(c *config.Config) {
		c.CORS.AllowedOrigins = []string{"https://app.example"}
		c.CORS.EnforceOrigin = true
	})

	rec, env := h.do(t, reqOpts{body: urlBody(validURL), headers: map[string]string{
		"Origin": "https://evil.example",
	}})
	assertFailure(t, rec, env, http.StatusForbidden, errors.CodeUnauthorizedOrigin)

	rec, _ = h.do(t, reqOpts{method: http.MethodOptions, headers: map[string]string{"Origin": "https://evil.example"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("tok")})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterErrors(t *testing.T) {
	h := newHarness(t, "", nil)

	rec, env := h.do(t, reqOpts{method: http.MethodGet, path: "/nope"})
	assertFailure(t, rec, env, http.StatusNotFound, errors.CodeNotFound)

	rec, env = h.do(t, reqOpts{method: http.MethodGet, path: "/"})
	assertFailure(t, rec, env, http.StatusMethodNotAllowed, errors.CodeMethodNotAllowed)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, "secret", nil)

	rec, _ := h.do(t, reqOpts{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("secret")})

	rec, _ = h.do(t, reqOpts{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `igproxy_requests_total{error_code="",status="200"}`)
	assert.Equal(t, 1, h.server.Limiter().Len(), "health and metrics are not rate limited")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Enabled = false
	srv := New(cfg, Options{Logger: logger.NewNopLogger()})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	h := newHarness(t, "", nil)

	rec, _ := h.do(t, reqOpts{method: http.MethodGet, path: "/health"})
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec, _ = h.do(t, reqOpts{method: http.MethodGet, path: "/health", headers: map[string]string{"X-Request-ID": "abc-123"}})
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestAccessLogNeverContainsToken(t *testing.T) {
	h := newHarness(t, "", nil)
	h.do(t, reqOpts{body: urlBody(validURL), headers: bearer("super-secret-token")})

	entries := h.log.Entries()
	require.NotEmpty(t, entries)
	for _, e := range entries {
		for k, v := range e.Fields {
			assert.NotEqual(t, "super-secret-token", v, "field %s leaks the token", k)
		}
	}
	assert.True(t, h.log.Contains("info", "request completed"))
}

func TestAccessLogRecordsClientAddress(t *testing.T) {
	h := newHarness(t, "", nil)
	h.do(t, reqOpts{body: urlBody(validURL), headers: map[string]string{
		"Authorization": "Bearer tok",
		"X-Real-IP":     "203.0.113.7",
	}})

	var found bool
	for _, e := range h.log.Entries() {
		if e.Message == "request completed" {
			found = true
			assert.Equal(t, "203.0.113.7", e.Fields["remote_addr"])
		}
	}
	assert.True(t, found)
}

func TestPanicRecovery(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := New(cfg, Options{Logger: logger.NewNopLogger(), Fetcher: panicFetcher{}})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(urlBody(validURL)))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var env models.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assertFailure(t, rec, env, http.StatusInternalServerError, errors.CodeInternal)
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, string) (*models.MediaResult, error) {
	panic("boom")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = port
	cfg.Server.ShutdownTimeout = time.Second
	cfg.RateLimit.CleanupInterval = 10 * time.Millisecond
	cfg.Metrics.Enabled = false
	cfg.CORS.AllowedOrigins = []string{"https://app.example"}
	cfg.Upstream.Endpoint = "http://upstream.invalid/api"

	tl := logger.NewTestLogger()
	srv := New(cfg, Options{Logger: tl})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}

	var started bool
	for _, e := range tl.Entries() {
		if e.Message == "starting HTTP server" {
			started = true
			assert.Equal(t, []string{"https://app.example"}, e.Fields["allowed_origins"])
			assert.Equal(t, "http://upstream.invalid/api", e.Fields["upstream"])
		}
	}
	assert.True(t, started)
	assert.True(t, tl.Contains("info", "shutting down HTTP server"))
}
