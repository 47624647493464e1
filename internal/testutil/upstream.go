// Package testutil provides a fake upstream extraction service for tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Response is a canned upstream reply
type Response struct {
	Status int
	Body   string
	Delay  time.Duration
}

// MediaBody builds a successful upstream body with one media entry per
// (quality, url, size) triple
func MediaBody(mediaType, thumbnail string, medias ...[3]string) string {
	items := make([]map[string]string, 0, len(medias))
	for _, m := range medias {
		items = append(items, map[string]string{
			"quality":       m[0],
			"url":           m[1],
			"formattedSize": m[2],
		})
	}

	data := map[string]interface{}{"medias": items}
	if mediaType != "" {
		data["type"] = mediaType
	}
	if thumbnail != "" {
		data["thumbnail"] = thumbnail
	}

	body, _ := json.Marshal(map[string]interface{}{"status": true, "data": data})
	return string(body)
}

// MockUpstream simulates the upstream's form-POST API
type MockUpstream struct {
	server       *httptest.Server
	mu           sync.RWMutex
	responses    map[string]Response
	fallback     Response
	requestCount int32
	lastQuery    string
	lastAgent    string
}

// NewMockUpstream starts a mock that answers every URL with fallback
// unless a specific response is registered
func NewMockUpstream(fallback Response) *MockUpstream {
	m := &MockUpstream{
		responses: make(map[string]Response),
		fallback:  fallback,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&m.requestCount, 1)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, _ := io.ReadAll(r.Body)
	values, _ := url.ParseQuery(string(body))
	q := values.Get("q")

	m.mu.Lock()
	m.lastQuery = q
	m.lastAgent = r.Header.Get("User-Agent")
	resp, ok := m.responses[q]
	if !ok {
		resp = m.fallback
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

// SetResponse registers the reply for a specific requested URL
func (m *MockUpstream) SetResponse(postURL string, resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[postURL] = resp
}

// URL returns the endpoint to configure as the upstream
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// RequestCount returns how many requests reached the mock
func (m *MockUpstream) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// LastQuery returns the q form value of the most recent request
func (m *MockUpstream) LastQuery() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

// LastUserAgent returns the User-Agent of the most recent request
func (m *MockUpstream) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAgent
}

// Close shuts the mock down
func (m *MockUpstream) Close() {
	m.server.Close()
}
