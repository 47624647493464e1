// Package cors resolves the cross-origin headers attached to gateway
// responses.
package cors

import (
	"net/http"
	"sort"
	"strings"
)

const (
	// AllowMethods is sent on every response
	AllowMethods = "GET, POST, OPTIONS"
	// AllowHeaders is sent on every response
	AllowHeaders = "Content-Type, Authorization"

	wildcard = "*"
)

// Policy decides which origins are echoed back to browsers
type Policy struct {
	origins  map[string]struct{}
	wildcard bool
	enforce  bool
}

// NewPolicy creates a policy from a list of origins. Entries are trimmed
// and empty ones dropped; "*" allows every origin. When enforce is set,
// Reject reports disallowed origins so the caller can refuse the request.
func NewPolicy(origins []string, enforce bool) *Policy {
	p := &Policy{
		origins: make(map[string]struct{}, len(origins)),
		enforce: enforce,
	}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == wildcard {
			p.wildcard = true
			continue
		}
		p.origins[o] = struct{}{}
	}
	return p
}

// Allowed reports whether origin may read responses
func (p *Policy) Allowed(origin string) bool {
	if p.wildcard {
		return true
	}
	_, ok := p.origins[strings.TrimSpace(origin)]
	return ok
}

// AllowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the header must be omitted
func (p *Policy) AllowOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	if p.wildcard {
		if origin != "" {
			return origin
		}
		return wildcard
	}
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[origin]; ok {
		return origin
	}
	return ""
}

// Apply writes the CORS headers for a request with the given origin
func (p *Policy) Apply(h http.Header, origin string) {
	if allow := p.AllowOrigin(origin); allow != "" {
		h.Set("Access-Control-Allow-Origin", allow)
		if allow != wildcard {
			h.Add("Vary", "Origin")
		}
	}
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
}

// Reject reports whether a non-preflight request must be refused. Only an
// enforcing policy rejects, and only requests that carry an origin.
func (p *Policy) Reject(origin string) bool {
	if !p.enforce || strings.TrimSpace(origin) == "" {
		return false
	}
	return !p.Allowed(origin)
}

// Origins returns the configured explicit origins in sorted order, with
// "*" first when the wildcard is set
func (p *Policy) Origins() []string {
	explicit := make([]string, 0, len(p.origins))
	for o := range p.origins {
		explicit = append(explicit, o)
	}
	sort.Strings(explicit)

	if !p.wildcard {
		return explicit
	}
	return append([]string{wildcard}, explicit...)
}
