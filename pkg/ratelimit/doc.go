// Package ratelimit implements the gateway's per-identity fixed-window
// request limiter.
//
// Each identity gets a window that opens on its first request. Within the
// window every request increments the counter, including rejected ones, so
// a client that keeps retrying stays throttled until the window ends.
//
//	limiter := ratelimit.NewFixedWindow(time.Minute, 10)
//	go limiter.Run(ctx, 5*time.Minute, nil)
//
//	d := limiter.Allow(ratelimit.ClientIdentity(r, token))
//	if !d.Allowed {
//	    // 429 with Retry-After: d.RetryAfter(time.Now())
//	}
//
// Counters live in process memory and are not shared between instances.
package ratelimit
