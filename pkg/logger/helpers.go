package logger

import (
	"time"
)

// RequestFields describes one completed gateway request
type RequestFields struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	Status     int
	ErrorCode  string
	Identity   string
	Duration   time.Duration
}

// LogRequest writes the access log line for a finished request. Failures
// at 5xx are logged at error level, client failures at warn.
func LogRequest(log Logger, f RequestFields) {
	fields := map[string]interface{}{
		"request_id": f.RequestID,
		"method":     f.Method,
		"path":       f.Path,
		"status":     f.Status,
		"duration":   f.Duration,
	}
	if f.ErrorCode != "" {
		fields["error_code"] = f.ErrorCode
	}
	if f.RemoteAddr != "" {
		fields["remote_addr"] = f.RemoteAddr
	}
	if f.Identity != "" {
		fields["identity"] = f.Identity
	}

	switch {
	case f.Status >= 500:
		log.ErrorWithFields("request failed", fields)
	case f.Status >= 400:
		log.WarnWithFields("request rejected", fields)
	default:
		log.InfoWithFields("request completed", fields)
	}
}

// LogRateLimited records a request rejected by the limiter
func LogRateLimited(log Logger, identity string, count, limit int, resetAt time.Time) {
	log.WarnWithFields("rate limit exceeded", map[string]interface{}{
		"identity": identity,
		"count":    count,
		"limit":    limit,
		"reset_at": resetAt,
	})
}

// LogUpstream records the outcome of a call to the upstream extraction service
func LogUpstream(log Logger, endpoint string, status int, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"endpoint": endpoint,
		"status":   status,
		"duration": duration,
	}
	if err != nil {
		fields["error"] = err.Error()
		log.ErrorWithFields("upstream request failed", fields)
		return
	}
	log.DebugWithFields("upstream request completed", fields)
}
