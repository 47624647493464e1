// Package logger provides the structured logging interface used across igproxy.
//
// It wraps zerolog behind a small Logger interface so that request handlers,
// the rate limiter and the upstream client can log with fields without
// depending on zerolog directly. Output is a coloured console stream by
// default, JSON when Format is "json", or an append-only file when File is set.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("gateway started")
//	logger.WithField("request_id", id).Info("request admitted")
//
// Secrets never reach the log. Callers pass auth.Fingerprint(token) instead
// of the bearer token itself.
package logger
