// Package observability provides structured logging, Prometheus metrics,
// and health checking for issuehub.
//
// Key features:
// - Structured JSON or text logging with configurable log levels
// - Prometheus metrics for upstream calls, rate limiting, caches, fetches and the bounty pipeline
// - Health checks for component status monitoring
// - HTTP endpoints for /metrics, /health, and /ready
package observability
