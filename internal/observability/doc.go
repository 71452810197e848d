// Package observability provides structured logging and Prometheus metrics
// for the interview prep service.
//
// Logging is built on zerolog; components receive a zerolog.Logger and enrich
// it with the With*Context helpers so every line carries the run and batch it
// belongs to. Metrics are registered via promauto and exposed by the HTTP
// server on the configured metrics path.
package observability
