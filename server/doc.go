// Package server provides the diarizer's HTTP server: a Gin engine with the
// standard middleware chain, operational endpoints and lifecycle hooks for
// the component registry.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: Panic recovery with structured logging
//   - RequestID: Request ID generation and propagation
//   - CORS: Cross-origin resource sharing configuration
//   - RateLimit: Per-client sliding-window rate limiting
//   - BodySizeLimit: Request body size limits
//   - RequestLogger: Request logging with duration tracking
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: Aggregated component health
//   - /livez: Liveness probe
//   - /readyz: Readiness probe
//   - /info: Build information
//   - /metrics: Go runtime metrics
package server
