// Package server provides the HTTP host for event streams: a Gin engine
// served over HTTP/1.1 and h2c, with recovery, request-id and request
// logging middleware applied to every route.
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation, 503 when any is unhealthy
//   - /version: build version information
package server
