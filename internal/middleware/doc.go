// Package middleware provides HTTP middleware for the merge service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path labels
//   - Optional bearer-token authentication against a bcrypt hash
//   - Configurable filtering for static files and health checks
//
// The response writer wrappers implement Unwrap so handlers can use
// http.ResponseController for write deadlines and flushing.
package middleware
