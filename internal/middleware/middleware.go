// Package middleware holds the HTTP middleware: request ids, request-scoped
// logging, identity extraction, and Prometheus request metrics.
package middleware

type contextKey string
