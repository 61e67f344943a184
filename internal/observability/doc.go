// Package observability builds the zap loggers used across the CRM and
// attaches request-scoped fields to them.
package observability
