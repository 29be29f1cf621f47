// Package logging provides structured logging with correlation ID
// support for onvifd, built on logrus with JSON/text output,
// component-tagged loggers, and optional file rotation.
//
// Usage:
//   - GetLogger("component-name") returns a shared *Logger for that component.
//   - ConfigureGlobalLogging(cfg) sets level, format, and output destinations.
//   - WithCorrelationID(ctx, id) stores a request's correlation ID in a context;
//     (*Logger).WithCorrelationID(id) adds it to log fields.
//
// Field conventions:
//   - "component": subsystem name (e.g. "device", "onvifserver", "discovery")
//   - "correlation_id": per-request ID, see internal/corr
package logging
