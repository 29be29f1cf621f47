// Package health exposes liveness, readiness, and detailed status over
// HTTP on a port separate from the SOAP service, for process
// supervisors and container orchestrators to probe.
//
// Endpoints:
//   - /health: overall status (healthy/degraded/unhealthy)
//   - /health/detailed: status plus per-component detail and metrics
//   - /ready: readiness probe
//   - /alive: liveness probe
package health
