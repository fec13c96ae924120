// Package metrics defines the Prometheus collectors for the sync pipeline,
// served by the health server's /metrics endpoint.
package metrics
