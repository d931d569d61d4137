/*
Package observability turns conversation lifecycle hooks into Prometheus metrics.

Metrics are registered on a caller-supplied registry so tests and embedders can keep
them isolated; the serve command exposes them on /metrics.
*/
package observability
