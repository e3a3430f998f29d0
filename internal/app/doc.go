// Package app wires the price dashboard together and manages its lifecycle.
//
// NewApplication loads configuration, initializes logging and OpenTelemetry,
// performs the startup workbook load (fatal on failure) and assembles the
// chi router. Run serves HTTP until SIGINT or SIGTERM, watching the source
// workbook for changes when enabled, then shuts down gracefully.
//
// Routes:
//
//	/api/health, /api/health/ready, /api/health/live
//	/api/version
//	/api/prices/...   see package transport/http
//	/metrics          Prometheus scrape endpoint, when enabled
package app
