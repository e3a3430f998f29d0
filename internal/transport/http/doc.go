// Package http implements the HTTP handlers of the price API. Handlers stay
// thin: they parse and validate the request, call a service and render the
// result, converting service errors into RFC 7807 problem responses through
// internal/errors.ErrorHandler.
//
// # Routes
//
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /api/prices/meta
//	GET  /api/prices/{records,annual,overview,trend,seasonal,stats,latest}
//	GET  /api/prices/export/{view}.csv
//	POST /api/prices/reload
//	GET  /metrics
//
// Every price query accepts region (repeatable or comma separated, names or
// NO1-NO5 codes), from and to. A selection that matches no records is not an
// error: the endpoint answers 200 with {"status":"empty"}.
package http
