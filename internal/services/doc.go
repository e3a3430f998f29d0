// Package services implements the business logic layer between the HTTP
// handlers and the dataprocessing package.
//
// PriceService owns the handle to the current immutable Dataset. Loads run
// at startup, on POST /api/prices/reload and when the workbook changes on
// disk. A reload builds a complete new Dataset and swaps the handle
// atomically, so concurrent queries always see either the old or the new
// dataset and never a partial one. A failed reload keeps the previous
// dataset.
//
// Queries resolve the user's region and year filter against the current
// dataset and hand back a dataprocessing.Aggregator over a private copy of
// the filtered records.
//
// HealthService reports liveness, readiness (ready once a dataset is
// loaded) and version information.
package services
