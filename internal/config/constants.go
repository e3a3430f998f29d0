package config

import "time"

// Application constants
const (
	AppName   = "Strømpris"
	AppID     = "strompris"
	MeterName = "strompris"

	// File Paths (relative to the base directory)
	DefaultDataDir   = "data"
	DefaultLogsDir   = "logs"
	DefaultExportDir = "data/exports"
	DefaultWorkbook  = "data/Strompriser.xlsx"

	// Source watching
	DefaultWatchDebounce = 500 * time.Millisecond

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultRequestTimeout = 30 * time.Second

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
