// Package config loads the application configuration.
//
// Values come from three layers, later layers winning:
//
//	1. Default()
//	2. config.yaml (searched in ., configs/ and ../configs/)
//	3. Environment variables prefixed with STROMPRIS_
//
// Environment variables follow the struct nesting:
//
//	STROMPRIS_SERVER_PORT=8080
//	STROMPRIS_SOURCE_WORKBOOK=/srv/data/Strompriser.xlsx
//	STROMPRIS_SOURCE_DUPLICATES=reject
//	STROMPRIS_TELEMETRY_TRACE_EXPORTER=stdout
//
// Relative paths are resolved by GetPaths against PathsConfig.BaseDir, which
// defaults to the directory of the running executable.
package config
