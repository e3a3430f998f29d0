// Package files locates the price workbook on disk.
//
// The configured source may be a workbook file or a directory. For a
// directory, Discovery picks the most recently modified .xlsx file in it,
// skipping Excel lock files.
//
//	discovery := files.NewDiscovery(paths.ExecutableDir)
//	path, err := discovery.ResolveWorkbook("data")
package files
