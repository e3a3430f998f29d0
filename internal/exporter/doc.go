// Package exporter writes the canonical price table and its derived views as CSV.
//
// Files carry a UTF-8 BOM so spreadsheet tools display the Norwegian region
// names correctly. The same encoder backs both file exports and HTTP downloads.
//
//	agg := dataset.Query(selection)
//	table, err := exporter.ViewTable(exporter.ViewAnnual, dataset, agg)
//	err = exporter.NewCSVWriter("data/exports").WriteCSV("annual.csv", table)
package exporter
