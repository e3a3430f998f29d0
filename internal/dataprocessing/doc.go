// Package dataprocessing turns the regional price workbook into the
// canonical long-format table and computes the derived views over it.
//
// The Normalizer reads the five region sheets, picks the header strategy
// for each sheet (month names in the column headers, or in the first data
// row), melts month columns into one row per (region, year, month) and
// drops rows without a usable year or price. The Loader wraps this into an
// immutable Dataset.
//
// An Aggregator answers the chart views for one Selection:
//
//	ds, err := dataprocessing.NewLoader(logger, cfg).Load(ctx, "Strompriser.xlsx")
//	if err != nil {
//	    return err
//	}
//	agg := ds.Query(ds.DefaultSelection())
//	overview, ok := agg.Overview()
//
// Prices are in øre/kWh including VAT.
package dataprocessing
