package exporter

import (
	"errors"
	"fmt"
	"slices"

	"strompris/internal/dataprocessing"
	"strompris/pkg/contracts/domain"
)

// View names a CSV export
type View string

const (
	ViewRecords      View = "records"
	ViewAnnual       View = "annual"
	ViewTrend        View = "trend"
	ViewSeasonal     View = "seasonal"
	ViewDistribution View = "distribution"
	ViewStats        View = "stats"
	ViewLatest       View = "latest"
)

// ErrUnknownView is returned for a view name that has no table builder
var ErrUnknownView = errors.New("unknown export view")

var builders = map[View]func(*dataprocessing.Aggregator) Table{
	ViewRecords:      RecordsTable,
	ViewAnnual:       AnnualTable,
	ViewTrend:        TrendTable,
	ViewSeasonal:     SeasonalTable,
	ViewDistribution: DistributionTable,
	ViewStats:        StatsTable,
	ViewLatest:       LatestTable,
}

// Views lists every export view in a stable order
func Views() []View {
	out := make([]View, 0, len(builders))
	for v := range builders {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// ParseView validates a view name
func ParseView(name string) (View, error) {
	v := View(name)
	if _, ok := builders[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return v, nil
}

// ViewTable builds the table for view over the aggregator's selection
func ViewTable(view View, agg *dataprocessing.Aggregator) (Table, error) {
	build, ok := builders[view]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	return build(agg), nil
}

// RecordsTable is the canonical long-format table
func RecordsTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"region_code", "region_name", "year", "month", "date", "price"}}
	for _, r := range agg.Records() {
		t.Rows = append(t.Rows, []string{
			string(r.RegionCode),
			r.RegionName,
			formatInt(r.Year),
			formatInt(r.Month),
			r.Date.Format("2006-01-02"),
			formatPrice(r.Price),
		})
	}
	return t
}

func AnnualTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"region_name", "year", "average", "months"}}
	for _, a := range agg.RegionalAnnualAverages() {
		t.Rows = append(t.Rows, []string{a.RegionName, formatInt(a.Year), formatFloat(a.Average), formatInt(a.Months)})
	}
	return t
}

// TrendTable leaves change_percent blank where it is undefined
func TrendTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"year", "average", "change_percent"}}
	for _, p := range agg.AnnualTrend() {
		t.Rows = append(t.Rows, []string{formatInt(p.Year), formatFloat(p.Average), formatOptional(p.ChangePercent)})
	}
	return t
}

func SeasonalTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"region_name", "season", "year", "average"}}
	for _, s := range agg.SeasonalAverages() {
		t.Rows = append(t.Rows, []string{s.RegionName, s.Season.String(), formatInt(s.Year), formatFloat(s.Average)})
	}
	return t
}

func DistributionTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"region_name", "season", "count", "min", "q1", "median", "q3", "max"}}
	for _, b := range agg.SeasonalDistribution() {
		t.Rows = append(t.Rows, []string{
			b.RegionName,
			b.Season.String(),
			formatInt(b.Count),
			formatFloat(b.Min),
			formatFloat(b.Q1),
			formatFloat(b.Median),
			formatFloat(b.Q3),
			formatFloat(b.Max),
		})
	}
	return t
}

func StatsTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"region_name", "count", "min", "max", "std_dev", "mean", "range"}}
	for _, s := range agg.RegionalStats() {
		t.Rows = append(t.Rows, []string{
			s.RegionName,
			formatInt(s.Count),
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatOptional(s.StdDev),
			formatFloat(s.Mean),
			formatFloat(s.Range),
		})
	}
	return t
}

// LatestTable ranks regions by their mean in the latest selected year
func LatestTable(agg *dataprocessing.Aggregator) Table {
	t := Table{Headers: []string{"year", "region_name", "average"}}
	year, means := agg.LatestYearByRegion()
	ranked := slices.Clone(means)
	slices.SortStableFunc(ranked, func(a, b domain.RegionMean) int {
		switch {
		case a.Average > b.Average:
			return -1
		case a.Average < b.Average:
			return 1
		}
		return 0
	})
	for _, m := range ranked {
		t.Rows = append(t.Rows, []string{formatInt(year), m.RegionName, formatFloat(m.Average)})
	}
	return t
}
