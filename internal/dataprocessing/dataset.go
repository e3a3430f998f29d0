package dataprocessing

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"time"

	"strompris/pkg/contracts/domain"
)

// Dataset is the canonical table produced by one load. It is never modified
// after construction; a reload builds a new Dataset.
type Dataset struct {
	records  []domain.PriceRecord
	regions  []string
	minYear  int
	maxYear  int
	source   string
	loadedAt time.Time
	sheets   []SheetReport
}

// NewDataset wraps records into an immutable dataset. The slice is copied.
func NewDataset(records []domain.PriceRecord, source string, loadedAt time.Time) *Dataset {
	d := &Dataset{
		records:  slices.Clone(records),
		source:   source,
		loadedAt: loadedAt,
	}

	names := make(map[string]struct{})
	for i, r := range d.records {
		names[r.RegionName] = struct{}{}
		if i == 0 || r.Year < d.minYear {
			d.minYear = r.Year
		}
		if i == 0 || r.Year > d.maxYear {
			d.maxYear = r.Year
		}
	}
	for name := range names {
		d.regions = append(d.regions, name)
	}
	sort.Strings(d.regions)

	return d
}

// Records returns a copy of the canonical records in load order
func (d *Dataset) Records() []domain.PriceRecord {
	return slices.Clone(d.records)
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.records)
}

// YearBounds returns the smallest and largest year present; both are zero when empty
func (d *Dataset) YearBounds() (int, int) {
	return d.minYear, d.maxYear
}

// RegionNames returns the region names present, ascending
func (d *Dataset) RegionNames() []string {
	return slices.Clone(d.regions)
}

// Source is the workbook path the dataset was loaded from
func (d *Dataset) Source() string {
	return d.source
}

// LoadedAt is when the dataset was built
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// SheetReports returns per-sheet normalization counts, when known
func (d *Dataset) SheetReports() []SheetReport {
	return slices.Clone(d.sheets)
}

// DefaultSelection selects every region over the full year span
func (d *Dataset) DefaultSelection() domain.Selection {
	return domain.Selection{
		Regions:  d.RegionNames(),
		FromYear: d.minYear,
		ToYear:   d.maxYear,
	}
}

// Clamp pulls the selection's years into the dataset's year span
func (d *Dataset) Clamp(sel domain.Selection) domain.Selection {
	if len(d.records) == 0 {
		return sel
	}
	sel.FromYear = min(max(sel.FromYear, d.minYear), d.maxYear)
	sel.ToYear = min(max(sel.ToYear, d.minYear), d.maxYear)
	return sel
}

// Query filters the dataset and returns an aggregator over the result
func (d *Dataset) Query(sel domain.Selection) *Aggregator {
	return NewAggregator(d.records, sel)
}

// AnnualAverages is the unfiltered (year, region) mean view
func (d *Dataset) AnnualAverages() []domain.AnnualAverage {
	return annualAverages(d.records)
}

// Loader reads, normalizes and wraps a workbook into a Dataset
type Loader struct {
	reader     *WorkbookReader
	normalizer *Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger, config NormalizerConfig) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		reader:     NewWorkbookReader(logger),
		normalizer: NewNormalizer(logger, config),
		logger:     logger,
		now:        time.Now,
	}
}

// Load builds a dataset from the workbook at path
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	sheets, err := l.reader.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	normalized, err := l.normalizer.Normalize(sheets)
	if err != nil {
		return nil, err
	}

	ds := NewDataset(normalized.Records, path, l.now())
	ds.sheets = normalized.Sheets

	lo, hi := ds.YearBounds()
	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", path),
		slog.Int("records", ds.Len()),
		slog.Int("min_year", lo),
		slog.Int("max_year", hi))

	return ds, nil
}
