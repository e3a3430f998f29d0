package dataprocessing

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"strompris/pkg/contracts/domain"
)

// DuplicatePolicy decides what happens when a (region, year, month) key repeats
type DuplicatePolicy string

const (
	// DuplicatesAllow keeps every row and logs a warning.
	DuplicatesAllow DuplicatePolicy = "allow"
	// DuplicatesReject fails the load with ErrDuplicateRecord.
	DuplicatesReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy validates a configured policy name
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", DuplicatesAllow:
		return DuplicatesAllow, nil
	case DuplicatesReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// NormalizerConfig holds normalizer settings
type NormalizerConfig struct {
	Duplicates DuplicatePolicy
}

// SheetReport counts what happened to one sheet
type SheetReport struct {
	Sheet         string            `json:"sheet"`
	Region        domain.RegionCode `json:"region"`
	Strategy      string            `json:"strategy"`
	DataRows      int               `json:"data_rows"`
	DroppedYears  int               `json:"dropped_years"`
	MissingPrices int               `json:"missing_prices"`
	Records       int               `json:"records"`
}

// Normalized is the output of a normalization run
type Normalized struct {
	Records    []domain.PriceRecord
	Sheets     []SheetReport
	Duplicates int
}

// Normalizer reconciles the region sheets into the canonical table
type Normalizer struct {
	logger *slog.Logger
	config NormalizerConfig
}

// NewNormalizer creates a normalizer
func NewNormalizer(logger *slog.Logger, config NormalizerConfig) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Duplicates == "" {
		config.Duplicates = DuplicatesAllow
	}
	return &Normalizer{
		logger: logger,
		config: config,
	}
}

// Normalize turns the workbook sheets into canonical records, concatenated
// in sheet order. Every sheet must be a known region and every region must
// be present.
func (n *Normalizer) Normalize(sheets []RawSheet) (*Normalized, error) {
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if _, ok := LookupSheet(s.Name); !ok {
			return nil, schemaMismatch(s.Name, "sheet is not a known price region")
		}
		if seen[s.Name] {
			return nil, schemaMismatch(s.Name, "sheet appears more than once")
		}
		seen[s.Name] = true
	}
	for _, rs := range regionSheets {
		if !seen[rs.Sheet] {
			return nil, schemaMismatch(rs.Sheet, "region sheet is missing from workbook")
		}
	}

	out := &Normalized{}
	for _, s := range sheets {
		rs, _ := LookupSheet(s.Name)
		records, report, err := n.normalizeSheet(rs, s)
		if err != nil {
			return nil, err
		}
		n.logger.Debug("sheet normalized",
			slog.String("sheet", report.Sheet),
			slog.String("strategy", report.Strategy),
			slog.Int("data_rows", report.DataRows),
			slog.Int("dropped_years", report.DroppedYears),
			slog.Int("missing_prices", report.MissingPrices),
			slog.Int("records", report.Records))

		out.Records = append(out.Records, records...)
		out.Sheets = append(out.Sheets, report)
	}

	dups, first := countDuplicates(out.Records)
	out.Duplicates = dups
	if dups > 0 {
		if n.config.Duplicates == DuplicatesReject {
			return nil, &SheetError{
				Sheet:  sheetOf(first.Region),
				Reason: fmt.Sprintf("%d duplicate keys, first %s %d-%02d", dups, first.Region, first.Year, first.Month),
				Err:    ErrDuplicateRecord,
			}
		}
		n.logger.Warn("duplicate price records kept",
			slog.Int("duplicates", dups),
			slog.String("first_region", string(first.Region)),
			slog.Int("first_year", first.Year),
			slog.Int("first_month", first.Month))
	}

	n.logger.Info("workbook normalized",
		slog.Int("sheets", len(out.Sheets)),
		slog.Int("records", len(out.Records)))

	return out, nil
}

// normalizeSheet runs the per-sheet steps: header derivation, year
// resolution, wide-to-long reshape and missing price removal.
func (n *Normalizer) normalizeSheet(rs RegionSheet, raw RawSheet) ([]domain.PriceRecord, SheetReport, error) {
	report := SheetReport{Sheet: raw.Name, Region: rs.Code, Strategy: rs.Strategy.String()}

	months, data, err := monthColumns(rs, raw)
	if err != nil {
		return nil, report, err
	}
	report.DataRows = len(data)

	type yearRow struct {
		year  int
		cells []string
	}
	rows := make([]yearRow, 0, len(data))
	for _, row := range data {
		year, ok := parseYear(cell(row, 0))
		if !ok {
			report.DroppedYears++
			continue
		}
		rows = append(rows, yearRow{year: year, cells: row})
	}

	// Month-major order: one column at a time, rows in sheet order.
	records := make([]domain.PriceRecord, 0, len(rows)*12)
	for col := 1; col <= 12; col++ {
		month := months[col-1]
		for _, r := range rows {
			price, ok := parseNumber(cell(r.cells, col))
			if !ok {
				report.MissingPrices++
				continue
			}
			records = append(records, domain.PriceRecord{
				RegionCode: rs.Code,
				RegionName: rs.Name,
				Year:       r.year,
				Month:      month,
				Date:       domain.MonthDate(r.year, month),
				Price:      price,
			})
		}
	}

	report.Records = len(records)
	return records, report, nil
}

// monthColumns derives the month number of columns 1-12 and returns the data rows.
func monthColumns(rs RegionSheet, raw RawSheet) ([12]int, [][]string, error) {
	var months [12]int

	headerIdx := 0
	if rs.Strategy == HeaderInFirstRow {
		headerIdx = 1
	}
	if len(raw.Rows) <= headerIdx {
		return months, nil, schemaMismatch(raw.Name, "no header row for %s strategy", rs.Strategy)
	}

	header := raw.Rows[headerIdx]
	if len(header) < 13 {
		return months, nil, schemaMismatch(raw.Name, "header has %d columns, want at least 13", len(header))
	}

	var used [13]bool
	for col := 1; col <= 12; col++ {
		name := strings.TrimSpace(header[col])
		num, ok := monthNumber(name)
		if !ok {
			return months, nil, schemaMismatch(raw.Name, "column %d header %q is not a month name", col, name)
		}
		if used[num] {
			return months, nil, schemaMismatch(raw.Name, "month %q appears twice", name)
		}
		used[num] = true
		months[col-1] = num
	}

	return months, raw.Rows[headerIdx+1:], nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseNumber coerces a cell to a finite float; anything else is missing
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseYear resolves a year cell, truncating fractional values
func parseYear(s string) (int, bool) {
	v, ok := parseNumber(s)
	if !ok || math.Abs(v) >= math.MaxInt32 {
		return 0, false
	}
	return int(math.Trunc(v)), true
}

func countDuplicates(records []domain.PriceRecord) (int, domain.RecordKey) {
	seen := make(map[domain.RecordKey]struct{}, len(records))
	var first domain.RecordKey
	dups := 0
	for _, r := range records {
		k := r.Key()
		if _, ok := seen[k]; ok {
			if dups == 0 {
				first = k
			}
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups, first
}

func sheetOf(code domain.RegionCode) string {
	for _, rs := range regionSheets {
		if rs.Code == code {
			return rs.Sheet
		}
	}
	return ""
}
