package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Months is the header text used by generated sheets
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// PriceRow is one year of a region sheet. Nil prices are written as blank cells.
type PriceRow struct {
	Year   any
	Prices [12]any
}

// PriceGrid is a region sheet in the layout the source workbook uses:
// Year, twelve month columns, then two trailing summary columns.
type PriceGrid struct {
	Sheet string
	// ShiftedHeader puts the month names in the first data row under a title row.
	ShiftedHeader bool
	Rows          []PriceRow
}

// Cells renders the grid as worksheet rows
func (g PriceGrid) Cells() [][]any {
	header := make([]any, 0, 15)
	if g.ShiftedHeader {
		header = append(header, nil)
	} else {
		header = append(header, "Year")
	}
	for _, m := range Months {
		header = append(header, m)
	}
	header = append(header, "Snitt", "Endring")

	var out [][]any
	if g.ShiftedHeader {
		out = append(out, []any{"Strømpris øre/kWh inkl. MVA"})
	}
	out = append(out, header)

	for _, r := range g.Rows {
		row := make([]any, 0, 15)
		row = append(row, r.Year)
		row = append(row, r.Prices[:]...)
		row = append(row, "avg", "chg")
		out = append(out, row)
	}
	return out
}

// WriteWorkbook saves the grids as sheets of a new workbook at dir/name and returns the path
func WriteWorkbook(t *testing.T, dir, name string, grids ...PriceGrid) string {
	t.Helper()
	sheets := make([]Sheet, len(grids))
	for i, g := range grids {
		sheets[i] = Sheet{Name: g.Sheet, Rows: g.Cells()}
	}
	return WriteSheets(t, dir, name, sheets...)
}

// Sheet is a raw worksheet for tests that need malformed layouts
type Sheet struct {
	Name string
	Rows [][]any
}

// WriteSheets saves raw sheets as a workbook at dir/name and returns the path
func WriteSheets(t *testing.T, dir, name string, sheets ...Sheet) string {
	t.Helper()
	require.NotEmpty(t, sheets)

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.Name))
		} else {
			_, err := f.NewSheet(s.Name)
			require.NoError(t, err)
		}
		for r, row := range s.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(s.Name, cell, v))
			}
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// Sheet names of the five regions, in workbook order
const (
	SheetNO1 = "øst-norge(NO1)"
	SheetNO2 = "sør-norge(NO2)"
	SheetNO3 = "midt-norge(NO3)"
	SheetNO4 = "nord-norge(NO4)"
	SheetNO5 = "vest-norge(NO5)"
)

// SampleGrids returns a complete five-region workbook covering 2022 and 2023.
// Prices are base + month + 10*(year-2022); November and December 2023 are unreported.
// NO3 and NO4 use the shifted header layout.
func SampleGrids() []PriceGrid {
	bases := []struct {
		sheet   string
		base    float64
		shifted bool
	}{
		{SheetNO1, 100, false},
		{SheetNO2, 200, false},
		{SheetNO3, 20, true},
		{SheetNO4, 10, true},
		{SheetNO5, 150, false},
	}

	grids := make([]PriceGrid, 0, len(bases))
	for _, b := range bases {
		g := PriceGrid{Sheet: b.sheet, ShiftedHeader: b.shifted}
		for _, year := range []int{2022, 2023} {
			var row PriceRow
			row.Year = year
			for m := 1; m <= 12; m++ {
				if year == 2023 && m >= 11 {
					continue
				}
				row.Prices[m-1] = SamplePrice(b.base, year, m)
			}
			g.Rows = append(g.Rows, row)
		}
		grids = append(grids, g)
	}
	return grids
}

// SamplePrice is the price SampleGrids writes for a base, year and month
func SamplePrice(base float64, year, month int) float64 {
	return base + float64(month) + 10*float64(year-2022)
}

// WriteSampleWorkbook writes SampleGrids to dir and returns the path
func WriteSampleWorkbook(t *testing.T, dir string) string {
	t.Helper()
	return WriteWorkbook(t, dir, "Strompriser.xlsx", SampleGrids()...)
}
