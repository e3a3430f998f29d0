package dataprocessing

import (
	"strings"

	"strompris/pkg/contracts/domain"
)

// HeaderStrategy selects how month-name headers are derived for a sheet
type HeaderStrategy int

const (
	// HeaderInColumns: the worksheet header row already holds the month names.
	HeaderInColumns HeaderStrategy = iota
	// HeaderInFirstRow: the month names sit in the first data row, which is dropped.
	HeaderInFirstRow
)

func (s HeaderStrategy) String() string {
	switch s {
	case HeaderInColumns:
		return "columns"
	case HeaderInFirstRow:
		return "first_row"
	default:
		return "unknown"
	}
}

// RegionSheet binds a workbook sheet to its region and header strategy
type RegionSheet struct {
	domain.Region
	Strategy HeaderStrategy
}

// regionSheets is the static sheet table, in the order regions are listed to users.
var regionSheets = []RegionSheet{
	{Region: domain.Region{Code: domain.RegionNO1, Name: "Øst-Norge", Sheet: "øst-norge(NO1)"}, Strategy: HeaderInColumns},
	{Region: domain.Region{Code: domain.RegionNO2, Name: "Sør-Norge", Sheet: "sør-norge(NO2)"}, Strategy: HeaderInColumns},
	{Region: domain.Region{Code: domain.RegionNO3, Name: "Midt-Norge", Sheet: "midt-norge(NO3)"}, Strategy: HeaderInFirstRow},
	{Region: domain.Region{Code: domain.RegionNO4, Name: "Nord-Norge", Sheet: "nord-norge(NO4)"}, Strategy: HeaderInFirstRow},
	{Region: domain.Region{Code: domain.RegionNO5, Name: "Vest-Norge", Sheet: "vest-norge(NO5)"}, Strategy: HeaderInColumns},
}

// MonthNames is the canonical month ordering; index+1 is the month number.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// RegionSheets returns a copy of the static sheet table
func RegionSheets() []RegionSheet {
	out := make([]RegionSheet, len(regionSheets))
	copy(out, regionSheets)
	return out
}

// Regions returns the five regions in table order
func Regions() []domain.Region {
	out := make([]domain.Region, len(regionSheets))
	for i, rs := range regionSheets {
		out[i] = rs.Region
	}
	return out
}

// LookupSheet finds the table entry for a sheet name
func LookupSheet(sheet string) (RegionSheet, bool) {
	for _, rs := range regionSheets {
		if rs.Sheet == sheet {
			return rs, true
		}
	}
	return RegionSheet{}, false
}

// ResolveRegionName accepts a region display name or code (case-insensitive)
// and returns the display name.
func ResolveRegionName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, rs := range regionSheets {
		if strings.EqualFold(rs.Name, s) || strings.EqualFold(string(rs.Code), s) {
			return rs.Name, true
		}
	}
	return "", false
}

// monthNumber maps a canonical month name to 1-12
func monthNumber(name string) (int, bool) {
	for i, m := range MonthNames {
		if m == name {
			return i + 1, true
		}
	}
	return 0, false
}
