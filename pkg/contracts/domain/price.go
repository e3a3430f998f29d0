package domain

import (
	"time"
)

// PriceUnit is the display unit of every price in the canonical table.
const PriceUnit = "øre/kWh inkl. MVA"

// RegionCode identifies one of the five Norwegian price zones
type RegionCode string

const (
	RegionNO1 RegionCode = "NO1"
	RegionNO2 RegionCode = "NO2"
	RegionNO3 RegionCode = "NO3"
	RegionNO4 RegionCode = "NO4"
	RegionNO5 RegionCode = "NO5"
)

// Region describes a price zone and the workbook sheet it is read from
type Region struct {
	Code  RegionCode `json:"code"`
	Name  string     `json:"name"`
	Sheet string     `json:"sheet"`
}

// PriceRecord is one row of the canonical long-format table.
// Price is always present; rows without a price never become records.
type PriceRecord struct {
	RegionCode RegionCode `json:"region_code"`
	RegionName string     `json:"region_name"`
	Year       int        `json:"year"`
	Month      int        `json:"month"`
	Date       time.Time  `json:"date"`
	Price      float64    `json:"price"`
}

// Key returns the (region, year, month) identity of the record
func (r PriceRecord) Key() RecordKey {
	return RecordKey{Region: r.RegionCode, Year: r.Year, Month: r.Month}
}

// RecordKey is the uniqueness key of the canonical table
type RecordKey struct {
	Region RegionCode
	Year   int
	Month  int
}

// MonthDate returns the synthetic first-of-month date used by every record
func MonthDate(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// Selection is the user-controlled filter applied before aggregation.
// Years are inclusive on both ends.
type Selection struct {
	Regions  []string `json:"regions"`
	FromYear int      `json:"from_year"`
	ToYear   int      `json:"to_year"`
}

// Includes reports whether a record passes the selection
func (s Selection) Includes(r PriceRecord) bool {
	if r.Year < s.FromYear || r.Year > s.ToYear {
		return false
	}
	for _, name := range s.Regions {
		if name == r.RegionName {
			return true
		}
	}
	return false
}
