package dataprocessing

import (
	"sort"

	"github.com/montanaflynn/stats"

	"strompris/pkg/contracts/domain"
)

// Aggregator computes the derived views over one filtered selection.
// It holds its own copy of the filtered records and never touches the dataset.
type Aggregator struct {
	records []domain.PriceRecord
}

// NewAggregator filters records by sel
func NewAggregator(records []domain.PriceRecord, sel domain.Selection) *Aggregator {
	return &Aggregator{records: Filter(records, sel)}
}

// Filter keeps the records whose region is selected and whose year is in range.
// An empty result is valid.
func Filter(records []domain.PriceRecord, sel domain.Selection) []domain.PriceRecord {
	out := make([]domain.PriceRecord, 0)
	for _, r := range records {
		if sel.Includes(r) {
			out = append(out, r)
		}
	}
	return out
}

// Records returns the filtered records in canonical order
func (a *Aggregator) Records() []domain.PriceRecord {
	out := make([]domain.PriceRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Empty reports whether the selection matched nothing
func (a *Aggregator) Empty() bool {
	return len(a.records) == 0
}

// Len returns the number of filtered records
func (a *Aggregator) Len() int {
	return len(a.records)
}

// LatestYear is the largest year in the selection
func (a *Aggregator) LatestYear() (int, bool) {
	if len(a.records) == 0 {
		return 0, false
	}
	latest := a.records[0].Year
	for _, r := range a.records[1:] {
		if r.Year > latest {
			latest = r.Year
		}
	}
	return latest, true
}

// Overview summarises the latest year of the selection. Ties for highest and
// lowest go to the region whose name sorts first.
func (a *Aggregator) Overview() (domain.OverviewMetrics, bool) {
	year, ok := a.LatestYear()
	if !ok {
		return domain.OverviewMetrics{}, false
	}

	var prices []float64
	for _, r := range a.records {
		if r.Year == year {
			prices = append(prices, r.Price)
		}
	}

	means := a.regionMeans(year)
	m := domain.OverviewMetrics{
		Year:          year,
		Average:       mean(prices),
		RegionMeans:   means,
		HighestRegion: means[0].RegionName,
		HighestPrice:  means[0].Average,
		LowestRegion:  means[0].RegionName,
		LowestPrice:   means[0].Average,
	}
	for _, rm := range means[1:] {
		if rm.Average > m.HighestPrice {
			m.HighestRegion, m.HighestPrice = rm.RegionName, rm.Average
		}
		if rm.Average < m.LowestPrice {
			m.LowestRegion, m.LowestPrice = rm.RegionName, rm.Average
		}
	}
	m.PriceRange = m.HighestPrice - m.LowestPrice

	return m, true
}

// AnnualTrend is the combined yearly mean with year-over-year change.
// Change is measured against the previous year in the series and is nil for
// the first year. A zero previous mean has no finite change either; that
// point is flagged ChangeFromZero.
func (a *Aggregator) AnnualTrend() []domain.TrendPoint {
	byYear := make(map[int][]float64)
	for _, r := range a.records {
		byYear[r.Year] = append(byYear[r.Year], r.Price)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	points := make([]domain.TrendPoint, len(years))
	for i, y := range years {
		points[i] = domain.TrendPoint{Year: y, Average: mean(byYear[y])}
		if i == 0 {
			continue
		}
		prev := points[i-1].Average
		if prev == 0 {
			points[i].ChangeFromZero = true
			continue
		}
		change := (points[i].Average - prev) / prev * 100
		points[i].ChangePercent = &change
	}
	return points
}

// RegionalAnnualAverages groups by (region, year)
func (a *Aggregator) RegionalAnnualAverages() []domain.AnnualAverage {
	return annualAverages(a.records)
}

// SeasonalAverages groups by (region, season, year)
func (a *Aggregator) SeasonalAverages() []domain.SeasonalAverage {
	type key struct {
		region string
		season domain.Season
		year   int
	}
	groups := make(map[key][]float64)
	for _, r := range a.records {
		k := key{r.RegionName, domain.SeasonOf(r.Month), r.Year}
		groups[k] = append(groups[k], r.Price)
	}

	out := make([]domain.SeasonalAverage, 0, len(groups))
	for k, prices := range groups {
		out = append(out, domain.SeasonalAverage{
			RegionName: k.region,
			Season:     k.season,
			Year:       k.year,
			Average:    mean(prices),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegionName != out[j].RegionName {
			return out[i].RegionName < out[j].RegionName
		}
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// SeasonalDistribution summarises the yearly seasonal means per (region, season)
func (a *Aggregator) SeasonalDistribution() []domain.SeasonalBox {
	var out []domain.SeasonalBox
	var values []float64

	flush := func(region string, season domain.Season) {
		if len(values) == 0 {
			return
		}
		out = append(out, fiveNumber(region, season, values))
		values = nil
	}

	// SeasonalAverages is sorted by region then season, so groups are contiguous.
	seasonal := a.SeasonalAverages()
	for i, s := range seasonal {
		if i > 0 && (s.RegionName != seasonal[i-1].RegionName || s.Season != seasonal[i-1].Season) {
			flush(seasonal[i-1].RegionName, seasonal[i-1].Season)
		}
		values = append(values, s.Average)
	}
	if len(seasonal) > 0 {
		last := seasonal[len(seasonal)-1]
		flush(last.RegionName, last.Season)
	}

	if out == nil {
		out = []domain.SeasonalBox{}
	}
	return out
}

// RegionalStats describes each region over the whole selection
func (a *Aggregator) RegionalStats() []domain.RegionalStats {
	byRegion := a.pricesByRegion(func(domain.PriceRecord) bool { return true })

	out := make([]domain.RegionalStats, 0, len(byRegion))
	for _, name := range sortedKeys(byRegion) {
		data := stats.Float64Data(byRegion[name])
		lo, _ := stats.Min(data)
		hi, _ := stats.Max(data)
		rs := domain.RegionalStats{
			RegionName: name,
			Count:      len(data),
			Min:        lo,
			Max:        hi,
			Mean:       mean(data),
			Range:      hi - lo,
		}
		if len(data) > 1 {
			sd, err := stats.StandardDeviationSample(data)
			if err == nil {
				rs.StdDev = &sd
			}
		}
		out = append(out, rs)
	}
	return out
}

// LatestYearByRegion is the per-region mean of the latest year in the selection
func (a *Aggregator) LatestYearByRegion() (int, []domain.RegionMean) {
	year, ok := a.LatestYear()
	if !ok {
		return 0, []domain.RegionMean{}
	}
	return year, a.regionMeans(year)
}

// regionMeans returns per-region means for one year, sorted by region name
func (a *Aggregator) regionMeans(year int) []domain.RegionMean {
	byRegion := a.pricesByRegion(func(r domain.PriceRecord) bool { return r.Year == year })

	out := make([]domain.RegionMean, 0, len(byRegion))
	for _, name := range sortedKeys(byRegion) {
		out = append(out, domain.RegionMean{RegionName: name, Average: mean(byRegion[name])})
	}
	return out
}

func (a *Aggregator) pricesByRegion(keep func(domain.PriceRecord) bool) map[string][]float64 {
	out := make(map[string][]float64)
	for _, r := range a.records {
		if keep(r) {
			out[r.RegionName] = append(out[r.RegionName], r.Price)
		}
	}
	return out
}

func annualAverages(records []domain.PriceRecord) []domain.AnnualAverage {
	type key struct {
		region string
		year   int
	}
	groups := make(map[key][]float64)
	for _, r := range records {
		k := key{r.RegionName, r.Year}
		groups[k] = append(groups[k], r.Price)
	}

	out := make([]domain.AnnualAverage, 0, len(groups))
	for k, prices := range groups {
		out = append(out, domain.AnnualAverage{
			Year:       k.year,
			RegionName: k.region,
			Average:    mean(prices),
			Months:     len(prices),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RegionName != out[j].RegionName {
			return out[i].RegionName < out[j].RegionName
		}
		return out[i].Year < out[j].Year
	})
	return out
}

func fiveNumber(region string, season domain.Season, values []float64) domain.SeasonalBox {
	data := stats.Float64Data(values)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)
	box := domain.SeasonalBox{
		RegionName: region,
		Season:     season,
		Count:      len(values),
		Min:        lo,
		Max:        hi,
	}
	// Quartile needs two values to split into halves.
	if len(values) < 2 {
		box.Q1, box.Median, box.Q3 = lo, lo, lo
		return box
	}
	q, _ := stats.Quartile(data)
	box.Q1, box.Median, box.Q3 = q.Q1, q.Q2, q.Q3
	return box
}

// mean of a non-empty group
func mean(values []float64) float64 {
	m, _ := stats.Mean(values)
	return m
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
