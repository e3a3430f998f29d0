package dataprocessing

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strompris/pkg/contracts/domain"
)

func rec(name string, year, month int, price float64) domain.PriceRecord {
	code := domain.RegionCode("")
	for _, r := range Regions() {
		if r.Name == name {
			code = r.Code
		}
	}
	return domain.PriceRecord{
		RegionCode: code,
		RegionName: name,
		Year:       year,
		Month:      month,
		Date:       domain.MonthDate(year, month),
		Price:      price,
	}
}

func yearOf(name string, year int, prices ...float64) []domain.PriceRecord {
	out := make([]domain.PriceRecord, 0, len(prices))
	for i, p := range prices {
		out = append(out, rec(name, year, i+1, p))
	}
	return out
}

func all(names ...string) domain.Selection {
	return domain.Selection{Regions: names, FromYear: 0, ToYear: 9999}
}

func TestFilter(t *testing.T) {
	records := []domain.PriceRecord{
		rec("Øst-Norge", 2019, 1, 1),
		rec("Øst-Norge", 2020, 1, 2),
		rec("Sør-Norge", 2020, 1, 3),
		rec("Sør-Norge", 2021, 1, 4),
		rec("Vest-Norge", 2020, 1, 5),
	}

	tests := []struct {
		name string
		sel  domain.Selection
		want []float64
	}{
		{"inclusive bounds", domain.Selection{Regions: []string{"Øst-Norge", "Sør-Norge"}, FromYear: 2019, ToYear: 2020}, []float64{1, 2, 3}},
		{"single year", domain.Selection{Regions: []string{"Sør-Norge"}, FromYear: 2021, ToYear: 2021}, []float64{4}},
		{"no regions", domain.Selection{FromYear: 2019, ToYear: 2021}, nil},
		{"year outside data", domain.Selection{Regions: []string{"Øst-Norge"}, FromYear: 2030, ToYear: 2031}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(records, tt.sel)
			require.NotNil(t, got)
			var prices []float64
			for _, r := range got {
				prices = append(prices, r.Price)
			}
			assert.Equal(t, tt.want, prices)
		})
	}
}

func TestAggregator_OverviewSingleRegion(t *testing.T) {
	records := yearOf("Sør-Norge", 2022, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110, 120)
	sel := domain.Selection{Regions: []string{"Sør-Norge"}, FromYear: 2022, ToYear: 2022}

	m, ok := NewAggregator(records, sel).Overview()
	require.True(t, ok)
	assert.Equal(t, 2022, m.Year)
	assert.Equal(t, 65.0, m.Average)
	assert.Equal(t, "Sør-Norge", m.HighestRegion)
	assert.Equal(t, "Sør-Norge", m.LowestRegion)
	assert.Equal(t, 0.0, m.PriceRange)
}

func TestAggregator_OverviewUsesLatestYear(t *testing.T) {
	var records []domain.PriceRecord
	records = append(records, yearOf("Øst-Norge", 2021, 500, 500)...)
	records = append(records, yearOf("Øst-Norge", 2022, 40, 60)...)
	records = append(records, yearOf("Nord-Norge", 2022, 10, 20)...)
	records = append(records, yearOf("Vest-Norge", 2022, 30)...)

	m, ok := NewAggregator(records, all("Øst-Norge", "Nord-Norge", "Vest-Norge")).Overview()
	require.True(t, ok)

	assert.Equal(t, 2022, m.Year)
	assert.InDelta(t, 32.0, m.Average, 1e-9)
	assert.Equal(t, []domain.RegionMean{
		{RegionName: "Nord-Norge", Average: 15},
		{RegionName: "Vest-Norge", Average: 30},
		{RegionName: "Øst-Norge", Average: 50},
	}, m.RegionMeans)
	assert.Equal(t, "Øst-Norge", m.HighestRegion)
	assert.Equal(t, 50.0, m.HighestPrice)
	assert.Equal(t, "Nord-Norge", m.LowestRegion)
	assert.Equal(t, 15.0, m.LowestPrice)
	assert.Equal(t, 35.0, m.PriceRange)
}

func TestAggregator_OverviewTieBreak(t *testing.T) {
	var records []domain.PriceRecord
	// Vest and Midt tie for highest, Øst and Nord tie for lowest.
	records = append(records, yearOf("Vest-Norge", 2023, 80)...)
	records = append(records, yearOf("Øst-Norge", 2023, 10)...)
	records = append(records, yearOf("Midt-Norge", 2023, 80)...)
	records = append(records, yearOf("Nord-Norge", 2023, 10)...)

	m, ok := NewAggregator(records, all("Vest-Norge", "Øst-Norge", "Midt-Norge", "Nord-Norge")).Overview()
	require.True(t, ok)
	assert.Equal(t, "Midt-Norge", m.HighestRegion)
	assert.Equal(t, "Nord-Norge", m.LowestRegion)
	assert.Equal(t, 70.0, m.PriceRange)
}

func TestAggregator_EmptySelection(t *testing.T) {
	records := yearOf("Øst-Norge", 2020, 1, 2, 3)
	a := NewAggregator(records, domain.Selection{Regions: []string{"Sør-Norge"}, FromYear: 2020, ToYear: 2020})

	assert.True(t, a.Empty())
	_, ok := a.Overview()
	assert.False(t, ok)
	assert.Empty(t, a.AnnualTrend())
	assert.Empty(t, a.RegionalAnnualAverages())
	assert.Empty(t, a.SeasonalAverages())
	assert.Empty(t, a.SeasonalDistribution())
	assert.Empty(t, a.RegionalStats())
	year, means := a.LatestYearByRegion()
	assert.Zero(t, year)
	assert.Empty(t, means)
}

func TestAggregator_AnnualTrend(t *testing.T) {
	var records []domain.PriceRecord
	records = append(records, yearOf("Øst-Norge", 2020, 100, 100)...)
	records = append(records, yearOf("Sør-Norge", 2020, 100)...)
	records = append(records, yearOf("Øst-Norge", 2021, 110, 110)...)
	records = append(records, yearOf("Sør-Norge", 2022, 55)...)

	trend := NewAggregator(records, all("Øst-Norge", "Sør-Norge")).AnnualTrend()
	require.Len(t, trend, 3)

	assert.Equal(t, []int{2020, 2021, 2022}, []int{trend[0].Year, trend[1].Year, trend[2].Year})
	assert.Equal(t, 100.0, trend[0].Average)
	assert.Nil(t, trend[0].ChangePercent)
	require.NotNil(t, trend[1].ChangePercent)
	assert.InDelta(t, 10.0, *trend[1].ChangePercent, 1e-9)
	require.NotNil(t, trend[2].ChangePercent)
	assert.InDelta(t, -50.0, *trend[2].ChangePercent, 1e-9)

	undefined := 0
	for _, p := range trend {
		if p.ChangePercent == nil {
			undefined++
			continue
		}
		assert.False(t, math.IsNaN(*p.ChangePercent) || math.IsInf(*p.ChangePercent, 0))
	}
	assert.Equal(t, 1, undefined)
}

func TestAggregator_AnnualTrendSingleYear(t *testing.T) {
	records := append(yearOf("Øst-Norge", 2020, 1, 2), yearOf("Øst-Norge", 2021, 3, 4)...)
	sel := domain.Selection{Regions: []string{"Øst-Norge"}, FromYear: 2021, ToYear: 2021}

	trend := NewAggregator(records, sel).AnnualTrend()
	require.Len(t, trend, 1)
	assert.Equal(t, 2021, trend[0].Year)
	assert.Equal(t, 3.5, trend[0].Average)
	assert.Nil(t, trend[0].ChangePercent)
}

func TestAggregator_AnnualTrendZeroPrevious(t *testing.T) {
	records := append(yearOf("Øst-Norge", 2020, 0), yearOf("Øst-Norge", 2021, 5)...)

	trend := NewAggregator(records, all("Øst-Norge")).AnnualTrend()
	require.Len(t, trend, 2)

	// the first year stays the only unflagged undefined change
	assert.Nil(t, trend[0].ChangePercent)
	assert.False(t, trend[0].ChangeFromZero)
	assert.Nil(t, trend[1].ChangePercent)
	assert.True(t, trend[1].ChangeFromZero)

	unflagged := 0
	for _, p := range trend {
		if p.ChangePercent == nil && !p.ChangeFromZero {
			unflagged++
		}
	}
	assert.Equal(t, 1, unflagged)

	body, err := json.Marshal(trend[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":2021,"average":5,"change_percent":null,"change_from_zero":true}`, string(body))
}

func TestAggregator_RegionalAnnualAverages(t *testing.T) {
	var records []domain.PriceRecord
	records = append(records, yearOf("Øst-Norge", 2021, 1, 3)...)
	records = append(records, yearOf("Midt-Norge", 2021, 10)...)
	records = append(records, yearOf("Øst-Norge", 2020, 5)...)
	records = append(records, yearOf("Midt-Norge", 2020, 20, 40, 60)...)

	got := NewAggregator(records, all("Øst-Norge", "Midt-Norge")).RegionalAnnualAverages()
	assert.Equal(t, []domain.AnnualAverage{
		{Year: 2020, RegionName: "Midt-Norge", Average: 40, Months: 3},
		{Year: 2021, RegionName: "Midt-Norge", Average: 10, Months: 1},
		{Year: 2020, RegionName: "Øst-Norge", Average: 5, Months: 1},
		{Year: 2021, RegionName: "Øst-Norge", Average: 2, Months: 2},
	}, got)
}

func TestAggregator_SeasonalAverages(t *testing.T) {
	records := []domain.PriceRecord{
		rec("Sør-Norge", 2021, 12, 30),
		rec("Sør-Norge", 2021, 1, 10),
		rec("Sør-Norge", 2021, 2, 20),
		rec("Sør-Norge", 2021, 6, 5),
		rec("Sør-Norge", 2021, 10, 7),
		rec("Sør-Norge", 2021, 4, 9),
		rec("Sør-Norge", 2020, 7, 3),
		rec("Midt-Norge", 2021, 11, 1),
	}

	got := NewAggregator(records, all("Sør-Norge", "Midt-Norge")).SeasonalAverages()
	assert.Equal(t, []domain.SeasonalAverage{
		{RegionName: "Midt-Norge", Season: domain.Autumn, Year: 2021, Average: 1},
		{RegionName: "Sør-Norge", Season: domain.Winter, Year: 2021, Average: 20},
		{RegionName: "Sør-Norge", Season: domain.Spring, Year: 2021, Average: 9},
		{RegionName: "Sør-Norge", Season: domain.Summer, Year: 2020, Average: 3},
		{RegionName: "Sør-Norge", Season: domain.Summer, Year: 2021, Average: 5},
		{RegionName: "Sør-Norge", Season: domain.Autumn, Year: 2021, Average: 7},
	}, got)
}

func TestAggregator_SeasonalDistribution(t *testing.T) {
	var records []domain.PriceRecord
	for i, p := range []float64{4, 1, 3, 2} {
		records = append(records, rec("Vest-Norge", 2020+i, 1, p))
	}
	records = append(records, rec("Vest-Norge", 2020, 7, 9))

	got := NewAggregator(records, all("Vest-Norge")).SeasonalDistribution()
	require.Len(t, got, 2)

	winter := got[0]
	assert.Equal(t, domain.Winter, winter.Season)
	assert.Equal(t, 4, winter.Count)
	assert.Equal(t, 1.0, winter.Min)
	assert.Equal(t, 1.5, winter.Q1)
	assert.Equal(t, 2.5, winter.Median)
	assert.Equal(t, 3.5, winter.Q3)
	assert.Equal(t, 4.0, winter.Max)

	summer := got[1]
	assert.Equal(t, domain.Summer, summer.Season)
	assert.Equal(t, domain.SeasonalBox{RegionName: "Vest-Norge", Season: domain.Summer, Count: 1, Min: 9, Q1: 9, Median: 9, Q3: 9, Max: 9}, summer)
}

func TestAggregator_RegionalStats(t *testing.T) {
	var records []domain.PriceRecord
	records = append(records, yearOf("Nord-Norge", 2020, 2, 4, 4, 4)...)
	records = append(records, yearOf("Nord-Norge", 2021, 5, 5, 7, 9)...)
	records = append(records, yearOf("Øst-Norge", 2021, 42)...)

	got := NewAggregator(records, all("Nord-Norge", "Øst-Norge")).RegionalStats()
	require.Len(t, got, 2)

	nord := got[0]
	assert.Equal(t, "Nord-Norge", nord.RegionName)
	assert.Equal(t, 8, nord.Count)
	assert.Equal(t, 2.0, nord.Min)
	assert.Equal(t, 9.0, nord.Max)
	assert.Equal(t, 5.0, nord.Mean)
	require.NotNil(t, nord.StdDev)
	assert.InDelta(t, math.Sqrt(32.0/7.0), *nord.StdDev, 1e-12)

	ost := got[1]
	assert.Equal(t, "Øst-Norge", ost.RegionName)
	assert.Nil(t, ost.StdDev)

	for _, s := range got {
		assert.Equal(t, s.Max-s.Min, s.Range)
	}
}

func TestAggregator_LatestYearByRegion(t *testing.T) {
	var records []domain.PriceRecord
	records = append(records, yearOf("Øst-Norge", 2023, 10, 20)...)
	records = append(records, yearOf("Øst-Norge", 2024, 30, 50)...)
	records = append(records, yearOf("Sør-Norge", 2024, 7)...)
	records = append(records, yearOf("Midt-Norge", 2023, 99)...)

	year, means := NewAggregator(records, all("Øst-Norge", "Sør-Norge", "Midt-Norge")).LatestYearByRegion()
	assert.Equal(t, 2024, year)
	assert.Equal(t, []domain.RegionMean{
		{RegionName: "Sør-Norge", Average: 7},
		{RegionName: "Øst-Norge", Average: 40},
	}, means)
}

func TestAggregator_DoesNotShareState(t *testing.T) {
	ds := NewDataset(yearOf("Øst-Norge", 2020, 1, 2, 3), "test.xlsx", time.Now())
	a := ds.Query(ds.DefaultSelection())

	got := a.Records()
	got[0].Price = 1000

	assert.Equal(t, 1.0, ds.Records()[0].Price)
	assert.Equal(t, 1.0, a.Records()[0].Price)
}

func TestAggregator_Deterministic(t *testing.T) {
	var records []domain.PriceRecord
	for _, name := range []string{"Vest-Norge", "Øst-Norge", "Sør-Norge", "Midt-Norge", "Nord-Norge"} {
		for year := 2018; year <= 2021; year++ {
			records = append(records, yearOf(name, year, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)...)
		}
	}
	sel := all("Vest-Norge", "Øst-Norge", "Sør-Norge", "Midt-Norge", "Nord-Norge")

	first := NewAggregator(records, sel)
	for i := 0; i < 5; i++ {
		again := NewAggregator(records, sel)
		assert.Equal(t, first.SeasonalAverages(), again.SeasonalAverages())
		assert.Equal(t, first.RegionalAnnualAverages(), again.RegionalAnnualAverages())
		assert.Equal(t, first.RegionalStats(), again.RegionalStats())
	}
}
