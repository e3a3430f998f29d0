package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonOf(t *testing.T) {
	want := map[int]Season{
		1: Winter, 2: Winter, 3: Spring, 4: Spring, 5: Spring, 6: Summer,
		7: Summer, 8: Summer, 9: Autumn, 10: Autumn, 11: Autumn, 12: Winter,
	}
	for month, season := range want {
		assert.Equal(t, season, SeasonOf(month), "month %d", month)
	}
}

func TestSeason_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		S Season `json:"season"`
	}{Summer})
	require.NoError(t, err)
	assert.JSONEq(t, `{"season":"Summer"}`, string(data))

	var s Season
	require.NoError(t, json.Unmarshal([]byte(`"Autumn"`), &s))
	assert.Equal(t, Autumn, s)

	assert.Error(t, json.Unmarshal([]byte(`"Monsoon"`), &s))
	assert.Equal(t, "Season(9)", Season(9).String())
}

func TestSelection_Includes(t *testing.T) {
	sel := Selection{Regions: []string{"Øst-Norge"}, FromYear: 2020, ToYear: 2021}

	tests := []struct {
		name string
		rec  PriceRecord
		want bool
	}{
		{"inside", PriceRecord{RegionName: "Øst-Norge", Year: 2020}, true},
		{"upper bound", PriceRecord{RegionName: "Øst-Norge", Year: 2021}, true},
		{"before range", PriceRecord{RegionName: "Øst-Norge", Year: 2019}, false},
		{"other region", PriceRecord{RegionName: "Vest-Norge", Year: 2020}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sel.Includes(tt.rec))
		})
	}

	assert.False(t, Selection{FromYear: 2020, ToYear: 2021}.Includes(tests[0].rec), "no regions selects nothing")
}

func TestMonthDate(t *testing.T) {
	d := MonthDate(2024, 2)
	assert.Equal(t, "2024-02-01T00:00:00Z", d.Format("2006-01-02T15:04:05Z07:00"))
}
