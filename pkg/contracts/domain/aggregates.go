package domain

// AnnualAverage is the mean price of one region over the months present in a year
type AnnualAverage struct {
	Year       int     `json:"year"`
	RegionName string  `json:"region_name"`
	Average    float64 `json:"average"`
	Months     int     `json:"months"`
}

// RegionMean is a per-region mean used by the overview and latest-year views
type RegionMean struct {
	RegionName string  `json:"region_name"`
	Average    float64 `json:"average"`
}

// OverviewMetrics summarises the latest year of a selection
type OverviewMetrics struct {
	Year          int          `json:"year"`
	Average       float64      `json:"average"`
	RegionMeans   []RegionMean `json:"region_means"`
	HighestRegion string       `json:"highest_region"`
	HighestPrice  float64      `json:"highest_price"`
	LowestRegion  string       `json:"lowest_region"`
	LowestPrice   float64      `json:"lowest_price"`
	PriceRange    float64      `json:"price_range"`
}

// TrendPoint is one year of the combined annual trend.
// ChangePercent is nil for the first year of the series. It is also nil
// when the previous mean is zero, and ChangeFromZero then marks the point
// so it can be told apart from the first year.
type TrendPoint struct {
	Year           int      `json:"year"`
	Average        float64  `json:"average"`
	ChangePercent  *float64 `json:"change_percent"`
	ChangeFromZero bool     `json:"change_from_zero,omitempty"`
}

// SeasonalAverage is the mean price of a region in one season of one year
type SeasonalAverage struct {
	RegionName string  `json:"region_name"`
	Season     Season  `json:"season"`
	Year       int     `json:"year"`
	Average    float64 `json:"average"`
}

// SeasonalBox is the five-number summary of the yearly seasonal means
type SeasonalBox struct {
	RegionName string  `json:"region_name"`
	Season     Season  `json:"season"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Q1         float64 `json:"q1"`
	Median     float64 `json:"median"`
	Q3         float64 `json:"q3"`
	Max        float64 `json:"max"`
}

// RegionalStats describes the spread of one region over the whole selection.
// StdDev is the sample deviation and is nil with fewer than two observations.
type RegionalStats struct {
	RegionName string   `json:"region_name"`
	Count      int      `json:"count"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	StdDev     *float64 `json:"std_dev"`
	Mean       float64  `json:"mean"`
	Range      float64  `json:"range"`
}
