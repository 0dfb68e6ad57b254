package types

import "time"

// DailyRecord is one day of observed weather at a location. Pointer fields
// are nil when the upstream provider had no observation for that day; nil
// values are excluded from monthly averages rather than counted as zero.
type DailyRecord struct {
	Date          time.Time `json:"date"`
	TempMaxF      *float64  `json:"tempMaxF,omitempty"`
	TempMinF      *float64  `json:"tempMinF,omitempty"`
	TempMeanF     *float64  `json:"tempMeanF,omitempty"`
	HumidityPct   *float64  `json:"humidityPct,omitempty"`
	SolarEnergyMJ *float64  `json:"solarEnergyMJ,omitempty"` // MJ/m²/day on a horizontal surface
}

// MonthlySummary averages the daily observations that fell in one calendar
// month, across however many years of history were supplied. Month is
// 0-based (0 = January). Fields are rounded to 1 decimal place and are 0
// when the month had no usable samples.
type MonthlySummary struct {
	Month    int     `json:"month"`
	HighF    float64 `json:"highF"`
	LowF     float64 `json:"lowF"`
	MeanF    float64 `json:"meanF"`
	Humidity float64 `json:"humidity"`
}
