package solar

import "github.com/tiltcast/tiltcast/pkg/types"

// megajoulesPerKWH converts solar energy to peak sun hours: 1 kWh = 3.6 MJ.
const megajoulesPerKWH = 3.6

// MonthlySummaries buckets daily records by calendar month, regardless of
// year, and averages each field independently over the samples present in
// that bucket. All 12 months are always returned; a month with no usable
// samples reports 0 for every field. Output is rounded to 1 decimal place.
func MonthlySummaries(days []types.DailyRecord) [12]types.MonthlySummary {
	var highs, lows, means, humidities [12]fieldMean

	for _, d := range days {
		m := int(d.Date.Month()) - 1
		highs[m].add(d.TempMaxF)
		lows[m].add(d.TempMinF)
		means[m].add(d.TempMeanF)
		humidities[m].add(d.HumidityPct)
	}

	var out [12]types.MonthlySummary
	for m := range out {
		out[m] = types.MonthlySummary{
			Month:    m,
			HighF:    round1(highs[m].value()),
			LowF:     round1(lows[m].value()),
			MeanF:    round1(means[m].value()),
			Humidity: round1(humidities[m].value()),
		}
	}
	return out
}

// MonthlyHorizontalPSH averages each calendar month's horizontal solar
// energy and converts it from MJ/m²/day to peak sun hours. A month with no
// solar samples reports 0.
func MonthlyHorizontalPSH(days []types.DailyRecord) [12]float64 {
	var energy [12]fieldMean

	for _, d := range days {
		energy[int(d.Date.Month())-1].add(d.SolarEnergyMJ)
	}

	var out [12]float64
	for m := range out {
		out[m] = energy[m].value() / megajoulesPerKWH
	}
	return out
}
