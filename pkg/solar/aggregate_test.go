package solar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tiltcast/tiltcast/pkg/types"
)

func f(v float64) *float64 { return &v }

func day(date time.Time, high, low, mean, humidity, solarMJ *float64) types.DailyRecord {
	return types.DailyRecord{
		Date:          date,
		TempMaxF:      high,
		TempMinF:      low,
		TempMeanF:     mean,
		HumidityPct:   humidity,
		SolarEnergyMJ: solarMJ,
	}
}

func TestMonthlySummaries(t *testing.T) {
	t.Run("full year of identical days", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		var days []types.DailyRecord
		for i := 0; i < 365; i++ {
			days = append(days, day(start.AddDate(0, 0, i), f(80), f(60), f(70), f(50), f(18)))
		}

		summaries := MonthlySummaries(days)
		for m, s := range summaries {
			assert.Equal(t, m, s.Month)
			assert.Equal(t, 80.0, s.HighF)
			assert.Equal(t, 60.0, s.LowF)
			assert.Equal(t, 70.0, s.MeanF)
			assert.Equal(t, 50.0, s.Humidity)
		}
	})

	t.Run("buckets by month across years", func(t *testing.T) {
		days := []types.DailyRecord{
			day(time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC), f(60), nil, nil, nil, nil),
			day(time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), f(70), nil, nil, nil, nil),
			day(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), f(80), nil, nil, nil, nil),
		}

		summaries := MonthlySummaries(days)
		assert.Equal(t, 70.0, summaries[2].HighF)
	})

	t.Run("missing fields excluded from mean", func(t *testing.T) {
		jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		days := []types.DailyRecord{
			day(jan, f(50), f(30), f(40), f(80), f(9)),
			day(jan.AddDate(0, 0, 1), f(54), f(34), f(44), nil, f(9)),
			day(jan.AddDate(0, 0, 2), nil, nil, nil, nil, nil),
		}

		summaries := MonthlySummaries(days)
		assert.Equal(t, 52.0, summaries[0].HighF)
		assert.Equal(t, 32.0, summaries[0].LowF)
		assert.Equal(t, 42.0, summaries[0].MeanF)
		// humidity mean comes from the single present sample
		assert.Equal(t, 80.0, summaries[0].Humidity)
	})

	t.Run("non-finite samples excluded", func(t *testing.T) {
		jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		days := []types.DailyRecord{
			day(jan, f(50), nil, nil, nil, nil),
			day(jan.AddDate(0, 0, 1), f(math.NaN()), nil, nil, nil, nil),
			day(jan.AddDate(0, 0, 2), f(math.Inf(1)), nil, nil, nil, nil),
		}

		summaries := MonthlySummaries(days)
		assert.Equal(t, 50.0, summaries[0].HighF)
	})

	t.Run("empty buckets are zero, never NaN", func(t *testing.T) {
		summaries := MonthlySummaries(nil)
		for m, s := range summaries {
			assert.Equal(t, m, s.Month)
			assert.Zero(t, s.HighF)
			assert.Zero(t, s.LowF)
			assert.Zero(t, s.MeanF)
			assert.Zero(t, s.Humidity)
			assert.False(t, math.IsNaN(s.HighF))
		}
	})

	t.Run("output rounded to 1 decimal", func(t *testing.T) {
		jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		days := []types.DailyRecord{
			day(jan, f(50.12), nil, nil, nil, nil),
			day(jan.AddDate(0, 0, 1), f(50.23), nil, nil, nil, nil),
		}

		summaries := MonthlySummaries(days)
		assert.Equal(t, 50.2, summaries[0].HighF)
	})
}

func TestMonthlyHorizontalPSH(t *testing.T) {
	t.Run("converts MJ to peak sun hours", func(t *testing.T) {
		jun := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		days := []types.DailyRecord{
			day(jun, nil, nil, nil, nil, f(18)),
			day(jun.AddDate(0, 0, 1), nil, nil, nil, nil, f(21.6)),
		}

		psh := MonthlyHorizontalPSH(days)
		// mean 19.8 MJ / 3.6 = 5.5 kWh
		assert.InDelta(t, 5.5, psh[5], 1e-9)
	})

	t.Run("empty month is zero", func(t *testing.T) {
		psh := MonthlyHorizontalPSH(nil)
		for _, v := range psh {
			assert.Zero(t, v)
		}
	})
}

func TestRounding(t *testing.T) {
	t.Run("half away from zero", func(t *testing.T) {
		assert.Equal(t, 0.3, round1(0.25))
		assert.Equal(t, -0.3, round1(-0.25))
		assert.Equal(t, 1.0, round1(0.95))
	})

	t.Run("idempotent on already-rounded values", func(t *testing.T) {
		for _, v := range []float64{0.0, 0.1, 12.5, -3.7, 99.9} {
			assert.Equal(t, v, round1(v))
		}
	})
}
