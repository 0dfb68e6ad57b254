package solar

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimalTilt(t *testing.T) {
	t.Run("austin in june", func(t *testing.T) {
		// declination 23.1 is south of latitude 30.27, panel faces south
		tilt, dir := OptimalTilt(30.27, 6)
		assert.Equal(t, 7, tilt)
		assert.Equal(t, "S", dir)
	})

	t.Run("tropical site under a northern sun", func(t *testing.T) {
		tilt, dir := OptimalTilt(10, 6)
		assert.Equal(t, 13, tilt)
		assert.Equal(t, "N", dir)
	})

	t.Run("latitude equals declination", func(t *testing.T) {
		tilt, dir := OptimalTilt(23.1, 6)
		assert.Equal(t, 0, tilt)
		assert.Empty(t, dir)
	})

	t.Run("clamped at 90 for polar winter", func(t *testing.T) {
		// |-90 - 23.1| = 113.1
		tilt, dir := OptimalTilt(-90, 6)
		assert.Equal(t, 90, tilt)
		assert.Equal(t, "N", dir)
	})

	t.Run("matches formula for every month and latitude", func(t *testing.T) {
		for lat := -90.0; lat <= 90.0; lat += 7.5 {
			for month := 1; month <= 12; month++ {
				tilt, _ := OptimalTilt(lat, month)
				want := int(clamp(math.Round(math.Abs(lat-Declination(month))), 0, 90))
				require.Equal(t, want, tilt, "lat=%v month=%d", lat, month)
			}
		}
	})
}

func TestGainRange(t *testing.T) {
	tests := []struct {
		lat      float64
		min, max float64
	}{
		{0, 1.03, 1.15},
		{19.99, 1.03, 1.15},
		{20, 1.05, 1.40}, // boundary is exclusive on the equatorial side
		{-30, 1.05, 1.40},
		{45, 1.15, 1.80},
		{59.9, 1.15, 1.80},
		{60, 1.20, 2.20},
		{-90, 1.20, 2.20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("lat %v", tt.lat), func(t *testing.T) {
			min, max := gainRange(tt.lat)
			assert.Equal(t, tt.min, min)
			assert.Equal(t, tt.max, max)
		})
	}
}

func TestScenarios(t *testing.T) {
	t.Run("ordering invariant across latitudes and months", func(t *testing.T) {
		for lat := -90.0; lat <= 90.0; lat += 5.0 {
			fixed := DefaultFixedTilt(lat)
			for month := 1; month <= 12; month++ {
				s := Scenarios(lat, month, 5.0, fixed)
				require.GreaterOrEqual(t, s.MonthlyOptimal.PSH, s.YearlyFixed.PSH,
					"lat=%v month=%d", lat, month)
				require.GreaterOrEqual(t, s.YearlyFixed.PSH, s.Flat.PSH,
					"lat=%v month=%d", lat, month)
			}
		}
	})

	t.Run("fixed tilt equal to optimal loses nothing", func(t *testing.T) {
		optTilt, _ := OptimalTilt(40, 3)
		require.NotZero(t, optTilt)

		s := Scenarios(40, 3, 4.0, optTilt)
		assert.InDelta(t, s.MonthlyOptimal.PSH, s.YearlyFixed.PSH, 1e-12)
	})

	t.Run("fixed tilt zero means a flat panel", func(t *testing.T) {
		for _, lat := range []float64{-60, -12, 0, 30.27, 75} {
			for month := 1; month <= 12; month++ {
				s := Scenarios(lat, month, 6.2, 0)
				require.Equal(t, s.Flat.PSH, s.YearlyFixed.PSH, "lat=%v month=%d", lat, month)
				require.Empty(t, s.YearlyFixed.Direction)
			}
		}
	})

	t.Run("zero insolation yields zero PSH everywhere", func(t *testing.T) {
		s := Scenarios(51.5, 12, 0, 52)
		assert.Zero(t, s.MonthlyOptimal.PSH)
		assert.Zero(t, s.YearlyFixed.PSH)
		assert.Zero(t, s.Flat.PSH)
	})

	t.Run("month index is zero-based", func(t *testing.T) {
		s := Scenarios(30.27, 6, 5.0, 30)
		assert.Equal(t, 5, s.Month)
	})

	t.Run("gain stays inside the band", func(t *testing.T) {
		for lat := -90.0; lat <= 90.0; lat += 2.5 {
			min, max := gainRange(lat)
			for month := 1; month <= 12; month++ {
				s := Scenarios(lat, month, 1.0, DefaultFixedTilt(lat))
				// horizontalPSH of 1 makes the optimal PSH equal the gain
				require.GreaterOrEqual(t, s.MonthlyOptimal.PSH, min, "lat=%v month=%d", lat, month)
				require.LessOrEqual(t, s.MonthlyOptimal.PSH, max, "lat=%v month=%d", lat, month)
			}
		}
	})

	t.Run("austin june labels", func(t *testing.T) {
		s := Scenarios(30.27, 6, 5.0, 30)
		assert.Equal(t, "7° S", s.MonthlyOptimal.Label())
		assert.Equal(t, "30° S", s.YearlyFixed.Label())
		assert.Equal(t, "0°", s.Flat.Label())
	})
}

func TestDefaultFixedTilt(t *testing.T) {
	assert.Equal(t, 30, DefaultFixedTilt(30.27))
	assert.Equal(t, 30, DefaultFixedTilt(-30.27))
	assert.Equal(t, 0, DefaultFixedTilt(0))
	assert.Equal(t, 90, DefaultFixedTilt(-90))
}
