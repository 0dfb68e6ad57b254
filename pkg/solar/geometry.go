package solar

import (
	"math"

	"github.com/tiltcast/tiltcast/pkg/types"
)

// OptimalTilt returns the tilt angle (degrees from horizontal) and facing
// direction that point a panel at the month's mean noon sun. Direction is
// "N" when the sun sits north of the site, "S" otherwise, and empty when
// the tilt is 0 and facing is moot.
func OptimalTilt(latitude float64, month int) (int, string) {
	decl := Declination(month)
	tilt := int(clamp(math.Round(math.Abs(latitude-decl)), 0, 90))
	if tilt == 0 {
		return 0, ""
	}
	if decl > latitude {
		return tilt, "N"
	}
	return tilt, "S"
}

// DefaultFixedTilt is the conventional year-round mounting angle: the
// site's latitude, rounded.
func DefaultFixedTilt(latitude float64) int {
	return int(clamp(math.Round(math.Abs(latitude)), 0, 90))
}

// Scenarios compares the three mounting strategies for one month. Inputs
// are the site latitude, the month (1..12), the month's mean horizontal
// insolation in peak sun hours, and the caller's year-round fixed tilt.
// PSH outputs are unrounded; the profile assembler applies final rounding.
//
// The returned PSH values always satisfy monthly-optimal ≥ yearly-fixed ≥
// flat: the fixed gain is explicitly capped at the month's maximum gain so
// floating-point noise cannot reorder them.
func Scenarios(latitude float64, month int, horizontalPSH float64, fixedTilt int) types.MonthlySolar {
	optTilt, optDir := OptimalTilt(latitude, month)

	// The gain attainable by the monthly-optimal tilt scales with how low
	// the noon sun is: no benefit when overhead, the band maximum near the
	// horizon.
	minGain, bandMax := gainRange(latitude)
	noonElevation := 90 - float64(optTilt)
	elevationFactor := 1 - noonElevation/90
	maxGain := clamp(minGain+(bandMax-minGain)*elevationFactor, minGain, bandMax)

	// A panel fixed at 0° is just a flat panel; it gets no tilt gain at
	// all. Otherwise the penalty for deviating from the month's optimal
	// angle is cos^1.5 of the deviation, steeper than plain cosine.
	fixedGain := 1.0
	if fixedTilt != 0 {
		diff := math.Abs(float64(fixedTilt - optTilt))
		efficiency := math.Pow(math.Cos(diff*math.Pi/180), 1.5)
		fixedGain = clamp(1+(maxGain-1)*efficiency, 1, maxGain)
	}

	fixedDir := ""
	if fixedTilt != 0 {
		if latitude < 0 {
			fixedDir = "N"
		} else {
			fixedDir = "S"
		}
	}

	return types.MonthlySolar{
		Month: month - 1,
		MonthlyOptimal: types.TiltScenario{
			TiltDegrees: optTilt,
			Direction:   optDir,
			PSH:         horizontalPSH * maxGain,
		},
		YearlyFixed: types.TiltScenario{
			TiltDegrees: fixedTilt,
			Direction:   fixedDir,
			PSH:         horizontalPSH * math.Min(fixedGain, maxGain),
		},
		Flat: types.TiltScenario{
			TiltDegrees: 0,
			PSH:         horizontalPSH,
		},
	}
}
