package solar

import "math"

// monthlyDeclination is the mean solar declination for each calendar month
// in degrees. Positive means the sun sits north of the equatorial plane
// (boreal summer). These are calendar approximations, not an ephemeris.
var monthlyDeclination = [12]float64{
	-20.9, // January
	-13.0, // February
	-2.4,  // March
	9.4,   // April
	18.8,  // May
	23.1,  // June
	21.2,  // July
	13.5,  // August
	2.2,   // September
	-9.6,  // October
	-18.9, // November
	-23.0, // December
}

// Declination returns the mean solar declination for month (1..12).
func Declination(month int) float64 {
	return monthlyDeclination[month-1]
}

// gainBand is the attainable tilt-gain range for one |latitude| band. The
// upper latitude bound is exclusive: a site at exactly 20° falls into the
// mid-latitude band, not the equatorial one.
type gainBand struct {
	belowAbsLat float64
	minGain     float64
	maxGain     float64
}

var gainBands = []gainBand{
	{belowAbsLat: 20, minGain: 1.03, maxGain: 1.15}, // equatorial
	{belowAbsLat: 45, minGain: 1.05, maxGain: 1.40}, // mid-latitude
	{belowAbsLat: 60, minGain: 1.15, maxGain: 1.80}, // high-latitude
}

// polarBand catches every |latitude| from 60° up.
var polarBand = gainBand{minGain: 1.20, maxGain: 2.20}

// gainRange returns the [minGain, maxGain] pair for a latitude.
func gainRange(latitude float64) (float64, float64) {
	abs := math.Abs(latitude)
	for _, b := range gainBands {
		if abs < b.belowAbsLat {
			return b.minGain, b.maxGain
		}
	}
	return polarBand.minGain, polarBand.maxGain
}
