package solar

import "math"

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// round1 rounds to 1 decimal place, the precision of all weather summaries.
func round1(v float64) float64 {
	return roundTo(v, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fieldMean accumulates the arithmetic mean of one numeric field over only
// the samples that actually carry a finite value.
type fieldMean struct {
	sum   float64
	count int
}

func (f *fieldMean) add(v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	f.sum += *v
	f.count++
}

// value is 0, never NaN, when no samples were added.
func (f fieldMean) value() float64 {
	if f.count == 0 {
		return 0
	}
	return f.sum / float64(f.count)
}
