package solar

import (
	"fmt"
	"math"
	"time"

	"github.com/tiltcast/tiltcast/pkg/types"
)

// ProfileInput carries everything needed to assemble one location's yearly
// energy profile.
type ProfileInput struct {
	ResolvedAddress string
	Latitude        float64
	Longitude       float64
	Days            []types.DailyRecord

	// FixedTilt overrides the year-round mounting angle. Nil means the
	// conventional round(|latitude|).
	FixedTilt *int

	YearsOfData int

	// Now stamps the profile; zero means time.Now().
	Now time.Time
}

// BuildProfile runs the monthly aggregation and the geometry model for all
// 12 months and packages the results. It validates its inputs up front and
// never produces a partial profile.
func BuildProfile(in ProfileInput) (types.EnergyProfile, error) {
	if math.IsNaN(in.Latitude) || math.IsInf(in.Latitude, 0) || in.Latitude < -90 || in.Latitude > 90 {
		return types.EnergyProfile{}, fmt.Errorf("latitude %v out of range [-90, 90]", in.Latitude)
	}
	if math.IsNaN(in.Longitude) || math.IsInf(in.Longitude, 0) || in.Longitude < -180 || in.Longitude > 180 {
		return types.EnergyProfile{}, fmt.Errorf("longitude %v out of range [-180, 180]", in.Longitude)
	}
	if in.YearsOfData < 1 {
		return types.EnergyProfile{}, fmt.Errorf("yearsOfData must be at least 1, got %d", in.YearsOfData)
	}

	fixedTilt := DefaultFixedTilt(in.Latitude)
	if in.FixedTilt != nil {
		fixedTilt = int(clamp(float64(*in.FixedTilt), 0, 90))
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	weather := MonthlySummaries(in.Days)
	horizontal := MonthlyHorizontalPSH(in.Days)

	var months [12]types.MonthlySolar
	for month := 1; month <= 12; month++ {
		s := Scenarios(in.Latitude, month, horizontal[month-1], fixedTilt)
		s.MonthlyOptimal.PSH = roundTo(s.MonthlyOptimal.PSH, 2)
		s.YearlyFixed.PSH = roundTo(s.YearlyFixed.PSH, 2)
		s.Flat.PSH = roundTo(s.Flat.PSH, 2)
		months[month-1] = s
	}

	return types.EnergyProfile{
		ResolvedAddress: in.ResolvedAddress,
		Latitude:        roundTo(in.Latitude, 4),
		Longitude:       roundTo(in.Longitude, 4),
		Weather:         weather,
		Solar:           months,
		YearsOfData:     in.YearsOfData,
		ComputedAt:      now,
	}, nil
}
