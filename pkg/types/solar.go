package types

import (
	"fmt"
	"time"
)

// TiltScenario describes one panel mounting strategy for one month: the
// tilt angle from horizontal, which way the panel faces, and the energy it
// would collect in peak sun hours (kWh/m²/day).
type TiltScenario struct {
	TiltDegrees int     `json:"tiltDegrees"`         // 0..90
	Direction   string  `json:"direction,omitempty"` // "N" or "S", empty for a flat panel
	PSH         float64 `json:"psh"`
}

// Label renders the scenario's angle for display, e.g. "7° S" or "0°".
func (t TiltScenario) Label() string {
	if t.Direction == "" {
		return fmt.Sprintf("%d°", t.TiltDegrees)
	}
	return fmt.Sprintf("%d° %s", t.TiltDegrees, t.Direction)
}

// MonthlySolar compares the three mounting strategies for one calendar
// month. Month is 0-based. The PSH values always satisfy
// MonthlyOptimal ≥ YearlyFixed ≥ Flat.
type MonthlySolar struct {
	Month          int          `json:"month"`
	MonthlyOptimal TiltScenario `json:"monthlyOptimal"`
	YearlyFixed    TiltScenario `json:"yearlyFixed"`
	Flat           TiltScenario `json:"flat"`
}

// EnergyProfile is the full yearly result for one location. It is computed
// fresh on every cache miss and never mutated afterwards.
type EnergyProfile struct {
	ResolvedAddress string             `json:"resolvedAddress"`
	Latitude        float64            `json:"latitude"`
	Longitude       float64            `json:"longitude"`
	Weather         [12]MonthlySummary `json:"weather"`
	Solar           [12]MonthlySolar   `json:"solar"`
	YearsOfData     int                `json:"yearsOfData"`
	ComputedAt      time.Time          `json:"computedAt"`
}
