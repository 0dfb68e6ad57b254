package weather

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/tiltcast/tiltcast/pkg/geocode"
	"github.com/tiltcast/tiltcast/pkg/types"
)

// History is the multi-year daily observation set a provider returns for
// one location.
type History struct {
	Latitude  float64
	Longitude float64

	// ResolvedAddress is the provider's name for the location. Providers
	// that only work in coordinates return a bare "lat,lon" string and the
	// caller reverse-geocodes it.
	ResolvedAddress string

	Days  []types.DailyRecord
	Years int
}

// Provider abstracts a historical daily-weather source.
type Provider interface {
	Name() string

	// GetDailyHistory returns the trailing years of full daily history for
	// a free-text location, ending yesterday.
	GetDailyHistory(ctx context.Context, location string, years int) (History, error)
}

// Configured sets up the weather provider based on flags. The geocoder is
// handed to providers that need coordinates up front.
func Configured(g geocode.Resolver) Provider {
	provider := lflag.String("weather-provider", "visualcrossing", "Weather history provider to use (available: visualcrossing, openmeteo)")

	var p struct{ Provider }

	vc := configuredVisualCrossing()
	om := configuredOpenMeteo(g)

	lflag.Do(func() {
		switch *provider {
		case "visualcrossing":
			if err := vc.Validate(); err != nil {
				panic(fmt.Sprintf("visualcrossing validation failed: %v", err))
			}
			p.Provider = vc
		case "openmeteo":
			if err := om.Validate(); err != nil {
				panic(fmt.Sprintf("openmeteo validation failed: %v", err))
			}
			p.Provider = om
		default:
			panic(fmt.Sprintf("unknown weather provider: %s", *provider))
		}
	})

	return &p
}
