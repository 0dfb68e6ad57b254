package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/levenlabs/go-lflag"
	"github.com/tiltcast/tiltcast/pkg/log"
)

// ErrNotConfigured is returned when no geocoding API key was supplied.
var ErrNotConfigured = errors.New("geocoder not configured")

// Resolver turns free-text locations into coordinates and coordinates into
// human-readable place names.
type Resolver interface {
	// Forward resolves a location string to latitude/longitude.
	Forward(ctx context.Context, location string) (float64, float64, error)

	// Reverse resolves coordinates to a human-readable address.
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Configured sets up the Google-backed resolver. Without an API key every
// call returns ErrNotConfigured and callers fall back to raw coordinates.
func Configured() Resolver {
	apiKey := lflag.String("geocoder-api-key", "", "Google Geocoding API key for resolving place names (optional)")

	g := &googleResolver{}
	lflag.Do(func() {
		g.apiKey = *apiKey
		// the kelvins/geocoder client reads its key from a package global
		geocoder.ApiKey = *apiKey
	})
	return g
}

type googleResolver struct {
	apiKey string
}

func (g *googleResolver) Forward(ctx context.Context, location string) (float64, float64, error) {
	if g.apiKey == "" {
		return 0, 0, ErrNotConfigured
	}
	if lat, lon, ok := ParseCoordinates(location); ok {
		return lat, lon, nil
	}

	loc, err := geocoder.Geocoding(geocoder.Address{Street: location})
	if err != nil {
		return 0, 0, fmt.Errorf("forward geocode of %q failed: %w", location, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "forward geocoded location",
		slog.String("location", location),
		slog.Float64("lat", loc.Latitude),
		slog.Float64("lon", loc.Longitude),
	)
	return loc.Latitude, loc.Longitude, nil
}

func (g *googleResolver) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		return "", fmt.Errorf("reverse geocode of %v,%v failed: %w", lat, lon, err)
	}
	if len(addresses) == 0 {
		return "", fmt.Errorf("no address found for %v,%v", lat, lon)
	}
	name := addresses[0].FormatAddress()
	log.Ctx(ctx).DebugContext(ctx, "reverse geocoded coordinates",
		slog.Float64("lat", lat),
		slog.Float64("lon", lon),
		slog.String("address", name),
	)
	return name, nil
}

// ParseCoordinates reports whether s is a bare "lat,lon" pair, as weather
// providers return when they could not resolve a place name.
func ParseCoordinates(s string) (float64, float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}
