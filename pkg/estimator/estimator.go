// Package estimator computes location energy profiles from weather history
// and caches the results.
package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/levenlabs/go-lflag"
	"github.com/tiltcast/tiltcast/pkg/cache"
	"github.com/tiltcast/tiltcast/pkg/geocode"
	"github.com/tiltcast/tiltcast/pkg/log"
	"github.com/tiltcast/tiltcast/pkg/solar"
	"github.com/tiltcast/tiltcast/pkg/types"
	"github.com/tiltcast/tiltcast/pkg/weather"
)

var validate = validator.New()

// ErrInvalidInput wraps request validation failures so the HTTP layer can
// map them to a 400.
var ErrInvalidInput = errors.New("invalid input")

// Request describes one estimate. Years defaults to 3 when zero. FixedTilt
// nil means the conventional round(|latitude|) mounting angle.
type Request struct {
	Location  string   `json:"location" validate:"required"`
	Years     int      `json:"years" validate:"omitempty,min=1,max=10"`
	FixedTilt *float64 `json:"fixedTilt" validate:"omitempty,min=0,max=90"`
}

const defaultYears = 3

// Service computes and caches energy profiles.
type Service struct {
	weather  weather.Provider
	geocoder geocode.Resolver
	cache    cache.Store
	cacheTTL time.Duration
}

// New constructs a Service directly. Most callers want Configured.
func New(w weather.Provider, g geocode.Resolver, c cache.Store, cacheTTL time.Duration) *Service {
	return &Service{
		weather:  w,
		geocoder: g,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Configured sets up the estimator and its flags.
func Configured(w weather.Provider, g geocode.Resolver, c cache.Store) *Service {
	s := &Service{
		weather:  w,
		geocoder: g,
		cache:    c,
	}
	ttl := lflag.Duration("cache-ttl", 24*time.Hour, "How long computed profiles stay cached")

	lflag.Do(func() {
		s.cacheTTL = *ttl
	})

	return s
}

// Estimate returns the profile for req, serving from cache when a fresh
// entry exists. The bool reports whether the result came from cache.
// Cached entries ignore req.Years and req.FixedTilt; callers that need a
// specific variant should Invalidate first or use Refresh.
func (s *Service) Estimate(ctx context.Context, req Request) (types.EnergyProfile, bool, error) {
	if err := validate.Struct(req); err != nil {
		return types.EnergyProfile{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	key := cache.Key(req.Location)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var profile types.EnergyProfile
		if err := json.Unmarshal(raw, &profile); err == nil {
			log.Ctx(ctx).DebugContext(ctx, "cache hit", slog.String("key", key))
			return profile, true, nil
		}
		// unreadable entry, recompute and overwrite
		log.Ctx(ctx).WarnContext(ctx, "discarding corrupt cache entry", slog.String("key", key))
	} else if !errors.Is(err, cache.ErrNotFound) {
		log.Ctx(ctx).WarnContext(ctx, "cache read failed",
			slog.String("key", key), slog.Any("error", err))
	}

	profile, err := s.compute(ctx, req)
	if err != nil {
		return types.EnergyProfile{}, false, err
	}

	s.store(ctx, key, profile)
	return profile, false, nil
}

// Refresh recomputes a location unconditionally and overwrites its cache
// entry. The scheduler uses this to keep configured locations warm.
func (s *Service) Refresh(ctx context.Context, location string) (types.EnergyProfile, error) {
	req := Request{Location: location}
	if err := validate.Struct(req); err != nil {
		return types.EnergyProfile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	profile, err := s.compute(ctx, req)
	if err != nil {
		return types.EnergyProfile{}, err
	}

	s.store(ctx, cache.Key(location), profile)
	return profile, nil
}

// Invalidate removes a location's cache entry. Absent entries are fine.
func (s *Service) Invalidate(ctx context.Context, location string) error {
	return s.cache.Delete(ctx, cache.Key(location))
}

// ListCached returns the cache keys of stored profiles. An empty prefix
// lists everything.
func (s *Service) ListCached(ctx context.Context, prefix string) ([]string, error) {
	if prefix == "" {
		prefix = cache.KeyPrefix
	}
	return s.cache.List(ctx, prefix)
}

func (s *Service) compute(ctx context.Context, req Request) (types.EnergyProfile, error) {
	years := req.Years
	if years == 0 {
		years = defaultYears
	}

	history, err := s.weather.GetDailyHistory(ctx, req.Location, years)
	if err != nil {
		return types.EnergyProfile{}, fmt.Errorf("failed to fetch weather history: %w", err)
	}
	if len(history.Days) == 0 {
		return types.EnergyProfile{}, fmt.Errorf("no weather history for %q", req.Location)
	}

	resolved := s.resolveAddress(ctx, history)

	var fixedTilt *int
	if req.FixedTilt != nil {
		t := int(math.Round(*req.FixedTilt))
		fixedTilt = &t
	}

	profile, err := solar.BuildProfile(solar.ProfileInput{
		ResolvedAddress: resolved,
		Latitude:        history.Latitude,
		Longitude:       history.Longitude,
		Days:            history.Days,
		FixedTilt:       fixedTilt,
		YearsOfData:     years,
	})
	if err != nil {
		return types.EnergyProfile{}, fmt.Errorf("failed to build profile: %w", err)
	}

	log.Ctx(ctx).InfoContext(ctx, "computed profile",
		slog.String("location", req.Location),
		slog.String("resolvedAddress", profile.ResolvedAddress),
		slog.Int("days", len(history.Days)),
		slog.Int("years", years),
	)

	return profile, nil
}

// resolveAddress upgrades a coordinate-only resolved address to a place
// name when a geocoder is available. Failures fall back to the coordinates.
func (s *Service) resolveAddress(ctx context.Context, h weather.History) string {
	lat, lon, ok := geocode.ParseCoordinates(h.ResolvedAddress)
	if !ok {
		return h.ResolvedAddress
	}

	name, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		if !errors.Is(err, geocode.ErrNotConfigured) {
			log.Ctx(ctx).WarnContext(ctx, "reverse geocode failed",
				slog.Float64("lat", lat), slog.Float64("lon", lon), slog.Any("error", err))
		}
		return h.ResolvedAddress
	}
	return name
}

// store writes a profile to the cache. Cache failures only warn since the
// caller already has the result.
func (s *Service) store(ctx context.Context, key string, profile types.EnergyProfile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to marshal profile", slog.Any("error", err))
		return
	}
	if err := s.cache.Put(ctx, key, raw, s.cacheTTL); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}
