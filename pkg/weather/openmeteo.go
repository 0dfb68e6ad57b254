package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/sony/gobreaker"
	"github.com/tiltcast/tiltcast/pkg/common"
	"github.com/tiltcast/tiltcast/pkg/geocode"
	"github.com/tiltcast/tiltcast/pkg/log"
	"github.com/tiltcast/tiltcast/pkg/types"
)

// OpenMeteo implements Provider against the Open-Meteo ERA5 archive API. It
// needs no API key but only speaks coordinates, so free-text locations are
// forward-geocoded first and the resolved address is left as "lat,lon" for
// the caller to prettify.
type OpenMeteo struct {
	apiURL   string
	geocoder geocode.Resolver
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	backoff  backoffConfig
}

func configuredOpenMeteo(g geocode.Resolver) *OpenMeteo {
	o := &OpenMeteo{
		geocoder: g,
		client:   common.HTTPClient(30 * time.Second),
		circuit:  newBreaker("openmeteo"),
		backoff:  defaultBackoff,
	}
	apiURL := lflag.String("openmeteo-api-url", "https://archive-api.open-meteo.com/v1/archive", "URL for the Open-Meteo archive API")

	lflag.Do(func() {
		o.apiURL = *apiURL
	})

	return o
}

// Validate ensures the configuration is valid.
func (o *OpenMeteo) Validate() error {
	if o.apiURL == "" {
		return fmt.Errorf("openmeteo-api-url is required")
	}
	if _, err := url.Parse(o.apiURL); err != nil {
		return fmt.Errorf("failed to parse openmeteo url (%s): %w", o.apiURL, err)
	}
	return nil
}

func (o *OpenMeteo) Name() string { return "openmeteo" }

// archive response: parallel daily arrays, null for missing observations.
type omResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Daily     struct {
		Time                  []string   `json:"time"`
		TemperatureMax        []*float64 `json:"temperature_2m_max"`
		TemperatureMin        []*float64 `json:"temperature_2m_min"`
		TemperatureMean       []*float64 `json:"temperature_2m_mean"`
		RelativeHumidityMean  []*float64 `json:"relative_humidity_2m_mean"`
		ShortwaveRadiationSum []*float64 `json:"shortwave_radiation_sum"` // MJ/m²
	} `json:"daily"`
}

func (o *OpenMeteo) GetDailyHistory(ctx context.Context, location string, years int) (History, error) {
	lat, lon, ok := geocode.ParseCoordinates(location)
	if !ok {
		var err error
		lat, lon, err = o.geocoder.Forward(ctx, location)
		if errors.Is(err, geocode.ErrNotConfigured) {
			return History{}, fmt.Errorf("openmeteo needs coordinates; pass \"lat,lon\" or configure a geocoder: %w", err)
		}
		if err != nil {
			return History{}, fmt.Errorf("failed to resolve location %q: %w", location, err)
		}
	}

	start, end := historyRange(time.Now(), years)

	u, err := url.Parse(o.apiURL)
	if err != nil {
		return History{}, fmt.Errorf("invalid api url: %w", err)
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("start_date", start.Format("2006-01-02"))
	params.Set("end_date", end.Format("2006-01-02"))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,temperature_2m_mean,relative_humidity_2m_mean,shortwave_radiation_sum")
	params.Set("temperature_unit", "fahrenheit")
	params.Set("timezone", "UTC")
	u.RawQuery = params.Encode()

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetching openmeteo history",
		slog.Float64("lat", lat),
		slog.Float64("lon", lon),
		slog.Int("years", years),
	)

	resp, err := doWithResilience(ctx, o.client, o.circuit, o.backoff, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u.String(), nil)
	})
	if err != nil {
		return History{}, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return History{}, fmt.Errorf("openmeteo api returned status: %d", resp.StatusCode)
	}

	var data omResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return History{}, fmt.Errorf("failed to decode response: %w", err)
	}

	days := make([]types.DailyRecord, 0, len(data.Daily.Time))
	for i, ts := range data.Daily.Time {
		date, err := time.Parse("2006-01-02", ts)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping day with bad date",
				slog.String("date", ts), slog.Any("error", err))
			continue
		}
		days = append(days, types.DailyRecord{
			Date:          date,
			TempMaxF:      at(data.Daily.TemperatureMax, i),
			TempMinF:      at(data.Daily.TemperatureMin, i),
			TempMeanF:     at(data.Daily.TemperatureMean, i),
			HumidityPct:   at(data.Daily.RelativeHumidityMean, i),
			SolarEnergyMJ: at(data.Daily.ShortwaveRadiationSum, i),
		})
	}

	log.Ctx(ctx).DebugContext(ctx, "fetched openmeteo history", slog.Int("days", len(days)))

	return History{
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
		// coordinates only; the estimator reverse-geocodes a real name
		ResolvedAddress: fmt.Sprintf("%.4f,%.4f", lat, lon),
		Days:            days,
		Years:           years,
	}, nil
}

// at guards against the API returning daily arrays shorter than time.
func at(vs []*float64, i int) *float64 {
	if i >= len(vs) {
		return nil
	}
	return vs[i]
}
