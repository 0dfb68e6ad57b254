package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/sony/gobreaker"
	"github.com/tiltcast/tiltcast/pkg/common"
	"github.com/tiltcast/tiltcast/pkg/log"
	"github.com/tiltcast/tiltcast/pkg/types"
)

// VisualCrossing implements Provider against the Visual Crossing Timeline
// API. It resolves free-text locations itself and returns temperatures in
// °F and daily solar energy in MJ/m².
type VisualCrossing struct {
	apiURL  string
	apiKey  string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	backoff backoffConfig
}

// configuredVisualCrossing sets up flags for Visual Crossing and returns
// the instance.
func configuredVisualCrossing() *VisualCrossing {
	v := &VisualCrossing{
		client:  common.HTTPClient(30 * time.Second),
		circuit: newBreaker("visualcrossing"),
		backoff: defaultBackoff,
	}
	apiURL := lflag.String("visualcrossing-api-url", "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline", "URL for the Visual Crossing Timeline API")
	apiKey := lflag.String("visualcrossing-api-key", "", "API key for Visual Crossing")

	lflag.Do(func() {
		v.apiURL = *apiURL
		v.apiKey = *apiKey
	})

	return v
}

// Validate ensures the configuration is valid.
func (v *VisualCrossing) Validate() error {
	if v.apiURL == "" {
		return fmt.Errorf("visualcrossing-api-url is required")
	}
	if _, err := url.Parse(v.apiURL); err != nil {
		return fmt.Errorf("failed to parse visualcrossing url (%s): %w", v.apiURL, err)
	}
	if v.apiKey == "" {
		return fmt.Errorf("visualcrossing-api-key is required")
	}
	return nil
}

func (v *VisualCrossing) Name() string { return "visualcrossing" }

// timeline response subset; numeric day fields stay pointers because the
// API returns null for days with no observation.
type vcResponse struct {
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	ResolvedAddress string  `json:"resolvedAddress"`
	Days            []vcDay `json:"days"`
}

type vcDay struct {
	Datetime    string   `json:"datetime"`
	TempMax     *float64 `json:"tempmax"`
	TempMin     *float64 `json:"tempmin"`
	Temp        *float64 `json:"temp"`
	Humidity    *float64 `json:"humidity"`
	SolarEnergy *float64 `json:"solarenergy"`
}

// GetDailyHistory fetches the trailing years of daily history in one
// timeline request.
func (v *VisualCrossing) GetDailyHistory(ctx context.Context, location string, years int) (History, error) {
	start, end := historyRange(time.Now(), years)

	u, err := url.Parse(v.apiURL)
	if err != nil {
		return History{}, fmt.Errorf("invalid api url: %w", err)
	}
	u = u.JoinPath(location, start.Format("2006-01-02"), end.Format("2006-01-02"))

	params := url.Values{}
	params.Set("unitGroup", "us")
	params.Set("include", "days")
	params.Set("elements", "datetime,tempmax,tempmin,temp,humidity,solarenergy")
	params.Set("contentType", "json")
	params.Set("key", v.apiKey)
	u.RawQuery = params.Encode()

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetching visualcrossing history",
		slog.String("location", location),
		slog.Int("years", years),
		slog.Time("start", start),
		slog.Time("end", end),
	)

	resp, err := doWithResilience(ctx, v.client, v.circuit, v.backoff, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u.String(), nil)
	})
	if err != nil {
		return History{}, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return History{}, fmt.Errorf("visualcrossing api returned status: %d", resp.StatusCode)
	}

	var data vcResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return History{}, fmt.Errorf("failed to decode response: %w", err)
	}

	days := make([]types.DailyRecord, 0, len(data.Days))
	for _, d := range data.Days {
		date, err := time.Parse("2006-01-02", d.Datetime)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping day with bad datetime",
				slog.String("datetime", d.Datetime), slog.Any("error", err))
			continue
		}
		days = append(days, types.DailyRecord{
			Date:          date,
			TempMaxF:      d.TempMax,
			TempMinF:      d.TempMin,
			TempMeanF:     d.Temp,
			HumidityPct:   d.Humidity,
			SolarEnergyMJ: d.SolarEnergy,
		})
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched visualcrossing history",
		slog.String("resolvedAddress", data.ResolvedAddress),
		slog.Int("days", len(days)),
	)

	return History{
		Latitude:        data.Latitude,
		Longitude:       data.Longitude,
		ResolvedAddress: data.ResolvedAddress,
		Days:            days,
		Years:           years,
	}, nil
}
