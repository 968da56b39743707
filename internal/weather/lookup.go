package weather

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/skystats/skystats/internal/errors"
	"github.com/skystats/skystats/internal/proxy"
)

// Fetcher decodes one provider call. *proxy.Client satisfies it.
type Fetcher interface {
	FetchInto(ctx context.Context, req proxy.ProxyRequest, v any) error
}

// Report is everything the CLI shows for a city.
type Report struct {
	Current  Current    `json:"current" yaml:"current"`
	Forecast Forecast   `json:"forecast" yaml:"forecast"`
	Place    *Place     `json:"place,omitempty" yaml:"place,omitempty"`
	Air      *AirSample `json:"air,omitempty" yaml:"air,omitempty"`
}

// Country prefers the current-conditions country, then the forecast's.
func (r Report) Country() string {
	if r.Current.Sys.Country != "" {
		return r.Current.Sys.Country
	}
	return r.Forecast.City.Country
}

// LookupOptions selects the optional calls.
type LookupOptions struct {
	AirQuality bool
}

// Lookup fetches current conditions and forecast concurrently. With AirQuality
// it then geocodes the city and fetches pollution for the match.
func Lookup(ctx context.Context, f Fetcher, city string, opts LookupOptions) (*Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperrors.NewValidationError(proxy.MsgMissingCity)
	}

	report := &Report{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.FetchInto(gctx, proxy.ProxyRequest{Endpoint: proxy.EndpointWeather, City: city}, &report.Current)
	})
	g.Go(func() error {
		return f.FetchInto(gctx, proxy.ProxyRequest{Endpoint: proxy.EndpointForecast, City: city}, &report.Forecast)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !opts.AirQuality {
		return report, nil
	}

	place, err := Geocode(ctx, f, city)
	if err != nil {
		return nil, err
	}
	report.Place = place

	sample, err := AirQuality(ctx, f, place.Lat, place.Lon)
	if err != nil {
		return nil, err
	}
	report.Air = sample

	return report, nil
}

// Geocode returns the provider's best match for city.
func Geocode(ctx context.Context, f Fetcher, city string) (*Place, error) {
	var places []Place
	if err := f.FetchInto(ctx, proxy.ProxyRequest{Endpoint: proxy.EndpointGeocoding, City: city}, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, apperrors.NewNotFoundError(proxy.MsgLocationNotFound)
	}
	return &places[0], nil
}

// AirQuality returns the latest pollution sample at the coordinates.
func AirQuality(ctx context.Context, f Fetcher, lat, lon float64) (*AirSample, error) {
	var payload AirPollution
	req := proxy.ProxyRequest{
		Endpoint: proxy.EndpointAirPollution,
		Lat:      strconv.FormatFloat(lat, 'f', -1, 64),
		Lon:      strconv.FormatFloat(lon, 'f', -1, 64),
	}
	if err := f.FetchInto(ctx, req, &payload); err != nil {
		return nil, err
	}
	sample, ok := payload.Latest()
	if !ok {
		return nil, apperrors.NewNotFoundError("No air quality data for location")
	}
	return &sample, nil
}
