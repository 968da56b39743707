package proxy

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/skystats/skystats/internal/errors"
)

// DefaultUpstreamBaseURL is the OpenWeatherMap API root.
const DefaultUpstreamBaseURL = "https://api.openweathermap.org"

// Endpoint is a logical proxy route.
type Endpoint string

const (
	EndpointWeather      Endpoint = "weather"
	EndpointForecast     Endpoint = "forecast"
	EndpointGeocoding    Endpoint = "geocoding"
	EndpointAirPollution Endpoint = "air-pollution"
)

// Client-facing validation messages.
const (
	MsgMissingEndpoint = "Missing endpoint parameter"
	MsgMissingCity     = "Missing city parameter"
	MsgMissingLatLon   = "Missing lat/lon parameters"
	MsgInvalidEndpoint = "Invalid endpoint"
)

// Endpoints lists the supported logical endpoints.
var Endpoints = []Endpoint{EndpointWeather, EndpointForecast, EndpointGeocoding, EndpointAirPollution}

var upstreamPaths = map[Endpoint]string{
	EndpointWeather:      "/data/2.5/weather",
	EndpointForecast:     "/data/2.5/forecast",
	EndpointGeocoding:    "/geo/1.0/direct",
	EndpointAirPollution: "/data/2.5/air_pollution",
}

// ProxyRequest is the validated proxy input.
type ProxyRequest struct {
	Endpoint Endpoint
	City     string
	Lat      string
	Lon      string
}

// UpstreamTarget is the resolved provider URL. It embeds the credential and
// must never be returned to callers or logged.
type UpstreamTarget struct {
	Endpoint Endpoint
	URL      string
}

// ParseProxyRequest validates query parameters. Each endpoint checks its own
// required parameters; failures are VALIDATION_FAILED envelopes carrying the
// client message.
func ParseProxyRequest(query url.Values) (ProxyRequest, error) {
	raw := query.Get("endpoint")
	if raw == "" {
		return ProxyRequest{}, apperrors.NewValidationError(MsgMissingEndpoint)
	}

	req := ProxyRequest{
		Endpoint: Endpoint(raw),
		City:     query.Get("city"),
		Lat:      query.Get("lat"),
		Lon:      query.Get("lon"),
	}

	switch req.Endpoint {
	case EndpointWeather, EndpointForecast, EndpointGeocoding:
		if req.City == "" {
			return ProxyRequest{}, apperrors.NewValidationError(MsgMissingCity)
		}
	case EndpointAirPollution:
		if req.Lat == "" || req.Lon == "" {
			return ProxyRequest{}, apperrors.NewValidationError(MsgMissingLatLon)
		}
	default:
		return ProxyRequest{}, apperrors.NewValidationError(MsgInvalidEndpoint)
	}

	return req, nil
}

// Target builds the upstream URL. Units are metric throughout; geocoding is limited
// to one result. Lat/lon are passed through unvalidated, the provider rejects
// malformed coordinates.
func (p ProxyRequest) Target(baseURL, apiKey string) (UpstreamTarget, error) {
	path, ok := upstreamPaths[p.Endpoint]
	if !ok {
		return UpstreamTarget{}, fmt.Errorf("unknown endpoint: %s", p.Endpoint)
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultUpstreamBaseURL
	}

	params := url.Values{}
	switch p.Endpoint {
	case EndpointWeather, EndpointForecast:
		params.Set("q", p.City)
		params.Set("units", "metric")
	case EndpointGeocoding:
		params.Set("q", p.City)
		params.Set("limit", "1")
	case EndpointAirPollution:
		params.Set("lat", p.Lat)
		params.Set("lon", p.Lon)
	}
	params.Set("appid", apiKey)

	return UpstreamTarget{Endpoint: p.Endpoint, URL: base + path + "?" + params.Encode()}, nil
}

// CacheKey identifies the request for response caching. It never includes the
// credential. City matching is case-insensitive, as it is upstream.
func (p ProxyRequest) CacheKey() string {
	switch p.Endpoint {
	case EndpointAirPollution:
		return fmt.Sprintf("%s:%s,%s", p.Endpoint, strings.TrimSpace(p.Lat), strings.TrimSpace(p.Lon))
	default:
		return fmt.Sprintf("%s:%s", p.Endpoint, strings.ToLower(strings.TrimSpace(p.City)))
	}
}
