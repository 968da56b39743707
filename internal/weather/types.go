// Package weather holds the provider payload shapes and the display helpers the
// CLI uses on top of the proxy client.
package weather

import "time"

// Condition is one entry of the provider's weather array.
type Condition struct {
	ID          int    `json:"id" yaml:"id"`
	Main        string `json:"main" yaml:"main"`
	Description string `json:"description" yaml:"description"`
	Icon        string `json:"icon" yaml:"icon"`
}

// MainReadings are temperatures in Celsius plus humidity (%) and pressure (hPa).
type MainReadings struct {
	Temp      float64 `json:"temp" yaml:"temp"`
	FeelsLike float64 `json:"feels_like" yaml:"feels_like"`
	Humidity  int     `json:"humidity" yaml:"humidity"`
	Pressure  int     `json:"pressure" yaml:"pressure"`
	TempMin   float64 `json:"temp_min" yaml:"temp_min"`
	TempMax   float64 `json:"temp_max" yaml:"temp_max"`
}

type Wind struct {
	Speed float64  `json:"speed" yaml:"speed"`
	Deg   float64  `json:"deg" yaml:"deg"`
	Gust  *float64 `json:"gust,omitempty" yaml:"gust,omitempty"`
}

type Coord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

type Clouds struct {
	All int `json:"all" yaml:"all"`
}

// Current is the current-conditions payload.
type Current struct {
	Name       string       `json:"name" yaml:"name"`
	Main       MainReadings `json:"main" yaml:"main"`
	Weather    []Condition  `json:"weather" yaml:"weather"`
	Wind       Wind         `json:"wind" yaml:"wind"`
	Clouds     Clouds       `json:"clouds" yaml:"clouds"`
	Coord      Coord        `json:"coord" yaml:"coord"`
	Timezone   int          `json:"timezone" yaml:"timezone"`
	Visibility int          `json:"visibility" yaml:"visibility"`
	Sys        struct {
		Country string `json:"country" yaml:"country"`
		Sunrise int64  `json:"sunrise" yaml:"sunrise"`
		Sunset  int64  `json:"sunset" yaml:"sunset"`
	} `json:"sys" yaml:"sys"`
}

// Summary returns the first condition description, or "".
func (c Current) Summary() string {
	if len(c.Weather) == 0 {
		return ""
	}
	return c.Weather[0].Description
}

// ForecastSlot is one three-hourly forecast entry.
type ForecastSlot struct {
	DT         int64        `json:"dt" yaml:"dt"`
	Main       MainReadings `json:"main" yaml:"main"`
	Weather    []Condition  `json:"weather" yaml:"weather"`
	Wind       Wind         `json:"wind" yaml:"wind"`
	Clouds     Clouds       `json:"clouds" yaml:"clouds"`
	Pop        float64      `json:"pop" yaml:"pop"`
	Visibility int          `json:"visibility" yaml:"visibility"`
	DTText     string       `json:"dt_txt" yaml:"dt_txt"`
}

// Time returns the slot time in UTC.
func (s ForecastSlot) Time() time.Time {
	return time.Unix(s.DT, 0).UTC()
}

// Forecast is the five-day forecast payload.
type Forecast struct {
	List []ForecastSlot `json:"list" yaml:"list"`
	City struct {
		Name     string `json:"name" yaml:"name"`
		Country  string `json:"country" yaml:"country"`
		Timezone int    `json:"timezone" yaml:"timezone"`
		Coord    Coord  `json:"coord" yaml:"coord"`
	} `json:"city" yaml:"city"`
}

// Place is one geocoding match.
type Place struct {
	Name       string            `json:"name" yaml:"name"`
	LocalNames map[string]string `json:"local_names,omitempty" yaml:"local_names,omitempty"`
	Lat        float64           `json:"lat" yaml:"lat"`
	Lon        float64           `json:"lon" yaml:"lon"`
	Country    string            `json:"country" yaml:"country"`
	State      string            `json:"state,omitempty" yaml:"state,omitempty"`
}

// Pollutants are concentrations in μg/m³.
type Pollutants struct {
	CO   float64 `json:"co" yaml:"co"`
	NO   float64 `json:"no" yaml:"no"`
	NO2  float64 `json:"no2" yaml:"no2"`
	O3   float64 `json:"o3" yaml:"o3"`
	SO2  float64 `json:"so2" yaml:"so2"`
	PM25 float64 `json:"pm2_5" yaml:"pm2_5"`
	PM10 float64 `json:"pm10" yaml:"pm10"`
	NH3  float64 `json:"nh3" yaml:"nh3"`
}

// AirSample is one air-pollution reading.
type AirSample struct {
	Main struct {
		AQI int `json:"aqi" yaml:"aqi"`
	} `json:"main" yaml:"main"`
	Components Pollutants `json:"components" yaml:"components"`
	DT         int64      `json:"dt" yaml:"dt"`
}

// AirPollution is the air-pollution payload.
type AirPollution struct {
	List []AirSample `json:"list" yaml:"list"`
}

// Latest returns the first sample, if any.
func (a AirPollution) Latest() (AirSample, bool) {
	if len(a.List) == 0 {
		return AirSample{}, false
	}
	return a.List[0], true
}
