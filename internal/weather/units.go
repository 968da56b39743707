package weather

import (
	"math"
	"time"

	"github.com/skystats/skystats/internal/core"
)

// ToFahrenheit converts Celsius.
func ToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

// Convert renders a Celsius reading in unit.
func Convert(celsius float64, unit core.TemperatureUnit) float64 {
	if unit == core.UnitFahrenheit {
		return ToFahrenheit(celsius)
	}
	return celsius
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindDirection maps degrees to an eight-point compass label.
func WindDirection(degrees float64) string {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return compassPoints[int(math.Round(d/45))%len(compassPoints)]
}

// LocalTime shifts a unix timestamp by the provider's UTC offset (seconds).
func LocalTime(unix int64, offsetSeconds int) time.Time {
	return time.Unix(unix, 0).In(time.FixedZone("", offsetSeconds))
}

// IsDaytime reports whether now lies strictly between sunrise and sunset.
func IsDaytime(now, sunrise, sunset int64) bool {
	return now > sunrise && now < sunset
}

// AQI labels for the provider's 1-5 air quality index.
var aqiLabels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AQILabel names an index value; out-of-range values are "Unknown".
func AQILabel(aqi int) string {
	if label, ok := aqiLabels[aqi]; ok {
		return label
	}
	return "Unknown"
}
