package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/skystats/skystats/internal/core"
	"github.com/skystats/skystats/internal/weather"
)

const timeLayout = "2006-01-02 15:04"

// ReportData is the machine-readable weather report, temperatures already in Unit.
type ReportData struct {
	City     string                 `json:"city" yaml:"city"`
	Country  string                 `json:"country" yaml:"country"`
	Unit     core.TemperatureUnit   `json:"unit" yaml:"unit"`
	Current  CurrentData            `json:"current" yaml:"current"`
	Daily    []weather.DailySummary `json:"daily" yaml:"daily"`
	Air      *AirData               `json:"air,omitempty" yaml:"air,omitempty"`
	Location *weather.Coord         `json:"location,omitempty" yaml:"location,omitempty"`
}

type CurrentData struct {
	Description   string  `json:"description" yaml:"description"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
	FeelsLike     float64 `json:"feels_like" yaml:"feels_like"`
	Humidity      int     `json:"humidity" yaml:"humidity"`
	Pressure      int     `json:"pressure" yaml:"pressure"`
	WindSpeed     float64 `json:"wind_speed" yaml:"wind_speed"`
	WindDirection string  `json:"wind_direction" yaml:"wind_direction"`
	Visibility    int     `json:"visibility" yaml:"visibility"`
	Sunrise       string  `json:"sunrise" yaml:"sunrise"`
	Sunset        string  `json:"sunset" yaml:"sunset"`
}

type AirData struct {
	AQI        int                `json:"aqi" yaml:"aqi"`
	Label      string             `json:"label" yaml:"label"`
	Components weather.Pollutants `json:"components" yaml:"components"`
}

// NewReportData converts a provider report for display in unit.
func NewReportData(r *weather.Report, unit core.TemperatureUnit) ReportData {
	if unit == "" {
		unit = core.UnitCelsius
	}
	cur := r.Current
	offset := cur.Timezone

	data := ReportData{
		City:    cur.Name,
		Country: r.Country(),
		Unit:    unit,
		Current: CurrentData{
			Description:   cur.Summary(),
			Temperature:   round1(weather.Convert(cur.Main.Temp, unit)),
			FeelsLike:     round1(weather.Convert(cur.Main.FeelsLike, unit)),
			Humidity:      cur.Main.Humidity,
			Pressure:      cur.Main.Pressure,
			WindSpeed:     cur.Wind.Speed,
			WindDirection: weather.WindDirection(cur.Wind.Deg),
			Visibility:    cur.Visibility,
		},
	}
	if cur.Sys.Sunrise > 0 {
		data.Current.Sunrise = weather.LocalTime(cur.Sys.Sunrise, offset).Format("15:04")
	}
	if cur.Sys.Sunset > 0 {
		data.Current.Sunset = weather.LocalTime(cur.Sys.Sunset, offset).Format("15:04")
	}
	if data.City == "" {
		data.City = r.Forecast.City.Name
	}

	for _, day := range r.Forecast.Daily() {
		day.Min = round1(weather.Convert(day.Min, unit))
		day.Max = round1(weather.Convert(day.Max, unit))
		data.Daily = append(data.Daily, day)
	}

	if r.Air != nil {
		data.Air = &AirData{
			AQI:        r.Air.Main.AQI,
			Label:      weather.AQILabel(r.Air.Main.AQI),
			Components: r.Air.Components,
		}
	}
	if r.Place != nil {
		data.Location = &weather.Coord{Lat: r.Place.Lat, Lon: r.Place.Lon}
	}
	return data
}

// ReportDocument renders current conditions, the daily forecast and air quality.
func ReportDocument(r *weather.Report, unit core.TemperatureUnit) Document {
	data := NewReportData(r, unit)
	deg := "°" + string(data.Unit)

	title := data.City
	if data.Country != "" {
		title += ", " + data.Country
	}

	current := Section{
		Title:  title,
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Conditions", data.Current.Description},
			{"Temperature", formatFloat(data.Current.Temperature) + deg},
			{"Feels like", formatFloat(data.Current.FeelsLike) + deg},
			{"Humidity", fmt.Sprintf("%d%%", data.Current.Humidity)},
			{"Pressure", fmt.Sprintf("%d hPa", data.Current.Pressure)},
			{"Wind", fmt.Sprintf("%s m/s %s", formatFloat(data.Current.WindSpeed), data.Current.WindDirection)},
			{"Visibility", fmt.Sprintf("%d m", data.Current.Visibility)},
		},
	}
	if data.Current.Sunrise != "" || data.Current.Sunset != "" {
		current.Rows = append(current.Rows, []string{"Sunrise / sunset", data.Current.Sunrise + " / " + data.Current.Sunset})
	}

	sections := []Section{current}

	if len(data.Daily) > 0 {
		forecast := Section{
			Title:  "Forecast",
			Header: []string{"Date", "Low", "High", "Precip", "Conditions"},
		}
		for _, day := range data.Daily {
			forecast.Rows = append(forecast.Rows, []string{
				day.Date,
				formatFloat(day.Min) + deg,
				formatFloat(day.Max) + deg,
				fmt.Sprintf("%.0f%%", day.MaxPop*100),
				day.Description,
			})
		}
		sections = append(sections, forecast)
	}

	if data.Air != nil {
		c := data.Air.Components
		sections = append(sections, Section{
			Title:  "Air quality",
			Header: []string{"Measure", "Value"},
			Rows: [][]string{
				{"AQI", fmt.Sprintf("%d (%s)", data.Air.AQI, data.Air.Label)},
				{"PM2.5", formatFloat(c.PM25) + " μg/m³"},
				{"PM10", formatFloat(c.PM10) + " μg/m³"},
				{"O3", formatFloat(c.O3) + " μg/m³"},
				{"NO2", formatFloat(c.NO2) + " μg/m³"},
			},
		})
	}

	return Document{Data: data, Sections: sections}
}

// HistoryDocument lists recent searches, newest first.
func HistoryDocument(items []core.HistoryItem) Document {
	section := Section{
		Title:  "Recent searches",
		Header: []string{"#", "City", "Country", "Searched"},
	}
	for i, item := range items {
		section.Rows = append(section.Rows, []string{
			strconv.Itoa(i + 1),
			item.City,
			item.Country,
			item.SearchedAt.Local().Format(timeLayout),
		})
	}
	if len(items) == 0 {
		section.Footer = "no searches yet"
	}
	if items == nil {
		items = []core.HistoryItem{}
	}
	return Document{Data: items, Sections: []Section{section}}
}

// PreferencesDocument shows the stored display preferences.
func PreferencesDocument(p core.Preferences) Document {
	return Document{
		Data: p,
		Sections: []Section{{
			Title:  "Preferences",
			Header: []string{"Key", "Value"},
			Rows: [][]string{
				{core.PrefTemperatureUnit, string(p.TemperatureUnit)},
				{core.PrefThemeMode, string(p.ThemeMode)},
			},
		}},
	}
}

// CacheDocument lists cached upstream payloads with their freshness at now.
func CacheDocument(entries []core.CacheEntry, now time.Time) Document {
	section := Section{
		Title:  "Upstream cache",
		Header: []string{"Key", "Endpoint", "Bytes", "Fetched", "Expires", "State"},
	}
	total := 0
	for _, e := range entries {
		state := "fresh"
		if e.Expired(now) {
			state = "expired"
		}
		section.Rows = append(section.Rows, []string{
			e.Key,
			e.Endpoint,
			strconv.Itoa(e.Bytes),
			e.FetchedAt.Local().Format(timeLayout),
			e.ExpiresAt.Local().Format(timeLayout),
			state,
		})
		total += e.Bytes
	}
	section.Footer = fmt.Sprintf("%d entries, %d bytes", len(entries), total)
	if entries == nil {
		entries = []core.CacheEntry{}
	}
	return Document{Data: entries, Sections: []Section{section}}
}

func round1(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
