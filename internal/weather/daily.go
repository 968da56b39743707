package weather

import (
	"sort"
	"time"
)

// DailySummary folds the three-hourly slots of one local calendar day.
type DailySummary struct {
	Date        string  `json:"date" yaml:"date"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
	MaxPop      float64 `json:"max_pop" yaml:"max_pop"`
	Description string  `json:"description" yaml:"description"`
}

// Daily groups forecast slots by local date (the city's UTC offset) in
// chronological order. The description comes from the slot closest to noon.
func (f Forecast) Daily() []DailySummary {
	type acc struct {
		summary  DailySummary
		noonDist time.Duration
	}

	days := map[string]*acc{}
	for _, slot := range f.List {
		local := LocalTime(slot.DT, f.City.Timezone)
		date := local.Format(time.DateOnly)
		noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, local.Location())
		dist := local.Sub(noon).Abs()

		lo, hi := slot.Main.TempMin, slot.Main.TempMax
		if lo == 0 && hi == 0 {
			lo, hi = slot.Main.Temp, slot.Main.Temp
		}

		day, ok := days[date]
		if !ok {
			day = &acc{summary: DailySummary{Date: date, Min: lo, Max: hi}, noonDist: -1}
			days[date] = day
		}
		day.summary.Min = min(day.summary.Min, lo)
		day.summary.Max = max(day.summary.Max, hi)
		day.summary.MaxPop = max(day.summary.MaxPop, slot.Pop)

		if len(slot.Weather) > 0 && (day.noonDist < 0 || dist < day.noonDist) {
			day.summary.Description = slot.Weather[0].Description
			day.noonDist = dist
		}
	}

	out := make([]DailySummary, 0, len(days))
	for _, day := range days {
		out = append(out, day.summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
