package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotAt(t time.Time, lo, hi, pop float64, desc string) ForecastSlot {
	return ForecastSlot{
		DT:      t.Unix(),
		Main:    MainReadings{TempMin: lo, TempMax: hi, Temp: (lo + hi) / 2},
		Weather: []Condition{{Description: desc}},
		Pop:     pop,
	}
}

func TestDailyGroupsByLocalDate(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var f Forecast
	f.City.Timezone = 0
	f.List = []ForecastSlot{
		slotAt(base.Add(3*time.Hour), 4, 6, 0.1, "clear sky"),
		slotAt(base.Add(12*time.Hour), 9, 12, 0.6, "light rain"),
		slotAt(base.Add(21*time.Hour), 5, 7, 0.2, "overcast"),
		slotAt(base.Add(27*time.Hour), 2, 3, 0, "mist"),
	}

	days := f.Daily()
	require.Len(t, days, 2)

	assert.Equal(t, "2026-03-01", days[0].Date)
	assert.InDelta(t, 4, days[0].Min, 1e-9)
	assert.InDelta(t, 12, days[0].Max, 1e-9)
	assert.InDelta(t, 0.6, days[0].MaxPop, 1e-9)
	assert.Equal(t, "light rain", days[0].Description)

	assert.Equal(t, "2026-03-02", days[1].Date)
	assert.Equal(t, "mist", days[1].Description)
}

func TestDailyUsesCityOffset(t *testing.T) {
	var f Forecast
	f.City.Timezone = -5 * 3600
	f.List = []ForecastSlot{
		slotAt(time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), 1, 2, 0, "snow"),
	}

	days := f.Daily()
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-01", days[0].Date)
}

func TestDailyEmpty(t *testing.T) {
	assert.Empty(t, Forecast{}.Daily())
}
