package greenhouse

import (
	"errors"
	"math"
	"time"

	"github.com/i474232898/greenhouse-monitor/internal/common"
)

// ErrNoData is returned when a day window holds no samples.
var ErrNoData = errors.New("no sensor data for requested day")

// Channel names used as keys in DailyStats.Stats.
const (
	ChannelSuhu            = "suhu"
	ChannelCahaya          = "cahaya"
	ChannelKelembapanUdara = "kelembapan_udara"
	ChannelKelembapanTanah = "kelembapan_tanah"
)

// ChannelStats summarises one channel over a day.
type ChannelStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// DailyStats is the min/max/avg summary of a calendar day.
type DailyStats struct {
	Date         string                  `json:"date"`
	TotalRecords int                     `json:"totalRecords"`
	Stats        map[string]ChannelStats `json:"stats"`
}

// DayWindow returns [00:00:00.000, 23:59:59.999] of day in loc.
func DayWindow(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// ReduceDaily computes per-channel min, max and average over samples.
// An empty slice yields ErrNoData.
func ReduceDaily(date string, samples []SensorSample) (DailyStats, error) {
	if len(samples) == 0 {
		return DailyStats{Date: date}, ErrNoData
	}

	channels := map[string]func(SensorSample) float64{
		ChannelSuhu:            func(s SensorSample) float64 { return s.Suhu },
		ChannelCahaya:          func(s SensorSample) float64 { return s.Cahaya },
		ChannelKelembapanUdara: func(s SensorSample) float64 { return s.KelembapanUdara },
		ChannelKelembapanTanah: func(s SensorSample) float64 { return s.KelembapanTanah },
	}

	stats := make(map[string]ChannelStats, len(channels))
	for name, value := range channels {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, s := range samples {
			v := value(s)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		stats[name] = ChannelStats{
			Min:   common.Round(lo, 1),
			Max:   common.Round(hi, 1),
			Avg:   common.Round(sum/float64(len(samples)), 1),
			Count: len(samples),
		}
	}

	return DailyStats{
		Date:         date,
		TotalRecords: len(samples),
		Stats:        stats,
	}, nil
}
