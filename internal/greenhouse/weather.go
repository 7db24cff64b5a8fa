package greenhouse

import (
	"errors"
	"fmt"
	"math"

	"github.com/i474232898/greenhouse-monitor/internal/common"
)

const (
	baseOutsideTemp = 28.0

	rainLongRunTicks = 30
	cloudRainDrift   = 0.05
	cloudWalkStep    = 0.04

	minOverrideTemp = 10.0
	maxOverrideTemp = 45.0
)

// ErrInvalidWeather is returned when a weather override cannot be applied.
var ErrInvalidWeather = errors.New("invalid weather override")

// seasonPreset holds the baselines a season resets and its outside temperature nudge.
type seasonPreset struct {
	airHumidity  float64
	soilHumidity float64
	tempDelta    float64
}

var seasonPresets = map[Season]seasonPreset{
	SeasonDry:    {airHumidity: 45, soilHumidity: 35, tempDelta: 3},
	SeasonNormal: {airHumidity: 65, soilHumidity: 55, tempDelta: 0},
	SeasonWet:    {airHumidity: 75, soilHumidity: 65, tempDelta: -2},
}

// rainProbability is the per-tick chance of rain starting.
func rainProbability(ti TimeInfo) float64 {
	switch {
	case ti.IsEarlyMorning:
		return 0.08
	case ti.IsEvening:
		return 0.06
	default:
		return 0.03
	}
}

// AdvanceWeather moves w forward by one tick.
func AdvanceWeather(w *WeatherState, ti TimeInfo, src RandSource) {
	if !w.IsRaining {
		if src.Float64() < rainProbability(ti) {
			w.IsRaining = true
			w.RainDuration = 0
		}
	} else {
		w.RainDuration++
		stop := 0.15
		if w.RainDuration > rainLongRunTicks {
			stop = 0.4
		}
		if src.Float64() < stop {
			w.IsRaining = false
			w.RainDuration = 0
		}
	}

	if w.IsRaining {
		w.CloudCover = math.Min(1, w.CloudCover+cloudRainDrift)
	} else {
		w.CloudCover = common.Clamp(w.CloudCover+uniform(src, -cloudWalkStep, cloudWalkStep), 0, 1)
	}

	temp := baseOutsideTemp
	if ti.IsDayTime {
		temp += math.Sin(ti.DayProgress*math.Pi) * 8
	} else {
		temp -= 6
	}
	if w.IsRaining {
		temp -= 3
	}
	w.OutsideTemp = temp
}

// WeatherOverride is a partial manual weather update. Nil fields are left unchanged.
type WeatherOverride struct {
	IsRaining   *bool    `json:"isRaining,omitempty"`
	CloudCover  *float64 `json:"cloudCover,omitempty"`
	OutsideTemp *float64 `json:"outsideTemp,omitempty"`
	Season      *Season  `json:"season,omitempty"`
}

// Empty reports whether the override sets nothing.
func (o WeatherOverride) Empty() bool {
	return o.IsRaining == nil && o.CloudCover == nil && o.OutsideTemp == nil && o.Season == nil
}

// Validate rejects values that cannot be clamped into range.
func (o WeatherOverride) Validate() error {
	if o.Empty() {
		return fmt.Errorf("%w: no fields supplied", ErrInvalidWeather)
	}
	if o.CloudCover != nil && math.IsNaN(*o.CloudCover) {
		return fmt.Errorf("%w: cloudCover is not a number", ErrInvalidWeather)
	}
	if o.OutsideTemp != nil && math.IsNaN(*o.OutsideTemp) {
		return fmt.Errorf("%w: outsideTemp is not a number", ErrInvalidWeather)
	}
	if o.Season != nil && !o.Season.Valid() {
		return fmt.Errorf("%w: unknown season %q", ErrInvalidWeather, *o.Season)
	}
	return nil
}

// ApplyWeatherOverride validates o and applies it field by field. Selecting a
// season also resets the humidity baselines and nudges the outside temperature.
// Nothing is mutated when validation fails.
func ApplyWeatherOverride(w *WeatherState, b *Baseline, o WeatherOverride) error {
	if err := o.Validate(); err != nil {
		return err
	}

	if o.IsRaining != nil {
		if *o.IsRaining != w.IsRaining {
			w.RainDuration = 0
		}
		w.IsRaining = *o.IsRaining
	}
	if o.CloudCover != nil {
		w.CloudCover = common.Clamp(*o.CloudCover, 0, 1)
	}
	if o.OutsideTemp != nil {
		w.OutsideTemp = common.Clamp(*o.OutsideTemp, minOverrideTemp, maxOverrideTemp)
	}
	if o.Season != nil {
		p := seasonPresets[*o.Season]
		w.Season = *o.Season
		b.KelembapanUdara = p.airHumidity
		b.KelembapanTanah = p.soilHumidity
		w.OutsideTemp = common.Clamp(w.OutsideTemp+p.tempDelta, minOverrideTemp, maxOverrideTemp)
	}
	return nil
}
