package greenhouse

import (
	"math"
	"time"

	"github.com/i474232898/greenhouse-monitor/internal/common"
)

const (
	minAirHumidity  = 25.0
	maxAirHumidity  = 95.0
	minSoilHumidity = 15.0
	maxSoilHumidity = 85.0

	normalNoise = 0.4
	fastNoise   = 1.2

	tempNoiseScale  = 0.8
	lightNoiseScale = 25.0
	airNoiseScale   = 1.2
	soilNoiseScale  = 0.6
)

// ComputeTargets returns the pre-noise values for one tick. Twilight and night
// light levels draw from src; everything else is deterministic.
func ComputeTargets(ti TimeInfo, w WeatherState, d DeviceMirror, b Baseline, src RandSource) Targets {
	temp := targetTemperature(ti, w, d)
	air := targetAirHumidity(temp, w, d)
	return Targets{
		Suhu:            temp,
		Cahaya:          targetLight(ti, w, d, src),
		KelembapanUdara: air,
		KelembapanTanah: targetSoilHumidity(b.KelembapanTanah, temp, air, w, d),
	}
}

func targetTemperature(ti TimeInfo, w WeatherState, d DeviceMirror) float64 {
	t := w.OutsideTemp
	if ti.IsDayTime {
		t += math.Sin((ti.TimeDecimal-6)*math.Pi/12) * 10
	} else {
		t -= 8
	}
	if w.IsRaining {
		t -= 4
	}
	if w.CloudCover > 0.7 {
		t -= 3
	}

	// Device effects, in this order.
	if d.Pemanas {
		switch {
		case t < 20:
			t += 8
		case t < 25:
			t += 5
		default:
			t += 3
		}
	}
	if d.VentOpen() {
		t += (w.OutsideTemp - t) * 0.3
	}
	if d.Kipas {
		t -= 1.5
	}
	return t
}

func targetLight(ti TimeInfo, w WeatherState, d DeviceMirror, src RandSource) float64 {
	var l float64
	switch {
	case ti.IsDayTime:
		l = (800 + math.Sin(ti.DayProgress*math.Pi)*400) * (1 - w.CloudCover*0.8)
	case ti.IsTwilight:
		l = 30 + uniform(src, 0, 70)
	default:
		l = 2 + uniform(src, 0, 15)
	}
	if d.Lampu {
		if ti.IsDayTime {
			l += 200
		} else {
			l += 500
		}
	}
	return l
}

func targetAirHumidity(temp float64, w WeatherState, d DeviceMirror) float64 {
	h := 90 - (temp-15)*1.8
	if w.IsRaining {
		h = math.Min(maxAirHumidity, h+25)
	}
	if d.Humidifier {
		if h < 50 {
			h += 25
		} else {
			h += 15
		}
	}
	if d.VentOpen() {
		outside := 65.0
		if w.IsRaining {
			outside = 85
		}
		h = h*0.7 + outside*0.3
	}
	if d.Pemanas {
		h -= 10
	}
	if d.Kipas {
		h -= 3
	}
	return common.Clamp(h, minAirHumidity, maxAirHumidity)
}

func targetSoilHumidity(prev, temp, air float64, w WeatherState, d DeviceMirror) float64 {
	s := prev
	if w.IsRaining {
		s += 0.8
	} else {
		s -= math.Max(0.1, (temp-20)*0.02+(100-air)*0.01)
	}
	if d.Humidifier {
		s += 0.3
	}
	if d.Pemanas {
		s -= 0.5
	}
	if d.VentOpen() {
		s -= 0.2
	}
	return common.Clamp(s, minSoilHumidity, maxSoilHumidity)
}

// NoiseLevel is the noise amplitude for the given speed preset.
func NoiseLevel(fastMode bool) float64 {
	if fastMode {
		return fastNoise
	}
	return normalNoise
}

// ComputeSample produces the sample for one tick and writes the soil humidity
// back into b so the next tick integrates from it.
func ComputeSample(ti TimeInfo, w WeatherState, d DeviceMirror, b *Baseline, fastMode bool, src RandSource, now time.Time) SensorSample {
	t := ComputeTargets(ti, w, d, *b, src)
	level := NoiseLevel(fastMode)
	noise := func(scale float64) float64 {
		return uniform(src, -1, 1) * level * scale
	}

	sample := SensorSample{
		Suhu:            common.Round(t.Suhu+noise(tempNoiseScale), 1),
		Cahaya:          math.Round(math.Max(0, t.Cahaya+noise(lightNoiseScale))),
		KelembapanUdara: common.Round(common.Clamp(t.KelembapanUdara+noise(airNoiseScale), minAirHumidity, maxAirHumidity), 1),
		KelembapanTanah: common.Round(common.Clamp(t.KelembapanTanah+noise(soilNoiseScale), minSoilHumidity, maxSoilHumidity), 1),
		Waktu:           now,
	}
	b.KelembapanTanah = sample.KelembapanTanah
	return sample
}
