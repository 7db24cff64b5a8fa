package greenhouse

import (
	"math"

	"github.com/i474232898/greenhouse-monitor/internal/common"
)

// ExpectedValues are noise-free reference values shown next to live readings.
type ExpectedValues struct {
	Suhu            float64 `json:"suhu"`
	Cahaya          float64 `json:"cahaya"`
	KelembapanUdara float64 `json:"kelembapan_udara"`
	KelembapanTanah float64 `json:"kelembapan_tanah"`
}

// CalculateExpectedValues is a simplified estimate of the environment model.
// Its humidity slope (2) and light cloud factor (0.7) differ from ComputeTargets.
// TODO: reconcile these constants with ComputeTargets once the dashboard owners pick one model.
func CalculateExpectedValues(ti TimeInfo, w WeatherState, d DeviceMirror, b Baseline) ExpectedValues {
	temp := w.OutsideTemp
	if ti.IsDayTime {
		temp += math.Sin((ti.TimeDecimal-6)*math.Pi/12) * 10
	} else {
		temp -= 8
	}
	if w.IsRaining {
		temp -= 4
	}
	if d.Pemanas {
		temp += 5
	}
	if d.VentOpen() {
		temp += (w.OutsideTemp - temp) * 0.3
	}
	if d.Kipas {
		temp -= 1.5
	}

	var light float64
	switch {
	case ti.IsDayTime:
		light = (800 + math.Sin(ti.DayProgress*math.Pi)*400) * (1 - w.CloudCover*0.7)
	case ti.IsTwilight:
		light = 65
	default:
		light = 10
	}
	if d.Lampu {
		if ti.IsDayTime {
			light += 200
		} else {
			light += 500
		}
	}

	air := 90 - (temp-15)*2
	if w.IsRaining {
		air = math.Min(maxAirHumidity, air+25)
	}
	if d.Humidifier {
		air += 20
	}

	return ExpectedValues{
		Suhu:            common.Round(temp, 1),
		Cahaya:          math.Round(light),
		KelembapanUdara: common.Round(common.Clamp(air, minAirHumidity, maxAirHumidity), 1),
		KelembapanTanah: common.Round(b.KelembapanTanah, 1),
	}
}
