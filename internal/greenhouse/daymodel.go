package greenhouse

import (
	"time"

	"github.com/i474232898/greenhouse-monitor/internal/common"
)

// ComputeTimeInfo classifies now (already in the reference timezone).
func ComputeTimeInfo(now time.Time) TimeInfo {
	hour, minute := now.Hour(), now.Minute()
	td := float64(hour) + float64(minute)/60

	isDay := td >= 6 && td <= 18
	isTwilight := (td >= 5 && td < 7) || (td >= 18 && td <= 20)

	return TimeInfo{
		Hour:        hour,
		Minute:      minute,
		TimeDecimal: td,
		IsDayTime:   isDay,
		// Twilight hours outside the day window are never night.
		IsNight:        td < 5 || td > 20,
		IsTwilight:     isTwilight,
		DayProgress:    common.Clamp((td-6)/12, 0, 1),
		IsEarlyMorning: td >= 5 && td < 8,
		IsMidDay:       td >= 11 && td <= 15,
		IsEvening:      td >= 17 && td <= 19,
	}
}
