package greenhouse

import (
	"context"
	"log"
)

// LogObserver writes one log line per tick.
type LogObserver struct{}

func (LogObserver) OnTick(_ context.Context, r TickResult) {
	for _, e := range r.Errors {
		log.Printf("ERROR: simulator: tick %d stage=%s: %v", r.Seq, e.Stage, e.Err)
	}
	s := r.Sample
	log.Printf("simulator: tick %d persisted=%t suhu=%.1f°C cahaya=%.0f lux udara=%.1f%% tanah=%.1f%%",
		r.Seq, r.Persisted, s.Suhu, s.Cahaya, s.KelembapanUdara, s.KelembapanTanah)
}
