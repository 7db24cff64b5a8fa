package stream

import (
	"context"
	"log"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
	"github.com/i474232898/greenhouse-monitor/internal/scheduler"
)

// Bridge turns simulator ticks and scheduler changes into hub broadcasts.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// OnTick implements greenhouse.Observer. Only persisted samples are streamed.
func (b *Bridge) OnTick(_ context.Context, r greenhouse.TickResult) {
	if !r.Persisted {
		return
	}
	b.broadcast(TypeSensorSample, r)
}

// OnStatus is registered with scheduler.OnChange.
func (b *Bridge) OnStatus(st scheduler.Status) {
	b.broadcast(TypeSimState, st)
}

func (b *Bridge) broadcast(msgType string, payload any) {
	if b.hub.ClientCount() == 0 {
		return
	}
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		log.Printf("ERROR: stream: marshal %s: %v", msgType, err)
		return
	}
	b.hub.Broadcast(msgType, msg)
}
