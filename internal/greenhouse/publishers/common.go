package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

// Encoding selects the wire format of published samples.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by NewPublisher.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

var (
	errCircuitOpen     = errors.New("circuit breaker open")
	errInvalidConfig   = errors.New("invalid backoff configuration")
	errUnknownEncoding = errors.New("unknown encoding")
)

// Sender delivers one encoded message to a transport.
type Sender interface {
	Send(ctx context.Context, key, payload []byte) error
}

// SampleMessage is the published form of a tick.
type SampleMessage struct {
	Seq       uint64                  `json:"seq"`
	Persisted bool                    `json:"persisted"`
	Sample    greenhouse.SensorSample `json:"sample"`
}

// Encode marshals v in the given encoding. CBOR reuses the json field names.
func Encode(enc Encoding, v any) ([]byte, error) {
	switch enc {
	case EncodingJSON, "":
		return json.Marshal(v)
	case EncodingCBOR:
		return cbor.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEncoding, enc)
	}
}

// Publisher forwards every tick's sample to a Sender behind a circuit breaker.
// It implements greenhouse.Observer.
type Publisher struct {
	name    string
	sender  Sender
	enc     Encoding
	backoff BackoffConfig
	timeout time.Duration
	circuit *gobreaker.CircuitBreaker
}

// NewPublisher wraps sender with retries and a circuit breaker named name.
func NewPublisher(name string, sender Sender, enc Encoding) *Publisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("publisher %s: circuit %s -> %s", name, from, to)
		},
	})

	return &Publisher{
		name:    name,
		sender:  sender,
		enc:     enc,
		backoff: DefaultBackoff,
		timeout: 5 * time.Second,
		circuit: cb,
	}
}

// Name returns the publisher name.
func (p *Publisher) Name() string {
	return p.name
}

// OnTick publishes persisted samples. Failures are logged and never reach the tick.
func (p *Publisher) OnTick(ctx context.Context, r greenhouse.TickResult) {
	if !r.Persisted {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.Publish(ctx, r); err != nil {
		log.Printf("ERROR: publisher %s: tick %d: %v", p.name, r.Seq, err)
	}
}

// Publish encodes r and sends it, keyed by the sample id.
func (p *Publisher) Publish(ctx context.Context, r greenhouse.TickResult) error {
	payload, err := Encode(p.enc, SampleMessage{Seq: r.Seq, Persisted: r.Persisted, Sample: r.Sample})
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	key := []byte(r.Sample.ID)
	return sendWithResilience(ctx, p.backoff, p.circuit, func(ctx context.Context) error {
		return p.sender.Send(ctx, key, payload)
	})
}

// sendWithResilience runs send with retries, exponential backoff,
// and a circuit breaker.
func sendWithResilience(
	ctx context.Context,
	cfg BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	send func(ctx context.Context) error,
) error {
	if cfg.MaxRetries < 0 || cfg.InitialInterval <= 0 {
		return errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := cb.Execute(func() (interface{}, error) {
			return nil, send(ctx)
		})
		if err == nil {
			return nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if attempt >= cfg.MaxRetries {
			return err
		}

		delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.MaxInterval && cfg.MaxInterval > 0 {
			delay = cfg.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
