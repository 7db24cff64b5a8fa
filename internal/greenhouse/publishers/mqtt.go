package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/validator/v10"

	"github.com/i474232898/greenhouse-monitor/internal/common"
	"github.com/i474232898/greenhouse-monitor/internal/greenhouse"
)

const mqttWaitTimeout = 5 * time.Second

var errMQTTTimeout = errors.New("mqtt operation timed out")

var validate = validator.New()

// DialMQTT connects to broker with auto-reconnect enabled.
func DialMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttWaitTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Printf("mqtt: connected to %s", broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("ERROR: mqtt: connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttWaitTimeout) {
		return nil, fmt.Errorf("connect %s: %w", broker, errMQTTTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}
	return client, nil
}

// MQTTSender publishes to a fixed topic.
type MQTTSender struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTSender publishes to topic at QoS 1.
func NewMQTTSender(client mqtt.Client, topic string) *MQTTSender {
	return &MQTTSender{client: client, topic: topic, qos: 1}
}

// Send publishes payload. MQTT has no message key, so key is ignored.
func (m *MQTTSender) Send(ctx context.Context, _ []byte, payload []byte) error {
	token := m.client.Publish(m.topic, m.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeviceSaver persists device records.
type DeviceSaver interface {
	SaveDevices(ctx context.Context, state greenhouse.DeviceState) (greenhouse.DeviceState, error)
}

// devicePayload accepts booleans plus a vent value in either buka/tutup or
// open/close vocabulary. The vent is required.
type devicePayload struct {
	Lampu      bool   `json:"lampu"`
	Ventilasi  string `json:"ventilasi"`
	Humidifier bool   `json:"humidifier"`
	Kipas      bool   `json:"kipas"`
	Pemanas    bool   `json:"pemanas"`
}

// deviceRecord is a payload after vent normalisation.
type deviceRecord struct {
	Ventilasi greenhouse.Vent `validate:"required,oneof=buka tutup"`
}

// DeviceSubscriber stores device states reported over MQTT so the next tick
// picks them up.
type DeviceSubscriber struct {
	saver DeviceSaver
}

// NewDeviceSubscriber creates a subscriber that saves through saver.
func NewDeviceSubscriber(saver DeviceSaver) *DeviceSubscriber {
	return &DeviceSubscriber{saver: saver}
}

// Subscribe registers the subscriber on topic.
func (d *DeviceSubscriber) Subscribe(client mqtt.Client, topic string) error {
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), mqttWaitTimeout)
		defer cancel()
		if _, err := d.Handle(ctx, msg.Payload()); err != nil {
			log.Printf("ERROR: mqtt: device message on %s: %v", msg.Topic(), err)
		}
	})
	if !token.WaitTimeout(mqttWaitTimeout) {
		return fmt.Errorf("subscribe %s: %w", topic, errMQTTTimeout)
	}
	return token.Error()
}

// Handle decodes one device message and saves it. Messages whose vent value is
// missing or unrecognised are rejected without saving.
func (d *DeviceSubscriber) Handle(ctx context.Context, payload []byte) (greenhouse.DeviceState, error) {
	var p devicePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return greenhouse.DeviceState{}, fmt.Errorf("decode device payload: %w", err)
	}

	vent := normalizeVent(p.Ventilasi)
	if err := validate.Struct(deviceRecord{Ventilasi: vent}); err != nil {
		return greenhouse.DeviceState{}, fmt.Errorf("invalid ventilasi %q: %w", p.Ventilasi, err)
	}

	return d.saver.SaveDevices(ctx, greenhouse.DeviceState{
		Lampu:      p.Lampu,
		Ventilasi:  vent,
		Humidifier: p.Humidifier,
		Kipas:      p.Kipas,
		Pemanas:    p.Pemanas,
	})
}

// normalizeVent maps controller vocabulary onto buka/tutup. Unknown values
// come back empty.
func normalizeVent(v string) greenhouse.Vent {
	switch {
	case common.HasAny(v, string(greenhouse.VentOpen), "open"):
		return greenhouse.VentOpen
	case common.HasAny(v, string(greenhouse.VentClosed), "close"):
		return greenhouse.VentClosed
	default:
		return ""
	}
}
