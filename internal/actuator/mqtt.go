package actuator

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"proxigesture.klederson.com/internal/gesture"
)

// mqttPublisher is the subset of mqtt.Client used here.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes gestures to a broker topic.
type MQTT struct {
	client mqttPublisher
	topic  string
	source string
	now    func() time.Time
}

// DialMQTT connects to broker and returns a publisher for topic.
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return newMQTT(c, topic, clientID), nil
}

func newMQTT(c mqttPublisher, topic, source string) *MQTT {
	return &MQTT{client: c, topic: topic, source: source, now: time.Now}
}

func (m *MQTT) Name() string { return "mqtt" }

// Actuate publishes g and waits for the broker or ctx.
func (m *MQTT) Actuate(ctx context.Context, g gesture.Gesture) error {
	payload, err := EncodeGesture(m.source, g, m.now())
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
