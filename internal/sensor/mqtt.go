package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"proxigesture.klederson.com/internal/clock"
)

// MQTTOptions configures a remote sensor feed.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Modality Modality
	MaxRange float64
}

// MQTTProvider subscribes to a topic where a remote board publishes raw
// samples. It reports whichever modality it is configured for.
type MQTTProvider struct {
	opts  MQTTOptions
	clock clock.Clock

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTProvider creates a provider for opts.
func NewMQTTProvider(opts MQTTOptions, c clock.Clock) *MQTTProvider {
	return &MQTTProvider{opts: opts, clock: c}
}

func (p *MQTTProvider) Name() string       { return "mqtt:" + p.opts.Topic }
func (p *MQTTProvider) Modality() Modality { return p.opts.Modality }
func (p *MQTTProvider) MaxRange() float64  { return p.opts.MaxRange }

// Available reports whether a broker and topic are configured.
func (p *MQTTProvider) Available() bool {
	return p.opts.Broker != "" && p.opts.Topic != ""
}

// Start connects to the broker and subscribes to the sample topic.
func (p *MQTTProvider) Start(ctx context.Context, emit func(Sample)) error {
	opts := mqtt.NewClientOptions().AddBroker(p.opts.Broker).SetClientID(p.opts.ClientID)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", p.opts.Broker, token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		// Undecodable payloads become empty samples and are counted as
		// malformed downstream.
		values, _ := DecodeSamplePayload(msg.Payload())
		emit(Sample{Timestamp: p.clock.NowMillis(), Values: values})
	}
	if token := c.Subscribe(p.opts.Topic, 0, handler); token.Wait() && token.Error() != nil {
		c.Disconnect(250)
		return fmt.Errorf("mqtt subscribe %s: %w", p.opts.Topic, token.Error())
	}

	p.mu.Lock()
	p.client = c
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop unsubscribes and disconnects.
func (p *MQTTProvider) Stop() error {
	p.mu.Lock()
	c := p.client
	p.client = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}
	c.Unsubscribe(p.opts.Topic).Wait()
	c.Disconnect(250)
	return nil
}

// samplePayload accepts the shapes remote boards commonly publish.
type samplePayload struct {
	Values   []float64 `json:"values"`
	Distance *float64  `json:"distance"`
	Lux      *float64  `json:"lux"`
	X        *float64  `json:"x"`
	Y        *float64  `json:"y"`
	Z        *float64  `json:"z"`
}

// DecodeSamplePayload parses a sample message: a bare number, or a JSON object
// with "values", "distance", "lux" or "x"/"y"/"z".
func DecodeSamplePayload(b []byte) ([]float64, error) {
	text := strings.TrimSpace(string(b))
	if text == "" {
		return nil, errors.New("empty payload")
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return []float64{v}, nil
	}

	var p samplePayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("decode sample payload: %w", err)
	}
	switch {
	case len(p.Values) > 0:
		return p.Values, nil
	case p.Distance != nil:
		return []float64{*p.Distance}, nil
	case p.Lux != nil:
		return []float64{*p.Lux}, nil
	case p.X != nil && p.Y != nil && p.Z != nil:
		return []float64{*p.X, *p.Y, *p.Z}, nil
	default:
		return nil, errors.New("sample payload has no recognised fields")
	}
}
