package actuator

import (
	"encoding/json"
	"time"

	"proxigesture.klederson.com/internal/gesture"
)

// Message is the JSON document published for each gesture.
type Message struct {
	Source string    `json:"source"`
	Seq    int       `json:"seq"`
	At     int64     `json:"at"`
	Events []int64   `json:"events"`
	Time   time.Time `json:"time"`
}

// EncodeGesture builds the published payload for g.
func EncodeGesture(source string, g gesture.Gesture, now time.Time) ([]byte, error) {
	return json.Marshal(Message{
		Source: source,
		Seq:    g.Seq,
		At:     g.At,
		Events: g.Events,
		Time:   now.UTC(),
	})
}
