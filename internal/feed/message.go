// Package feed decodes strafe and key messages and delivers them from
// websocket, stdin, tailed-file and demo sources.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/strafeval/internal/model"
)

// Event names on the wire.
const (
	EventStrafe    = "strafe"
	EventAPressed  = "a-pressed"
	EventAReleased = "a-released"
	EventDPressed  = "d-pressed"
	EventDReleased = "d-released"
	EventFire      = "fire"
)

var keyEvents = map[string]struct {
	key  model.Key
	down bool
}{
	EventAPressed:  {model.KeyLeft, true},
	EventAReleased: {model.KeyLeft, false},
	EventDPressed:  {model.KeyRight, true},
	EventDReleased: {model.KeyRight, false},
	EventFire:      {model.KeyFire, true},
}

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("empty message")

// Message carries either a classified strafe or a raw key event.
type Message struct {
	Strafe *model.StrafeEvent
	Key    *model.KeyEvent
}

// Source delivers messages until ctx is done or the input ends.
type Source interface {
	Run(ctx context.Context, out chan<- Message) error
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TS      *int64          `json:"ts,omitempty"`
}

// Decode parses one JSON message. Key events without a "ts" field are
// stamped with now. An object without "event" is read as a strafe payload.
func Decode(data []byte, now time.Time) (Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Message{}, ErrEmpty
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	switch env.Event {
	case "":
		return decodeStrafe(data)
	case EventStrafe:
		if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
			return Message{}, errors.New("strafe event without payload")
		}
		return decodeStrafe(env.Payload)
	}
	k, ok := keyEvents[env.Event]
	if !ok {
		return Message{}, fmt.Errorf("unknown event %q", env.Event)
	}
	at := now
	if env.TS != nil {
		at = time.UnixMicro(*env.TS)
	}
	return Message{Key: &model.KeyEvent{Key: k.key, Down: k.down, At: at}}, nil
}

func decodeStrafe(data []byte) (Message, error) {
	var ev model.StrafeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return Message{}, fmt.Errorf("failed to decode strafe payload: %w", err)
	}
	return Message{Strafe: &ev}, nil
}

// Encode renders a strafe event in the envelope form accepted by Decode.
func Encode(ev model.StrafeEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: EventStrafe, Payload: payload})
}

func send(ctx context.Context, out chan<- Message, msg Message) error {
	select {
	case out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
