package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Wire events exchanged on a chat socket. The protocol is a closed set of
// tagged variants: clients may only send EventSend; the server emits
// EventDeliver and EventError. Anything else is rejected at the boundary.
const (
	EventSend    = "send"
	EventDeliver = "deliver"
	EventError   = "error"
)

type Event struct {
	Type    string   `json:"type"`
	Content string   `json:"content,omitempty"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

var ErrMalformedEvent = errors.New("malformed event")

// DecodeClientEvent parses an inbound frame, accepting only well-formed
// client events. Unknown fields and unknown types are errors, not ignored.
func DecodeClientEvent(data []byte) (*Event, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var ev Event
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch ev.Type {
	case EventSend:
		if ev.Content == "" {
			return nil, fmt.Errorf("%w: send event requires content", ErrMalformedEvent)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported event type %q", ErrMalformedEvent, ev.Type)
	}
	return &ev, nil
}

func DeliverEvent(msg *Message) *Event {
	return &Event{Type: EventDeliver, Message: msg}
}

func ErrorEvent(reason string) *Event {
	return &Event{Type: EventError, Error: reason}
}
