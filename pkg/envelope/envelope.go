// Package envelope defines the wire envelope exchanged with the Plugboard
// backend and the payload variants it discriminates.
package envelope

import (
	"encoding/json"
	"fmt"
)

const logPrefix = "envelope:envelope"

// Event names carried in the envelope's "event" field. The payload shape is
// fully determined by the event; an envelope whose event has no registered
// variant is invalid.
const (
	EventJoin               = "phx_join"
	EventReply              = "phx_reply"
	EventServiceUpdated     = "service_updated"
	EventServiceDeleted     = "service_deleted"
	EventConsumersConnected = "consumers_connected"
	EventTokenCreated       = "token_created"
	EventTokenDeleted       = "token_deleted"
	EventRequest            = "request"
	EventResponse           = "response"
)

// Reply statuses sub-discriminating a phx_reply payload.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope is the outer wire message.
type Envelope struct {
	Ref     *string         `json:"ref"`
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a raw frame into an Envelope. The payload is left raw; the
// caller decodes it once the event variant is known.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s - failed to decode frame: %w", logPrefix, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%s - frame has no event discriminator", logPrefix)
	}
	return &env, nil
}

// Encode serializes an Envelope for the wire.
func Encode(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode frame: %w", logPrefix, err)
	}
	return data, nil
}

// MarshalPayload serializes a payload value into the raw form carried by an
// Envelope.
func MarshalPayload(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode payload: %w", logPrefix, err)
	}
	return data, nil
}
