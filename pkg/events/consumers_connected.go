package events

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
)

// ConsumersConnected signals that the number of consumers attached to the
// service changed.
type ConsumersConnected struct {
	Ref     *string                   `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string                    `json:"topic" desc:"The topic to which the event is associated."`
	Payload ConsumersConnectedPayload `json:"payload" desc:"The payload containing the number of consumers connected to the service."`
}

// ConsumersConnectedPayload carries the consumer count.
type ConsumersConnectedPayload struct {
	NumConsumers int `json:"num_consumers" desc:"The number of consumers connected to the service." constraints:"min=0"`
}

func (ConsumersConnectedPayload) Description() string {
	return "Represents the payload for a consumers connected event."
}

func (ConsumersConnected) Description() string {
	return "Represents an event indicating that the number of consumers connected to the service has changed."
}

// Run updates the session's consumer count.
func (e *ConsumersConnected) Run(_ context.Context, conn capability.Connection, _ capability.Transport) (*capability.Result, error) {
	conn.SetNumConsumers(e.Payload.NumConsumers)
	return nil, nil
}
