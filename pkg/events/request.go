package events

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/broker"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

// Request asks this client to run one of its registered actions on the
// remote peer's behalf. The handler delegates to the request broker, which
// owns resolution, validation and the correlated reply.
type Request struct {
	Ref     *string                  `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string                   `json:"topic" desc:"The topic to which the event is associated."`
	Payload envelope.RequestPayload  `json:"payload" desc:"The payload containing the request information."`
	broker  *broker.Broker
}

func (Request) Description() string {
	return "Represents a request event to be handled by the corresponding action runner."
}

// Run hands the request to the broker; the broker replies on the same topic
// when a response_ref is present.
func (e *Request) Run(ctx context.Context, conn capability.Connection, tr capability.Transport) (*capability.Result, error) {
	return nil, e.broker.Handle(ctx, conn, tr, e.Topic, &e.Payload)
}
