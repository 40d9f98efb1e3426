package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

const serviceDeletedLogPrefix = "events:service_deleted"

// ServiceDeleted signals that the attached service was removed. The session
// cannot outlive its service, so the handler also shuts the loop down.
type ServiceDeleted struct {
	Ref     *string               `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string                `json:"topic" desc:"The topic to which the event is associated."`
	Payload ServiceDeletedPayload `json:"payload" desc:"The payload containing the service information that was deleted."`
}

// ServiceDeletedPayload carries the deleted service record.
type ServiceDeletedPayload struct {
	Service envelope.Service `json:"service" desc:"The service information that was deleted."`
}

func (ServiceDeletedPayload) Description() string {
	return "Represents the payload for a service deletion event."
}

func (ServiceDeleted) Description() string {
	return "Represents an event indicating that a service has been deleted."
}

// Run clears the session's service and stops the receive loop.
func (e *ServiceDeleted) Run(_ context.Context, conn capability.Connection, _ capability.Transport) (*capability.Result, error) {
	slog.Info(fmt.Sprintf("%s - service %d deleted, shutting down session", serviceDeletedLogPrefix, e.Payload.Service.ID))
	conn.SetService(nil)
	conn.Shutdown()
	return nil, nil
}
