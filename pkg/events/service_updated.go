package events

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

// ServiceUpdated signals that the attached service's record changed.
type ServiceUpdated struct {
	Ref     *string               `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string                `json:"topic" desc:"The topic to which the event is associated."`
	Payload ServiceUpdatedPayload `json:"payload" desc:"The payload containing updated service information."`
}

// ServiceUpdatedPayload carries the updated service record.
type ServiceUpdatedPayload struct {
	Service envelope.Service `json:"service" desc:"The updated service information."`
}

func (ServiceUpdatedPayload) Description() string {
	return "Represents the payload for a service update event."
}

func (ServiceUpdated) Description() string {
	return "Represents an event indicating that a service has been updated."
}

// Run replaces the session's service record.
func (e *ServiceUpdated) Run(_ context.Context, conn capability.Connection, _ capability.Transport) (*capability.Result, error) {
	svc := e.Payload.Service
	conn.SetService(&svc)
	return nil, nil
}
