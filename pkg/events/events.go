// Package events implements the server-pushed event handlers dispatched off
// the receive loop. Handlers are constructed per inbound frame from the raw
// envelope (ref, topic and payload are their declared fields), validated,
// invoked once and discarded.
package events

import (
	"github.com/AdrianLSY/vera-go-service/pkg/broker"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

// NewRegistry builds the events-namespace registry. Every handler registers
// under its wire event name; the request handler closes over the broker so
// remote invocations resolve against the actions registry.
func NewRegistry(b *broker.Broker) *capability.Registry {
	r := capability.NewRegistry()
	r.RegisterAs(envelope.EventServiceUpdated, func() capability.Action { return &ServiceUpdated{} })
	r.RegisterAs(envelope.EventServiceDeleted, func() capability.Action { return &ServiceDeleted{} })
	r.RegisterAs(envelope.EventConsumersConnected, func() capability.Action { return &ConsumersConnected{} })
	r.RegisterAs(envelope.EventTokenCreated, func() capability.Action { return &TokenCreated{} })
	r.RegisterAs(envelope.EventTokenDeleted, func() capability.Action { return &TokenDeleted{} })
	r.RegisterAs(envelope.EventReply, func() capability.Action { return &Reply{} })
	r.RegisterAs(envelope.EventRequest, func() capability.Action { return &Request{broker: b} })
	return r
}
