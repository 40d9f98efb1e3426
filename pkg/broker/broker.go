// Package broker resolves inbound invocation requests against the actions
// registry and emits correlated responses.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
	"github.com/AdrianLSY/vera-go-service/pkg/schema"
)

const logPrefix = "broker:broker"

// Broker routes request payloads to registered actions.
type Broker struct {
	actions *capability.Registry
}

// New creates a Broker over the actions registry.
func New(actions *capability.Registry) *Broker {
	return &Broker{actions: actions}
}

// Handle resolves and runs the requested action, then sends the correlated
// response on the request's topic. A nil response_ref means fire-and-forget:
// the action still runs, but no reply frame is produced. Protocol-level
// failures are folded into the response status; only a transport write
// failure is returned.
func (b *Broker) Handle(ctx context.Context, conn capability.Connection, tr capability.Transport, topic string, req *envelope.RequestPayload) error {
	result := b.Dispatch(ctx, conn, tr, req)

	if req.ResponseRef == nil {
		slog.Debug(fmt.Sprintf("%s - no response_ref for action %q, dropping result", logPrefix, req.Action))
		return nil
	}

	payload, err := envelope.MarshalPayload(result)
	if err != nil {
		return fmt.Errorf("%s - encode result for action %q: %w", logPrefix, req.Action, err)
	}
	return tr.Send(ctx, &envelope.Envelope{
		Ref:     req.ResponseRef,
		Topic:   topic,
		Event:   envelope.EventResponse,
		Payload: payload,
	})
}

// Dispatch resolves the action, constructs and validates an instance from
// the request's field map, and runs it. Every failure mode maps to a Result;
// an action can never take the connection loop down.
func (b *Broker) Dispatch(ctx context.Context, conn capability.Connection, tr capability.Transport, req *envelope.RequestPayload) *capability.Result {
	factory, ok := b.actions.Lookup(req.Action)
	if !ok {
		slog.Warn(fmt.Sprintf("%s - unknown action %q", logPrefix, req.Action))
		return &capability.Result{
			StatusCode: 404,
			Message:    fmt.Sprintf("Unknown action: %s", req.Action),
		}
	}

	action := factory()
	if len(req.Fields) > 0 {
		if err := json.Unmarshal(req.Fields, action); err != nil {
			return &capability.Result{
				StatusCode: 400,
				Message:    fmt.Sprintf("Invalid fields for action %s: %v", req.Action, err),
			}
		}
	}
	if err := schema.Validate(action); err != nil {
		return &capability.Result{StatusCode: 400, Message: err.Error()}
	}

	return b.run(ctx, action, conn, tr, req.Action)
}

// run invokes the action, converting a returned error or a recovered panic
// into a 500 result.
func (b *Broker) run(ctx context.Context, action capability.Action, conn capability.Connection, tr capability.Transport, name string) (result *capability.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - action %q panicked: %v", logPrefix, name, r))
			result = &capability.Result{StatusCode: 500, Message: "Internal server error"}
		}
	}()

	res, err := action.Run(ctx, conn, tr)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - action %q failed: %v", logPrefix, name, err))
		return &capability.Result{StatusCode: 500, Message: "Internal server error"}
	}
	if res == nil {
		res = &capability.Result{StatusCode: 200}
	}
	return res
}
