// Package capability defines the contract shared by every invocable unit:
// a described, validated record with a single Run method. The same shape
// serves two call sites: events dispatched directly off the receive loop and
// actions dispatched through the request broker; only the owning namespace
// differs.
package capability

import (
	"context"
	"encoding/json"

	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
	"github.com/AdrianLSY/vera-go-service/pkg/schema"
)

// Result is the standard outcome returned by Action.Run. It doubles as the
// wire payload of a response envelope.
type Result struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Fields     any    `json:"fields"`
}

// MarshalJSON keeps the wire contract: message and fields are nullable,
// never absent. An unset message serializes as null, not "".
func (r Result) MarshalJSON() ([]byte, error) {
	var msg *string
	if r.Message != "" {
		msg = &r.Message
	}
	return json.Marshal(struct {
		StatusCode int     `json:"status_code"`
		Message    *string `json:"message"`
		Fields     any     `json:"fields"`
	}{r.StatusCode, msg, r.Fields})
}

// Connection gives a running capability access to the session state owned by
// the connection state machine. Mutators exist because specific inbound
// events are the only legitimate writers of that state.
type Connection interface {
	// Service returns the current service, or nil before the handshake
	// completes.
	Service() *envelope.Service
	SetService(svc *envelope.Service)

	// Token returns a copy of the session token.
	Token() envelope.Token
	// MergeToken overlays server-assigned token metadata while preserving
	// the locally supplied secret value.
	MergeToken(t envelope.Token)
	// ResetToken clears token metadata, keeping only the secret value.
	ResetToken()

	NumConsumers() int
	SetNumConsumers(n int)

	Connected() bool
	// Shutdown clears the connected flag; the receive loop stops after the
	// current frame finishes processing.
	Shutdown()
}

// Transport sends frames to the remote peer. Implementations must be safe
// for concurrent callers; writes serialize through a single writer.
type Transport interface {
	Send(ctx context.Context, env *envelope.Envelope) error
}

// Action is the capability contract: a pure description plus a single
// invocation. Instances are constructed per inbound frame, validated,
// invoked once and discarded.
type Action interface {
	schema.Describable
	Run(ctx context.Context, conn Connection, tr Transport) (*Result, error)
}

// Factory produces a fresh, zero-valued Action ready to be populated from
// an untyped field map.
type Factory func() Action
