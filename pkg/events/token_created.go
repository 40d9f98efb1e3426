package events

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

// TokenCreated signals that the backend issued new token metadata for this
// session.
type TokenCreated struct {
	Ref     *string             `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string              `json:"topic" desc:"The topic to which the event is associated."`
	Payload TokenCreatedPayload `json:"payload" desc:"The payload containing the token information."`
}

// TokenCreatedPayload carries the issued token.
type TokenCreatedPayload struct {
	Token envelope.Token `json:"token" desc:"The token information."`
}

func (TokenCreatedPayload) Description() string {
	return "Represents the payload for a token event."
}

func (TokenCreated) Description() string {
	return "Represents an event indicating that a token has been created."
}

// Run merges the server-assigned token metadata, preserving the locally
// supplied secret value.
func (e *TokenCreated) Run(_ context.Context, conn capability.Connection, _ capability.Transport) (*capability.Result, error) {
	conn.MergeToken(e.Payload.Token)
	return nil, nil
}
