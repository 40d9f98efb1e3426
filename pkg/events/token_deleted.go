package events

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

// TokenDeleted signals that the backend revoked this session's token
// metadata.
type TokenDeleted struct {
	Ref     *string             `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string              `json:"topic" desc:"The topic to which the event is associated."`
	Payload TokenDeletedPayload `json:"payload" desc:"The payload containing the token information."`
}

// TokenDeletedPayload carries the revoked token.
type TokenDeletedPayload struct {
	Token envelope.Token `json:"token" desc:"The token information."`
}

func (TokenDeletedPayload) Description() string {
	return "Represents the payload for a token event."
}

func (TokenDeleted) Description() string {
	return "Represents an event when a token has been deleted."
}

// Run clears token metadata; the secret value stays so the session can
// rejoin with it later.
func (e *TokenDeleted) Run(_ context.Context, conn capability.Connection, _ capability.Transport) (*capability.Result, error) {
	conn.ResetToken()
	return nil, nil
}
