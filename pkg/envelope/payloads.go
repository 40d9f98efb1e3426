package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/AdrianLSY/vera-go-service/pkg/schema"
)

// JoinPayload is the outgoing phx_join payload: the session token plus the
// descriptor set of every action this client can run on the remote's behalf.
type JoinPayload struct {
	Token   string                       `json:"token" desc:"The token to use for authentication."`
	Actions map[string]schema.Descriptor `json:"actions" desc:"The actions that the client can perform."`
}

// Description implements the describable contract for nested descriptors.
func (JoinPayload) Description() string {
	return "Represents the payload for a Phoenix join event."
}

// ReplyPayload is the phx_reply payload. Status sub-discriminates the raw
// response into ReplyOK or ReplyError.
type ReplyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// ReplyOK is the response of a successful phx_reply.
type ReplyOK struct {
	Service      Service `json:"service"`
	Token        Token   `json:"token"`
	NumConsumers int     `json:"num_consumers"`
}

// ReplyError is the response of a rejected phx_reply.
type ReplyError struct {
	Reason string `json:"reason"`
}

// OK decodes the reply as a success response.
func (p *ReplyPayload) OK() (*ReplyOK, error) {
	if p.Status != StatusOK {
		return nil, fmt.Errorf("%s - reply status is %q, not %q", logPrefix, p.Status, StatusOK)
	}
	var ok ReplyOK
	if err := json.Unmarshal(p.Response, &ok); err != nil {
		return nil, fmt.Errorf("%s - failed to decode ok reply: %w", logPrefix, err)
	}
	return &ok, nil
}

// Err decodes the reply as an error response.
func (p *ReplyPayload) Err() (*ReplyError, error) {
	if p.Status != StatusError {
		return nil, fmt.Errorf("%s - reply status is %q, not %q", logPrefix, p.Status, StatusError)
	}
	var re ReplyError
	if err := json.Unmarshal(p.Response, &re); err != nil {
		return nil, fmt.Errorf("%s - failed to decode error reply: %w", logPrefix, err)
	}
	return &re, nil
}

// RequestPayload is the incoming request payload asking this client to run
// one of its registered actions.
type RequestPayload struct {
	Action      string          `json:"action" desc:"The name of the action to run."`
	Fields      json.RawMessage `json:"fields" desc:"The fields to pass to the action."`
	ResponseRef *string         `json:"response_ref" desc:"The reference to send a response for the request." default:"null"`
}

// Description implements the describable contract for nested descriptors.
func (RequestPayload) Description() string {
	return "Represents the payload for a request event."
}
