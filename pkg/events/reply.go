package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

const replyLogPrefix = "events:reply"

// Reply is a phx_reply received outside the join handshake. The handshake
// consumes its own correlated reply before the loop starts; anything after
// that is logged and dropped.
type Reply struct {
	Ref     *string               `json:"ref" desc:"A reference identifier for the event." default:"null"`
	Topic   string                `json:"topic" desc:"The topic to which the event is associated."`
	Payload envelope.ReplyPayload `json:"payload"`
}

func (Reply) Description() string {
	return "Represents a Phoenix reply event that can either be a successful response or an error response."
}

// Run logs the stray reply.
func (e *Reply) Run(_ context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	slog.Debug(fmt.Sprintf("%s - unsolicited reply on %s (status=%s)", replyLogPrefix, e.Topic, e.Payload.Status))
	return nil, nil
}
