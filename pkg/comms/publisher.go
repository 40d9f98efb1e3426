package comms

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"
)

const publisherLogPrefix = "comms:publisher"

// DefaultEventPrefix is the subject prefix inbound frames are mirrored
// under; the event name becomes the final token.
const DefaultEventPrefix = "vera.events"

// PublisherOpts configures Publisher. Nil or zero values use defaults.
type PublisherOpts struct {
	// EventPrefix overrides the subject prefix (e.g. from COMMS_EVENT_PREFIX).
	EventPrefix string
}

// Publisher mirrors decoded channel frames onto COMMS subjects so other
// processes can observe backend activity without a websocket of their own.
type Publisher struct {
	nc          *comms.Conn
	eventPrefix string
}

// NewPublisher creates a Publisher. Pass nil for opts to use defaults.
func NewPublisher(nc *comms.Conn, opts *PublisherOpts) *Publisher {
	prefix := DefaultEventPrefix
	if opts != nil && opts.EventPrefix != "" {
		prefix = opts.EventPrefix
	}
	return &Publisher{nc: nc, eventPrefix: prefix}
}

// PublishEvent publishes the raw frame under "<prefix>.<event>".
func (p *Publisher) PublishEvent(_ context.Context, event string, frame []byte) error {
	subject := BuildEventSubject(p.eventPrefix, event)
	if err := p.nc.Publish(subject, frame); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", publisherLogPrefix, subject, err))
		return fmt.Errorf("%s - publish %s: %w", publisherLogPrefix, subject, err)
	}
	slog.Debug(fmt.Sprintf("%s - Published %s", publisherLogPrefix, subject))
	return nil
}

// BuildEventSubject builds the subject one event is mirrored under.
func BuildEventSubject(prefix, event string) string {
	return fmt.Sprintf("%s.%s", prefix, event)
}
