// Package client maintains the websocket session with the backend: it
// dials, joins the service channel, and runs the receive loop that feeds
// inbound frames to the registered event handlers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
	"github.com/AdrianLSY/vera-go-service/pkg/schema"
)

const logPrefix = "client:client"

// joinRef is the ref of the channel join envelope; the backend echoes it
// back on the matching phx_reply.
const joinRef = "1"

// State tracks where the session is in its lifecycle.
type State int32

const (
	Disconnected State = iota
	Connecting
	Joining
	Active
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Joining:
		return "joining"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// EventSink receives every successfully decoded inbound frame after its
// handler has run. Implementations fan the frame out to interested
// consumers; a nil-safe no-op sink is the default.
type EventSink interface {
	PublishEvent(ctx context.Context, event string, frame []byte) error
}

type noopSink struct{}

func (noopSink) PublishEvent(context.Context, string, []byte) error { return nil }

// Options configure a Client. Zero values fall back to the defaults
// applied in New.
type Options struct {
	// Topic is the channel topic joined after the socket opens.
	Topic string
	// ProtocolVersion is sent as the vsn query parameter on the dial URL.
	ProtocolVersion string
	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration
	// PurgeOnClose clears the session state (service, token, consumer
	// count) when the connection shuts down.
	PurgeOnClose bool
	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
	// Sink receives inbound frames after dispatch.
	Sink EventSink
}

// Client is the long-lived connection to the backend. It implements
// capability.Connection so event handlers and actions can read and
// mutate the session state it guards.
type Client struct {
	events  *capability.Registry
	actions *capability.Registry
	opts    Options

	state     atomic.Int32
	connected atomic.Bool
	tr        *transport

	mu           sync.RWMutex
	service      *envelope.Service
	token        envelope.Token
	numConsumers int
}

// New builds a Client around an event registry (inbound dispatch) and an
// action registry (advertised on join).
func New(events, actions *capability.Registry, opts Options) *Client {
	if opts.Topic == "" {
		opts.Topic = "service"
	}
	if opts.ProtocolVersion == "" {
		opts.ProtocolVersion = "2.0.0"
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Sink == nil {
		opts.Sink = noopSink{}
	}
	return &Client{events: events, actions: actions, opts: opts}
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Connect dials the backend, joins the channel, and blocks running the
// receive loop until the connection closes or ctx is cancelled. It is
// idempotent: a second call while a session is live returns immediately.
func (c *Client) Connect(ctx context.Context, wsURL, token string) error {
	if !c.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		slog.Debug(fmt.Sprintf("%s - connect ignored, session already live", logPrefix), "state", c.State().String())
		return nil
	}
	defer c.teardown()

	dialURL, err := c.buildURL(wsURL)
	if err != nil {
		return err
	}

	conn, _, err := c.opts.Dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("%s - dial %s: %w", logPrefix, wsURL, err)
	}
	c.tr = newTransport(conn, c.opts.WriteTimeout)
	c.connected.Store(true)

	// Unblock the read loop when the caller cancels.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			c.Shutdown()
		case <-watchDone:
		}
	}()

	c.state.Store(int32(Joining))
	if err := c.join(ctx, token); err != nil {
		return err
	}
	if err := c.awaitJoinReply(ctx); err != nil {
		return err
	}
	c.state.Store(int32(Active))
	slog.Info(fmt.Sprintf("%s - channel joined", logPrefix), "topic", c.opts.Topic)

	return c.loop(ctx)
}

// Close shuts the connection down from outside the receive loop.
func (c *Client) Close() error {
	c.Shutdown()
	return nil
}

func (c *Client) buildURL(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("%s - parse url %q: %w", logPrefix, wsURL, err)
	}
	q := u.Query()
	q.Set("vsn", c.opts.ProtocolVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) join(ctx context.Context, token string) error {
	// The join credential is the session secret; the backend never echoes
	// it back, so it is recorded before any token metadata arrives.
	c.mu.Lock()
	c.token.Value = &token
	c.mu.Unlock()

	actions, err := c.actions.Describe()
	if err != nil {
		return fmt.Errorf("%s - describe actions: %w", logPrefix, err)
	}
	payload, err := envelope.MarshalPayload(envelope.JoinPayload{Token: token, Actions: actions})
	if err != nil {
		return fmt.Errorf("%s - marshal join payload: %w", logPrefix, err)
	}
	ref := joinRef
	env := &envelope.Envelope{
		Ref:     &ref,
		Topic:   c.opts.Topic,
		Event:   envelope.EventJoin,
		Payload: payload,
	}
	if err := c.tr.Send(ctx, env); err != nil {
		return fmt.Errorf("%s - send join: %w", logPrefix, err)
	}
	return nil
}

// awaitJoinReply reads frames until the phx_reply matching the join ref
// arrives. Other frames received in the meantime are dispatched normally.
func (c *Client) awaitJoinReply(ctx context.Context) error {
	for {
		raw, env, err := c.read()
		if err != nil {
			return fmt.Errorf("%s - await join reply: %w", logPrefix, err)
		}
		if env == nil {
			continue
		}
		if env.Event != envelope.EventReply || env.Ref == nil || *env.Ref != joinRef {
			c.dispatch(ctx, raw, env)
			continue
		}

		var reply envelope.ReplyPayload
		if err := json.Unmarshal(env.Payload, &reply); err != nil {
			return fmt.Errorf("%s - decode join reply: %w", logPrefix, err)
		}
		if reply.Status != envelope.StatusOK {
			replyErr, err := reply.Err()
			if err != nil {
				return fmt.Errorf("%s - decode join error: %w", logPrefix, err)
			}
			return fmt.Errorf("%s - join rejected: %s", logPrefix, replyErr.Reason)
		}
		ok, err := reply.OK()
		if err != nil {
			return fmt.Errorf("%s - decode join reply: %w", logPrefix, err)
		}
		c.SetService(&ok.Service)
		c.SetNumConsumers(ok.NumConsumers)
		c.MergeToken(ok.Token)
		return nil
	}
}

// loop is the single reader: one frame at a time, decoded, dispatched,
// then handed to the sink. Protocol errors are logged and skipped; only
// a read failure or a shutdown ends the loop.
func (c *Client) loop(ctx context.Context) error {
	for c.Connected() {
		raw, env, err := c.read()
		if err != nil {
			if !c.Connected() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s - read frame: %w", logPrefix, err)
		}
		if env == nil {
			continue
		}
		c.dispatch(ctx, raw, env)
		if err := c.opts.Sink.PublishEvent(ctx, env.Event, raw); err != nil {
			slog.Warn(fmt.Sprintf("%s - publish event", logPrefix), "event", env.Event, "error", err)
		}
	}
	return nil
}

// read pulls one frame off the socket. A nil envelope with nil error
// means the frame was malformed and should be skipped.
func (c *Client) read() ([]byte, *envelope.Envelope, error) {
	_, raw, err := c.tr.conn.ReadMessage()
	if err != nil {
		return nil, nil, err
	}
	env, err := envelope.Decode(raw)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - drop malformed frame", logPrefix), "error", err)
		return nil, nil, nil
	}
	return raw, env, nil
}

// dispatch routes a frame to its event handler: instantiate, unmarshal
// the whole frame into it, validate, run. Every failure is logged and
// the frame dropped; the loop never dies on bad input.
func (c *Client) dispatch(ctx context.Context, raw []byte, env *envelope.Envelope) {
	factory, ok := c.events.Lookup(env.Event)
	if !ok {
		slog.Debug(fmt.Sprintf("%s - no handler for event", logPrefix), "event", env.Event)
		return
	}
	handler := factory()
	if err := json.Unmarshal(raw, handler); err != nil {
		slog.Warn(fmt.Sprintf("%s - decode event", logPrefix), "event", env.Event, "error", err)
		return
	}
	if err := schema.Validate(handler); err != nil {
		slog.Warn(fmt.Sprintf("%s - invalid event", logPrefix), "event", env.Event, "error", err)
		return
	}
	if _, err := handler.Run(ctx, c, c.tr); err != nil {
		slog.Error(fmt.Sprintf("%s - event handler failed", logPrefix), "event", env.Event, "error", err)
	}
}

func (c *Client) teardown() {
	c.connected.Store(false)
	if c.tr != nil {
		_ = c.tr.close()
	}
	if c.opts.PurgeOnClose {
		c.mu.Lock()
		c.service = nil
		c.token = envelope.Token{}
		c.numConsumers = 0
		c.mu.Unlock()
	}
	c.state.Store(int32(Disconnected))
	slog.Info(fmt.Sprintf("%s - disconnected", logPrefix), "topic", c.opts.Topic)
}

// --- capability.Connection ---

func (c *Client) Service() *envelope.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.service
}

func (c *Client) SetService(s *envelope.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.service = s
}

func (c *Client) Token() envelope.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// MergeToken overlays server-assigned token metadata. The secret value is
// only ever set, never cleared: updates from the backend omit it and the
// local copy must survive them.
func (c *Client) MergeToken(t envelope.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Value == nil {
		t.Value = c.token.Value
	}
	c.token = t
}

// ResetToken clears token metadata, keeping the secret value so the
// session can rejoin with it later.
func (c *Client) ResetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = envelope.Token{Value: c.token.Value}
}

func (c *Client) NumConsumers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.numConsumers
}

func (c *Client) SetNumConsumers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.numConsumers = n
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Shutdown flags the session as done and closes the socket so the read
// loop returns.
func (c *Client) Shutdown() {
	if !c.connected.CompareAndSwap(true, false) {
		return
	}
	if c.tr != nil {
		_ = c.tr.close()
	}
}
