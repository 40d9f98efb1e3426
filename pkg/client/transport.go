package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
)

const transportLogPrefix = "client:transport"

// transport wraps the websocket connection behind a single-writer mutex.
// The underlying connection is not safe for concurrent writers, so every
// outbound frame serializes through Send.
type transport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	wmu sync.Mutex
}

func newTransport(conn *websocket.Conn, writeTimeout time.Duration) *transport {
	return &transport{conn: conn, writeTimeout: writeTimeout}
}

// Send encodes and writes one frame under the write mutex, bounded by the
// write timeout or the context deadline, whichever is sooner.
func (t *transport) Send(ctx context.Context, env *envelope.Envelope) error {
	data, err := envelope.Encode(env)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()

	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%s - set write deadline: %w", transportLogPrefix, err)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%s - write frame: %w", transportLogPrefix, err)
	}
	return nil
}

// close tears the socket down; a blocked read returns with an error.
func (t *transport) close() error {
	return t.conn.Close()
}
