package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AdrianLSY/vera-go-service/pkg/broker"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
	"github.com/AdrianLSY/vera-go-service/pkg/events"
)

var upgrader = websocket.Upgrader{}

// startBackend runs a scripted websocket endpoint; script drives one
// accepted connection.
func startBackend(t *testing.T, script func(t *testing.T, ws *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("client:client_test - upgrade: %v", err)
			return
		}
		defer ws.Close()
		script(t, ws)
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

// readJoin consumes and checks the join frame.
func readJoin(t *testing.T, ws *websocket.Conn) *envelope.Envelope {
	t.Helper()
	_, raw, err := ws.ReadMessage()
	if err != nil {
		t.Errorf("client:client_test - read join: %v", err)
		return nil
	}
	env, err := envelope.Decode(raw)
	if err != nil {
		t.Errorf("client:client_test - decode join: %v", err)
		return nil
	}
	if env.Event != envelope.EventJoin {
		t.Errorf("client:client_test - first frame event = %q, want %q", env.Event, envelope.EventJoin)
	}
	if env.Ref == nil || *env.Ref != "1" {
		t.Errorf("client:client_test - join ref = %v, want \"1\"", env.Ref)
	}
	return env
}

func sendFrame(t *testing.T, ws *websocket.Conn, frame string) {
	t.Helper()
	if err := ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Errorf("client:client_test - write frame: %v", err)
	}
}

const joinOKReply = `{
	"ref": "1", "topic": "service", "event": "phx_reply",
	"payload": {
		"status": "ok",
		"response": {
			"service": {"id": 1, "name": "vera", "inserted_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"},
			"token": {"id": 2, "context": "service", "value": null, "service_id": 1, "inserted_at": null, "expires_at": null},
			"num_consumers": 0
		}
	}
}`

func newTestClient(opts Options) *Client {
	actions := capability.NewRegistry()
	return New(events.NewRegistry(broker.New(actions)), actions, opts)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client:client_test - timed out waiting for %s", what)
}

func TestConnect_JoinOK(t *testing.T) {
	release := make(chan struct{})
	srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
		env := readJoin(t, ws)
		if env == nil {
			return
		}
		var join envelope.JoinPayload
		if err := json.Unmarshal(env.Payload, &join); err != nil {
			t.Errorf("client:client_test - decode join payload: %v", err)
		}
		if join.Token != "secret-token" {
			t.Errorf("client:client_test - join token = %q, want %q", join.Token, "secret-token")
		}
		sendFrame(t, ws, joinOKReply)
		sendFrame(t, ws, `{"ref":null,"topic":"service","event":"consumers_connected","payload":{"num_consumers":3}}`)
		<-release
	})
	defer srv.Close()

	c := newTestClient(Options{})
	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background(), wsURL, "secret-token") }()

	waitFor(t, "active state", func() bool { return c.State() == Active })
	waitFor(t, "consumer count", func() bool { return c.NumConsumers() == 3 })

	svc := c.Service()
	if svc == nil || svc.ID != 1 || svc.Name != "vera" {
		t.Errorf("client:client_test - service = %+v, want id=1 name=vera", svc)
	}
	token := c.Token()
	if token.ID == nil || *token.ID != 2 {
		t.Errorf("client:client_test - token.ID = %v, want 2", token.ID)
	}
	if token.Value == nil || *token.Value != "secret-token" {
		t.Error("client:client_test - join credential must be preserved as the token value")
	}

	c.Close()
	close(release)
	if err := <-done; err != nil {
		t.Errorf("client:client_test - Connect returned error after Close: %v", err)
	}
	if c.State() != Disconnected {
		t.Errorf("client:client_test - state = %s, want disconnected", c.State())
	}
}

func TestConnect_JoinRejected(t *testing.T) {
	srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
		if readJoin(t, ws) == nil {
			return
		}
		sendFrame(t, ws, `{"ref":"1","topic":"service","event":"phx_reply","payload":{"status":"error","response":{"reason":"invalid token"}}}`)
	})
	defer srv.Close()

	c := newTestClient(Options{})
	err := c.Connect(context.Background(), wsURL, "bad-token")
	if err == nil {
		t.Fatal("client:client_test - expected join rejection error")
	}
	if !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("client:client_test - error = %v, want rejection reason surfaced", err)
	}
	if c.State() != Disconnected {
		t.Errorf("client:client_test - state = %s, want disconnected", c.State())
	}
}

func TestConnect_Idempotent(t *testing.T) {
	release := make(chan struct{})
	srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
		if readJoin(t, ws) == nil {
			return
		}
		sendFrame(t, ws, joinOKReply)
		<-release
	})
	defer srv.Close()

	c := newTestClient(Options{})
	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background(), wsURL, "secret-token") }()
	waitFor(t, "active state", func() bool { return c.State() == Active })

	// A second Connect while the session is live returns immediately
	// without disturbing it.
	if err := c.Connect(context.Background(), wsURL, "secret-token"); err != nil {
		t.Errorf("client:client_test - second Connect: %v", err)
	}
	if c.State() != Active {
		t.Errorf("client:client_test - state = %s, want active", c.State())
	}

	c.Close()
	close(release)
	<-done
}

func TestConnect_RequestRoundTrip(t *testing.T) {
	type received struct {
		env *envelope.Envelope
		err error
	}
	responses := make(chan received, 1)
	release := make(chan struct{})
	srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
		if readJoin(t, ws) == nil {
			return
		}
		sendFrame(t, ws, joinOKReply)
		sendFrame(t, ws, `{"ref":null,"topic":"service","event":"request","payload":{"action":"NoSuchAction","fields":{},"response_ref":"r1"}}`)
		_, raw, err := ws.ReadMessage()
		if err != nil {
			responses <- received{err: err}
			return
		}
		env, err := envelope.Decode(raw)
		responses <- received{env: env, err: err}
		<-release
	})
	defer srv.Close()

	c := newTestClient(Options{})
	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background(), wsURL, "secret-token") }()

	var resp received
	select {
	case resp = <-responses:
	case <-time.After(5 * time.Second):
		t.Fatal("client:client_test - timed out waiting for response frame")
	}
	if resp.err != nil {
		t.Fatalf("client:client_test - response frame: %v", resp.err)
	}
	env := resp.env
	if env.Event != envelope.EventResponse {
		t.Errorf("client:client_test - response event = %q, want %q", env.Event, envelope.EventResponse)
	}
	if env.Ref == nil || *env.Ref != "r1" {
		t.Errorf("client:client_test - response ref = %v, want r1", env.Ref)
	}
	var result capability.Result
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		t.Fatalf("client:client_test - decode result: %v", err)
	}
	if result.StatusCode != 404 {
		t.Errorf("client:client_test - StatusCode = %d, want 404", result.StatusCode)
	}

	c.Close()
	close(release)
	<-done
}

func TestConnect_MalformedFrameSkipped(t *testing.T) {
	release := make(chan struct{})
	srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
		if readJoin(t, ws) == nil {
			return
		}
		sendFrame(t, ws, joinOKReply)
		sendFrame(t, ws, `this is not json`)
		sendFrame(t, ws, `{"ref":null,"topic":"service","event":"consumers_connected","payload":{"num_consumers":5}}`)
		<-release
	})
	defer srv.Close()

	c := newTestClient(Options{})
	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background(), wsURL, "secret-token") }()

	// The malformed frame is dropped; the loop keeps going.
	waitFor(t, "consumer count", func() bool { return c.NumConsumers() == 5 })

	c.Close()
	close(release)
	<-done
}

func TestTeardown_PurgeOnClose(t *testing.T) {
	tests := []struct {
		name  string
		purge bool
	}{
		{"purged", true},
		{"retained", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
				if readJoin(t, ws) == nil {
					return
				}
				sendFrame(t, ws, joinOKReply)
				<-release
			})
			defer srv.Close()
			defer close(release)

			c := newTestClient(Options{PurgeOnClose: tt.purge})
			done := make(chan error, 1)
			go func() { done <- c.Connect(context.Background(), wsURL, "secret-token") }()
			waitFor(t, "active state", func() bool { return c.State() == Active })

			c.Close()
			<-done

			if tt.purge {
				if c.Service() != nil {
					t.Error("client:client_test - service should be purged")
				}
				if c.Token().Value != nil {
					t.Error("client:client_test - token should be purged")
				}
				if c.NumConsumers() != 0 {
					t.Error("client:client_test - consumer count should be purged")
				}
			} else {
				if c.Service() == nil {
					t.Error("client:client_test - service should be retained")
				}
				if c.Token().Value == nil {
					t.Error("client:client_test - token should be retained")
				}
			}
		})
	}
}

func TestConnect_ContextCancel(t *testing.T) {
	srv, wsURL := startBackend(t, func(t *testing.T, ws *websocket.Conn) {
		if readJoin(t, ws) == nil {
			return
		}
		sendFrame(t, ws, joinOKReply)
		// Hold the connection open; cancellation ends the session.
		ws.ReadMessage()
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(Options{})
	done := make(chan error, 1)
	go func() { done <- c.Connect(ctx, wsURL, "secret-token") }()
	waitFor(t, "active state", func() bool { return c.State() == Active })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("client:client_test - Connect returned error on cancel: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client:client_test - Connect did not return after cancel")
	}
	if c.State() != Disconnected {
		t.Errorf("client:client_test - state = %s, want disconnected", c.State())
	}
}

func TestBuildURL_ProtocolVersion(t *testing.T) {
	c := newTestClient(Options{ProtocolVersion: "2.0.0"})
	u, err := c.buildURL("ws://localhost:4000/socket/websocket")
	if err != nil {
		t.Fatalf("client:client_test - buildURL: %v", err)
	}
	if !strings.Contains(u, "vsn=2.0.0") {
		t.Errorf("client:client_test - url = %q, want vsn query param", u)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Disconnected, "disconnected"},
		{Connecting, "connecting"},
		{Joining, "joining"},
		{Active, "active"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("client:client_test - State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
