package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/AdrianLSY/vera-go-service/pkg/broker"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/envelope"
	"github.com/AdrianLSY/vera-go-service/pkg/schema"
)

type fakeConn struct {
	service      *envelope.Service
	token        envelope.Token
	numConsumers int
	connected    bool
}

func (f *fakeConn) Service() *envelope.Service       { return f.service }
func (f *fakeConn) SetService(svc *envelope.Service) { f.service = svc }
func (f *fakeConn) Token() envelope.Token            { return f.token }
func (f *fakeConn) MergeToken(t envelope.Token) {
	if t.Value == nil {
		t.Value = f.token.Value
	}
	f.token = t
}
func (f *fakeConn) ResetToken()           { f.token = envelope.Token{Value: f.token.Value} }
func (f *fakeConn) NumConsumers() int     { return f.numConsumers }
func (f *fakeConn) SetNumConsumers(n int) { f.numConsumers = n }
func (f *fakeConn) Connected() bool       { return f.connected }
func (f *fakeConn) Shutdown()             { f.connected = false }

type fakeTransport struct {
	sent []*envelope.Envelope
}

func (f *fakeTransport) Send(_ context.Context, env *envelope.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}

// dispatchFrame mimics the receive loop: resolve the handler, unmarshal the
// whole frame into it, validate, run.
func dispatchFrame(t *testing.T, r *capability.Registry, conn capability.Connection, tr capability.Transport, raw []byte) {
	t.Helper()
	env, err := envelope.Decode(raw)
	if err != nil {
		t.Fatalf("events:events_test - decode frame: %v", err)
	}
	factory, ok := r.Lookup(env.Event)
	if !ok {
		t.Fatalf("events:events_test - no handler for %q", env.Event)
	}
	handler := factory()
	if err := json.Unmarshal(raw, handler); err != nil {
		t.Fatalf("events:events_test - unmarshal frame: %v", err)
	}
	if err := schema.Validate(handler); err != nil {
		t.Fatalf("events:events_test - validate frame: %v", err)
	}
	if _, err := handler.Run(context.Background(), conn, tr); err != nil {
		t.Fatalf("events:events_test - run handler: %v", err)
	}
}

func testRegistry() *capability.Registry {
	return NewRegistry(broker.New(capability.NewRegistry()))
}

func TestNewRegistry_AllEventsRegistered(t *testing.T) {
	r := testRegistry()
	for _, event := range []string{
		envelope.EventServiceUpdated,
		envelope.EventServiceDeleted,
		envelope.EventConsumersConnected,
		envelope.EventTokenCreated,
		envelope.EventTokenDeleted,
		envelope.EventReply,
		envelope.EventRequest,
	} {
		if _, ok := r.Lookup(event); !ok {
			t.Errorf("events:events_test - missing handler for %q", event)
		}
	}
}

func TestConsumersConnected_UpdatesCount(t *testing.T) {
	conn := &fakeConn{connected: true}
	tr := &fakeTransport{}
	raw := []byte(`{"ref":null,"topic":"service","event":"consumers_connected","payload":{"num_consumers":7}}`)

	dispatchFrame(t, testRegistry(), conn, tr, raw)

	if conn.numConsumers != 7 {
		t.Errorf("events:events_test - numConsumers = %d, want 7", conn.numConsumers)
	}
	if len(tr.sent) != 0 {
		t.Errorf("events:events_test - expected no outbound frames, got %d", len(tr.sent))
	}
}

func TestServiceUpdated_ReplacesService(t *testing.T) {
	conn := &fakeConn{connected: true}
	raw := []byte(`{"ref":null,"topic":"service","event":"service_updated","payload":{"service":{"id":9,"name":"renamed","inserted_at":"2024-01-01T00:00:00Z","updated_at":"2024-06-01T00:00:00Z"}}}`)

	dispatchFrame(t, testRegistry(), conn, &fakeTransport{}, raw)

	if conn.service == nil || conn.service.ID != 9 || conn.service.Name != "renamed" {
		t.Errorf("events:events_test - service = %+v, want id=9 name=renamed", conn.service)
	}
}

func TestServiceDeleted_ClearsServiceAndShutsDown(t *testing.T) {
	conn := &fakeConn{connected: true, service: &envelope.Service{ID: 9}}
	raw := []byte(`{"ref":null,"topic":"service","event":"service_deleted","payload":{"service":{"id":9,"name":"gone","inserted_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}}}`)

	dispatchFrame(t, testRegistry(), conn, &fakeTransport{}, raw)

	if conn.service != nil {
		t.Errorf("events:events_test - service = %+v, want nil", conn.service)
	}
	if conn.connected {
		t.Error("events:events_test - expected shutdown")
	}
}

func TestTokenCreated_PreservesSecret(t *testing.T) {
	secret := "local-secret"
	conn := &fakeConn{connected: true, token: envelope.Token{Value: &secret}}
	raw := []byte(`{"ref":null,"topic":"service","event":"token_created","payload":{"token":{"id":5,"context":"service","value":null,"service_id":1,"inserted_at":null,"expires_at":null}}}`)

	dispatchFrame(t, testRegistry(), conn, &fakeTransport{}, raw)

	if conn.token.ID == nil || *conn.token.ID != 5 {
		t.Errorf("events:events_test - token.ID = %v, want 5", conn.token.ID)
	}
	if conn.token.Value == nil || *conn.token.Value != "local-secret" {
		t.Error("events:events_test - secret value must survive a token update")
	}
}

func TestTokenDeleted_KeepsSecretOnly(t *testing.T) {
	secret := "local-secret"
	id := 5
	conn := &fakeConn{connected: true, token: envelope.Token{ID: &id, Value: &secret}}
	raw := []byte(`{"ref":null,"topic":"service","event":"token_deleted","payload":{"token":{"id":5,"context":null,"value":null,"service_id":null,"inserted_at":null,"expires_at":null}}}`)

	dispatchFrame(t, testRegistry(), conn, &fakeTransport{}, raw)

	if conn.token.ID != nil {
		t.Errorf("events:events_test - token.ID = %v, want nil", *conn.token.ID)
	}
	if conn.token.Value == nil || *conn.token.Value != "local-secret" {
		t.Error("events:events_test - secret value must survive a token delete")
	}
}

func TestRequest_DelegatesToBroker(t *testing.T) {
	actions := capability.NewRegistry()
	r := NewRegistry(broker.New(actions))
	conn := &fakeConn{connected: true}
	tr := &fakeTransport{}
	raw := []byte(`{"ref":null,"topic":"service","event":"request","payload":{"action":"NoSuchAction","fields":{},"response_ref":"r1"}}`)

	dispatchFrame(t, r, conn, tr, raw)

	if len(tr.sent) != 1 {
		t.Fatalf("events:events_test - expected 1 response frame, got %d", len(tr.sent))
	}
	env := tr.sent[0]
	if env.Ref == nil || *env.Ref != "r1" {
		t.Errorf("events:events_test - response Ref = %v, want r1", env.Ref)
	}
	if env.Event != envelope.EventResponse || env.Topic != "service" {
		t.Errorf("events:events_test - response envelope = %+v", env)
	}

	var result capability.Result
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		t.Fatalf("events:events_test - decode result: %v", err)
	}
	if result.StatusCode != 404 {
		t.Errorf("events:events_test - StatusCode = %d, want 404", result.StatusCode)
	}
}

func TestReply_IsDroppedQuietly(t *testing.T) {
	conn := &fakeConn{connected: true}
	tr := &fakeTransport{}
	raw := []byte(`{"ref":"1","topic":"service","event":"phx_reply","payload":{"status":"ok","response":{}}}`)

	dispatchFrame(t, testRegistry(), conn, tr, raw)

	if len(tr.sent) != 0 {
		t.Errorf("events:events_test - expected no outbound frames, got %d", len(tr.sent))
	}
}
