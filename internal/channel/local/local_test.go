package local

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zlc_ai/chatbridge/internal/channel"
	"github.com/zlc_ai/chatbridge/internal/message"
)

func receiveJSON(t *testing.T, a *Adapter, body string) (*message.Inbound, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bot/channel/local", strings.NewReader(body))
	rec := httptest.NewRecorder()
	return a.Receive(context.Background(), rec, req)
}

func TestReceive(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	msg, err := receiveJSON(t, a, `{"userId":"u-1","displayName":"Grace Hopper","text":"  hello  "}`)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.UserID != "u-1" {
		t.Errorf("UserID = %q", msg.UserID)
	}
	if msg.MessagePayload.Text != "hello" {
		t.Errorf("text = %q, want trimmed", msg.MessagePayload.Text)
	}
	if msg.Profile.FirstName != "Grace" || msg.Profile.LastName != "Hopper" {
		t.Errorf("profile = %+v", msg.Profile)
	}
}

func TestReceiveGeneratesUserID(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	msg, err := receiveJSON(t, a, `{"text":"hi"}`)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if msg.UserID == "" {
		t.Error("expected a generated user id")
	}
}

func TestReceiveEmptyTextIsNoReply(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	_, err := receiveJSON(t, a, `{"userId":"u-1","text":"   "}`)
	if !errors.Is(err, channel.ErrNoReply) {
		t.Errorf("expected ErrNoReply, got %v", err)
	}
}

func TestReceiveBadJSON(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	_, err := receiveJSON(t, a, `{not json`)
	var statusErr *channel.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest {
		t.Errorf("expected 400 StatusError, got %v", err)
	}
}

func TestRespondWithoutSubscribers(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	reply := &message.Reply{UserID: "u-1", MessagePayload: *message.NewTextPayload("hi")}
	if err := a.Respond(context.Background(), reply); err != nil {
		t.Errorf("Respond without subscribers must be a no-op, got %v", err)
	}
}

func TestSubscribeAndRespond(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	srv := httptest.NewServer(a.SubscribeHandler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?userId=u-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Registration happens before the upgrade response is written, but give
	// the handler goroutine a beat anyway.
	deadline := time.Now().Add(2 * time.Second)
	for a.SubscriberCount("u-1") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if a.SubscriberCount("u-1") != 1 {
		t.Fatalf("subscribers = %d, want 1", a.SubscriberCount("u-1"))
	}

	reply := &message.Reply{UserID: "u-1", MessagePayload: *message.NewTextPayload("hi there")}
	if err := a.Respond(context.Background(), reply); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var event outboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.UserID != "u-1" || event.Payload.Text != "hi there" {
		t.Errorf("event = %+v", event)
	}
	if event.MessageID == "" {
		t.Error("expected a message id")
	}
}

func TestSubscribeRequiresUserID(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/local/subscribe", nil)
	rec := httptest.NewRecorder()
	a.SubscribeHandler()(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUnsubscribeOnDisconnect(t *testing.T) {
	a := NewAdapter(zap.NewNop())

	srv := httptest.NewServer(a.SubscribeHandler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?userId=u-2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.SubscriberCount("u-2") != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := a.SubscriberCount("u-2"); got != 0 {
		t.Errorf("subscribers after disconnect = %d, want 0", got)
	}
}
