package hangouts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/zlc_ai/chatbridge/internal/channel"
	"github.com/zlc_ai/chatbridge/internal/message"
)

func newTestAdapter(t *testing.T, apiBaseURL string) *Adapter {
	t.Helper()
	a, err := NewAdapter(Config{
		Enabled:           true,
		VerificationToken: "tok",
		CredentialsFile:   "service_account.json",
		APIBaseURL:        apiBaseURL,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a
}

func receiveEvent(t *testing.T, a *Adapter, body string) (*message.Inbound, *httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bot/channel/hangouts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	msg, err := a.Receive(context.Background(), rec, req)
	return msg, rec, err
}

func TestReceiveMessage(t *testing.T) {
	a := newTestAdapter(t, "")
	body := `{
		"type": "MESSAGE",
		"token": "tok",
		"user": {"name": "users/42", "displayName": "Ada Lovelace", "email": "a@x.com"},
		"space": {"name": "spaces/7"},
		"message": {"argumentText": " hello "}
	}`

	msg, rec, err := receiveEvent(t, a, body)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Error("plain messages must not write a synchronous response")
	}

	if msg.UserID != "users/42spaces/7" {
		t.Errorf("UserID = %q, want %q", msg.UserID, "users/42spaces/7")
	}
	if msg.MessagePayload.Type != message.PayloadTypeText || msg.MessagePayload.Text != "hello" {
		t.Errorf("payload = %+v", msg.MessagePayload)
	}
	if msg.Profile.FirstName != "Ada" || msg.Profile.LastName != "Lovelace" {
		t.Errorf("profile = %+v", msg.Profile)
	}
	if msg.Profile.Context != "spaces/7" || msg.Profile.UserID != "users/42" {
		t.Errorf("profile = %+v", msg.Profile)
	}
}

func TestReceiveTokenMismatch(t *testing.T) {
	a := newTestAdapter(t, "")
	_, _, err := receiveEvent(t, a, `{"type":"MESSAGE","token":"wrong"}`)

	var statusErr *channel.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", statusErr.Status)
	}
}

func TestReceiveMembershipEventsAreNoReply(t *testing.T) {
	a := newTestAdapter(t, "")
	for _, typ := range []string{"ADDED_TO_SPACE", "REMOVED_FROM_SPACE", "SOMETHING_NEW"} {
		_, _, err := receiveEvent(t, a, `{"type":"`+typ+`","token":"tok"}`)
		if !errors.Is(err, channel.ErrNoReply) {
			t.Errorf("%s: expected ErrNoReply, got %v", typ, err)
		}
	}
}

func TestReceiveCardClicked(t *testing.T) {
	a := newTestAdapter(t, "")
	body := `{
		"type": "CARD_CLICKED",
		"token": "tok",
		"user": {"name": "users/42", "displayName": "Ada Lovelace"},
		"space": {"name": "spaces/7"},
		"message": {"text": "pick one"},
		"action": {
			"actionMethodName": "postback",
			"parameters": [{"key": "postback", "value": "{\"state\":\"order.pizza\",\"action\":\"yes\"}"}]
		}
	}`

	msg, rec, err := receiveEvent(t, a, body)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}

	// The synchronous acknowledgment must update the clicked message in place.
	var ack clickAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ActionResponse.Type != actionResponseUpdate {
		t.Errorf("actionResponse = %q, want %q", ack.ActionResponse.Type, actionResponseUpdate)
	}
	if ack.Text != "pick one" {
		t.Errorf("ack text = %q", ack.Text)
	}

	if msg.MessagePayload.Type != message.PayloadTypePostback {
		t.Fatalf("payload type = %q", msg.MessagePayload.Type)
	}
	var postback struct {
		State  string `json:"state"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal(msg.MessagePayload.Postback, &postback); err != nil {
		t.Fatalf("decode postback: %v", err)
	}
	if postback.State != "order.pizza" || postback.Action != "yes" {
		t.Errorf("postback = %+v", postback)
	}
}

func TestReceiveCardClickedWithoutPostbackParameter(t *testing.T) {
	a := newTestAdapter(t, "")
	body := `{
		"type": "CARD_CLICKED",
		"token": "tok",
		"user": {"name": "users/1"},
		"space": {"name": "spaces/1"},
		"action": {"actionMethodName": "postback", "parameters": []}
	}`
	if _, _, err := receiveEvent(t, a, body); err == nil {
		t.Error("expected error for card click without postback parameter")
	}
}

func TestRespondPostsToSpace(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.auth.exchange = func(ctx context.Context) (*http.Client, error) {
		return srv.Client(), nil
	}

	reply := &message.Reply{
		UserID:         "users/42spaces/7",
		MessagePayload: *message.NewTextPayload("hi there"),
	}
	if err := a.Respond(context.Background(), reply); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if gotPath != "/v1/spaces/7/messages" {
		t.Errorf("path = %q, want %q", gotPath, "/v1/spaces/7/messages")
	}
	var sent chatMessage
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("decode sent message: %v", err)
	}
	if sent.Text != "hi there" {
		t.Errorf("text = %q", sent.Text)
	}
}

func TestRespondWithoutSpaceHandle(t *testing.T) {
	a := newTestAdapter(t, "")
	reply := &message.Reply{UserID: "users/42", MessagePayload: *message.NewTextPayload("x")}
	if err := a.Respond(context.Background(), reply); err == nil {
		t.Error("expected error when conversation id has no space handle")
	}
}

func TestSplitDisplayName(t *testing.T) {
	cases := []struct {
		in, first, last string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Ada", "Ada", ""},
		{"Ada Augusta King-Noel", "Ada", "Augusta King-Noel"},
		{"", "", ""},
		{"  spaced  out  ", "spaced", "out"},
	}
	for _, c := range cases {
		first, last := splitDisplayName(c.in)
		if first != c.first || last != c.last {
			t.Errorf("splitDisplayName(%q) = %q, %q; want %q, %q", c.in, first, last, c.first, c.last)
		}
	}
}
