// Package local implements a channel adapter for local development and
// integration testing. Inbound messages arrive as plain JSON posts on the
// regular channel endpoint; bot replies are pushed to WebSocket subscribers
// of the same conversation.
package local

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zlc_ai/chatbridge/internal/channel"
	"github.com/zlc_ai/chatbridge/internal/message"
)

const channelName = "local"

// Adapter is the local implementation of the channel contract.
type Adapter struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string][]*subscriber
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to the connection
}

// inboundRequest is the JSON body posted to the local channel endpoint.
type inboundRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Text        string `json:"text"`
}

// outboundEvent is what subscribers receive for each bot reply.
type outboundEvent struct {
	MessageID string           `json:"messageId"`
	UserID    string           `json:"userId"`
	Payload   *message.Payload `json:"payload"`
}

// NewAdapter creates the local channel adapter.
func NewAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local development only
			},
		},
		subs: make(map[string][]*subscriber),
	}
}

// Name returns the channel name the adapter is registered under.
func (a *Adapter) Name() string { return channelName }

// Receive parses a local JSON message into the canonical format. Posts with
// no text produce no bot traffic.
func (a *Adapter) Receive(ctx context.Context, w http.ResponseWriter, r *http.Request) (*message.Inbound, error) {
	var req inboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, channel.NewStatusError(http.StatusBadRequest, "invalid message: %v", err)
	}

	if req.UserID == "" {
		req.UserID = uuid.New().String()
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, channel.ErrNoReply
	}

	firstName, lastName := splitDisplayName(req.DisplayName)
	return &message.Inbound{
		UserID:         req.UserID,
		MessagePayload: message.NewTextPayload(text),
		Profile: message.Profile{
			Context:   channelName,
			UserID:    req.UserID,
			FirstName: firstName,
			LastName:  lastName,
		},
	}, nil
}

// Respond pushes the bot reply to every WebSocket subscriber of the
// conversation. Replies with no subscriber are dropped: local delivery is
// best-effort.
func (a *Adapter) Respond(ctx context.Context, reply *message.Reply) error {
	event := outboundEvent{
		MessageID: uuid.New().String(),
		UserID:    reply.UserID,
		Payload:   &reply.MessagePayload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	a.mu.RLock()
	subs := append([]*subscriber(nil), a.subs[reply.UserID]...)
	a.mu.RUnlock()

	if len(subs) == 0 {
		a.logger.Debug("No local subscriber for reply", zap.String("userId", reply.UserID))
		return nil
	}

	for _, s := range subs {
		s.mu.Lock()
		err := s.conn.WriteMessage(websocket.TextMessage, data)
		s.mu.Unlock()
		if err != nil {
			a.logger.Warn("Failed to push reply to subscriber", zap.Error(err))
			a.removeSubscriber(reply.UserID, s)
		}
	}
	return nil
}

// SubscribeHandler upgrades the connection and registers it for replies to
// the conversation given in the userId query parameter.
func (a *Adapter) SubscribeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "userId is required", http.StatusBadRequest)
			return
		}

		conn, err := a.upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.logger.Error("WebSocket upgrade failed", zap.Error(err))
			return
		}

		sub := &subscriber{conn: conn}
		a.mu.Lock()
		a.subs[userID] = append(a.subs[userID], sub)
		a.mu.Unlock()

		a.logger.Info("Local subscriber connected", zap.String("userId", userID))
		go a.readLoop(userID, sub)
	}
}

// SubscriberCount returns the number of active subscribers for a conversation.
func (a *Adapter) SubscriberCount(userID string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.subs[userID])
}

// readLoop drains the connection until the peer disconnects; inbound traffic
// goes through the HTTP endpoint, not the socket.
func (a *Adapter) readLoop(userID string, sub *subscriber) {
	defer func() {
		a.removeSubscriber(userID, sub)
		sub.conn.Close()
		a.logger.Info("Local subscriber disconnected", zap.String("userId", userID))
	}()
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (a *Adapter) removeSubscriber(userID string, sub *subscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	subs := a.subs[userID]
	for i, s := range subs {
		if s == sub {
			a.subs[userID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(a.subs[userID]) == 0 {
		delete(a.subs, userID)
	}
}

func splitDisplayName(display string) (first, last string) {
	fields := strings.Fields(display)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
