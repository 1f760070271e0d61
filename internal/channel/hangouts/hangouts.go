// Package hangouts implements the Google Chat channel adapter: inbound event
// validation and classification, canonical message construction, and
// translation of bot replies into native Chat messages posted through the
// Chat REST API.
package hangouts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/zlc_ai/chatbridge/internal/channel"
	"github.com/zlc_ai/chatbridge/internal/message"
)

const channelName = "hangouts"

// spacePattern matches the space handle embedded in a conversation id.
var spacePattern = regexp.MustCompile(`spaces/\w+`)

// Config holds the Google Chat adapter configuration.
type Config struct {
	Enabled bool `yaml:"enabled" env:"HANGOUTS_CHANNEL_ENABLED"`
	// VerificationToken is the shared token Chat includes in every event.
	VerificationToken string `yaml:"verification_token" env:"HANGOUTS_BOT_VERIFICATION_TOKEN"`
	// CredentialsFile points at the service-account JSON used for outbound calls.
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	// APIBaseURL overrides the Chat API endpoint (tests, proxies).
	APIBaseURL string `yaml:"api_base_url" env:"HANGOUTS_API_BASE_URL"`
}

// Adapter is the Google Chat implementation of the channel contract.
type Adapter struct {
	config Config
	auth   *ServiceAuth
	chat   *ChatClient
	logger *zap.Logger
}

// NewAdapter validates the configuration and constructs the adapter. The
// credential exchange itself is deferred to the first outbound send.
func NewAdapter(config Config, logger *zap.Logger) (*Adapter, error) {
	if config.VerificationToken == "" {
		return nil, fmt.Errorf("hangouts verification token is required")
	}
	if config.CredentialsFile == "" {
		return nil, fmt.Errorf("hangouts credentials file is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	auth := NewServiceAuth(config.CredentialsFile, []string{chatScope}, logger)
	return &Adapter{
		config: config,
		auth:   auth,
		chat:   NewChatClient(config.APIBaseURL, auth, logger),
		logger: logger,
	}, nil
}

// Name returns the channel name the adapter is registered under.
func (a *Adapter) Name() string { return channelName }

// Receive validates and classifies an inbound Chat event. Card clicks are
// acknowledged synchronously on w before the canonical message is returned;
// space membership events yield ErrNoReply.
func (a *Adapter) Receive(ctx context.Context, w http.ResponseWriter, r *http.Request) (*message.Inbound, error) {
	var event chatEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		return nil, channel.NewStatusError(http.StatusBadRequest, "invalid event payload: %v", err)
	}

	if event.Token != a.config.VerificationToken {
		return nil, channel.NewStatusError(http.StatusForbidden, "invalid verification token")
	}

	switch event.Type {
	case eventTypeCardClicked:
		// Chat expects a synchronous response to a card click, but the bot
		// reply arrives asynchronously as a new message. Acknowledge by
		// updating the clicked message in place, then hand the postback on.
		a.acknowledgeClick(w, event.Message)
		return a.toInbound(&event)
	case eventTypeMessage:
		return a.toInbound(&event)
	case eventTypeAdded, eventTypeRemoved:
		return nil, channel.ErrNoReply
	default:
		a.logger.Debug("Ignoring unhandled event type", zap.String("type", event.Type))
		return nil, channel.ErrNoReply
	}
}

// Respond translates the bot reply and posts it into the originating space.
func (a *Adapter) Respond(ctx context.Context, reply *message.Reply) error {
	// The space handle travels inside the conversation id because Chat sends
	// nothing else back that could locate the reply target.
	parent := spacePattern.FindString(reply.UserID)
	if parent == "" {
		return fmt.Errorf("no space handle in conversation id %q", reply.UserID)
	}

	native := a.toChatMessage(&reply.MessagePayload)

	a.logger.Debug("Sending to Google Chat",
		zap.String("parent", parent),
		zap.String("payloadType", string(reply.MessagePayload.Type)))

	return a.chat.CreateMessage(ctx, parent, native)
}

func (a *Adapter) acknowledgeClick(w http.ResponseWriter, msg *chatEventMessage) {
	ack := clickAck{ActionResponse: actionResponse{Type: actionResponseUpdate}}
	if msg != nil {
		ack.Text = msg.Text
		ack.Cards = msg.Cards
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ack); err != nil {
		a.logger.Warn("Failed to write click acknowledgment", zap.Error(err))
	}
}

// toInbound builds the canonical message for a MESSAGE or CARD_CLICKED event.
func (a *Adapter) toInbound(event *chatEvent) (*message.Inbound, error) {
	firstName, lastName := splitDisplayName(event.User.DisplayName)

	msg := &message.Inbound{
		// A user in two spaces is two distinct conversations, so the space
		// handle is part of the conversation id.
		UserID: event.User.Name + event.Space.Name,
		Profile: message.Profile{
			Context:   event.Space.Name,
			UserID:    event.User.Name,
			FirstName: firstName,
			LastName:  lastName,
		},
	}

	if event.Action != nil {
		value, err := clickedPostback(event.Action)
		if err != nil {
			return nil, err
		}
		msg.MessagePayload = message.NewPostbackPayload(value)
		return msg, nil
	}

	text := ""
	if event.Message != nil {
		text = strings.TrimSpace(event.Message.ArgumentText)
	}
	msg.MessagePayload = message.NewTextPayload(text)
	return msg, nil
}

// clickedPostback recovers the postback value embedded in a card click. The
// value parameter holds serialized JSON placed there by actionButtons.
func clickedPostback(action *formAction) (json.RawMessage, error) {
	for _, p := range action.Parameters {
		if p.Key != postbackParameterKey {
			continue
		}
		var value json.RawMessage
		if err := json.Unmarshal([]byte(p.Value), &value); err != nil {
			return nil, fmt.Errorf("invalid postback parameter: %w", err)
		}
		return value, nil
	}
	return nil, fmt.Errorf("card click carries no %q parameter", postbackParameterKey)
}

// splitDisplayName maps a display name onto first/last name fields: first
// whitespace-delimited token, then the joined remainder.
func splitDisplayName(display string) (first, last string) {
	fields := strings.Fields(display)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
