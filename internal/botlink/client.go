// Package botlink implements the fixed webhook protocol spoken with the bot
// backend: signed delivery of canonical messages to the bot, and signature
// verification of the replies the bot posts back.
package botlink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zlc_ai/chatbridge/internal/message"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the request body.
const SignatureHeader = "X-Hub-Signature"

const signaturePrefix = "sha256="

// Config holds the bot webhook destination and the shared signing secret.
type Config struct {
	URL     string        `yaml:"url" env:"BOT_WEBHOOK_URL"`
	Secret  string        `yaml:"secret" env:"BOT_WEBHOOK_SECRET"`
	Timeout time.Duration `yaml:"timeout" env:"BOT_WEBHOOK_TIMEOUT"`
}

// Client sends canonical messages to the bot backend and verifies replies
// arriving on the receiver endpoint. Retries, if any, are the bot transport's
// concern; this layer performs a single signed request per message.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a bot webhook client.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// Send delivers one canonical inbound message to the bot backend. The body is
// signed with the shared webhook secret; a non-2xx response is an error.
func (c *Client) Send(ctx context.Context, msg *message.Inbound) error {
	if c.config.URL == "" {
		return fmt.Errorf("bot webhook URL not configured")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(c.config.Secret, body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send to bot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bot webhook error: %d - %s", resp.StatusCode, string(respBody))
	}

	c.logger.Debug("Message sent to bot",
		zap.String("userId", msg.UserID),
		zap.Int("bodyLen", len(body)))
	return nil
}

// ReplyHandler consumes one verified bot reply.
type ReplyHandler func(w http.ResponseWriter, r *http.Request, reply *message.Reply)

// Receiver wraps a reply handler with webhook protocol verification: the
// request body signature must match the shared secret before the handler
// sees the reply.
func (c *Client) Receiver(handler ReplyHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if !Verify(c.config.Secret, body, r.Header.Get(SignatureHeader)) {
			c.logger.Warn("Rejected bot reply with invalid signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		var reply message.Reply
		if err := json.Unmarshal(body, &reply); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		handler(w, r, &reply)
	}
}

// Sign computes the signature header value for a request body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value against the body in constant time.
func Verify(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(header))
}
