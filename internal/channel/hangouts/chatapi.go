package hangouts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://chat.googleapis.com"

// ChatClient issues Google Chat REST calls with the authorized client
// obtained from ServiceAuth.
type ChatClient struct {
	baseURL string
	auth    *ServiceAuth
	logger  *zap.Logger
}

// NewChatClient creates a Chat API client. An empty baseURL selects the
// public Chat endpoint.
func NewChatClient(baseURL string, auth *ServiceAuth, logger *zap.Logger) *ChatClient {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    auth,
		logger:  logger,
	}
}

// CreateMessage posts a message into the parent space ("spaces/..."),
// returning once the Chat API confirms it.
func (c *ChatClient) CreateMessage(ctx context.Context, parent string, msg *chatMessage) error {
	client, err := c.auth.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s/messages", c.baseURL, parent)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("chat api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat api error: %d - %s", resp.StatusCode, string(respBody))
	}

	c.logger.Debug("Message created", zap.String("parent", parent))
	return nil
}
