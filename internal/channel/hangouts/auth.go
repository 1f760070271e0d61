package hangouts

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// chatScope authorizes the bot to post messages into spaces it belongs to.
const chatScope = "https://www.googleapis.com/auth/chat.bot"

// ServiceAuth exchanges service-account credentials for an authorized Google
// API client. The exchange runs at most once per instance: concurrent and
// later callers share the first outcome. A failed exchange is retained and
// returned to every subsequent caller (fail fast; the process is restarted
// rather than re-authorized).
type ServiceAuth struct {
	credentialsFile string
	scopes          []string
	logger          *zap.Logger

	// exchange is replaceable in tests.
	exchange func(ctx context.Context) (*http.Client, error)

	once   sync.Once
	client *http.Client
	err    error
}

// NewServiceAuth creates an authorization helper reading credentials from the
// given service-account JSON file.
func NewServiceAuth(credentialsFile string, scopes []string, logger *zap.Logger) *ServiceAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &ServiceAuth{
		credentialsFile: credentialsFile,
		scopes:          scopes,
		logger:          logger,
	}
	a.exchange = a.exchangeJWT
	return a
}

// Authorize returns the memoized authorized client, performing the credential
// exchange on first use.
func (a *ServiceAuth) Authorize(ctx context.Context) (*http.Client, error) {
	a.once.Do(func() {
		a.client, a.err = a.exchange(ctx)
		if a.err != nil {
			a.logger.Error("Service account authorization failed", zap.Error(a.err))
			return
		}
		a.logger.Info("Service account authorized",
			zap.String("credentials", a.credentialsFile))
	})
	return a.client, a.err
}

func (a *ServiceAuth) exchangeJWT(ctx context.Context) (*http.Client, error) {
	data, err := os.ReadFile(a.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, a.scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	// The token source outlives the first caller and refreshes tokens for the
	// life of the process, so it is bound to the background context.
	source := cfg.TokenSource(context.Background())

	// Eager exchange so a bad key surfaces now, not on the first send.
	if _, err := source.Token(); err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	return oauth2.NewClient(context.Background(), source), nil
}
