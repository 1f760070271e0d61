// Package channel defines the contract between the webhook router and
// platform adapters, along with the routing identifier codec shared by both.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zlc_ai/chatbridge/internal/message"
)

// ErrNoReply signals that an inbound event was classified as one that produces
// no bot traffic, such as the bot being added to or removed from a space. It
// is not a failure: the router completes the request without forwarding
// anything to the bot backend.
var ErrNoReply = errors.New("channel: event produces no reply")

// StatusError carries the HTTP status to surface for a rejected inbound
// request, such as 403 for a verification token mismatch.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// NewStatusError builds a StatusError with a formatted message.
func NewStatusError(status int, format string, args ...any) *StatusError {
	return &StatusError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Adapter translates between one chat platform's native format and the
// canonical message model.
//
// Receive validates the inbound platform request and produces a canonical
// message. Implementations may write a synchronous acknowledgment to w when
// the platform requires one (interactive actions); the router sends its own
// bare 200 only if nothing was written. Receive returns ErrNoReply for events
// that must not reach the bot backend, and a StatusError when the request is
// invalid or unauthenticated.
//
// Respond translates the canonical reply into the platform's native call(s)
// and performs them, returning only after the platform confirms receipt.
type Adapter interface {
	Name() string
	Receive(ctx context.Context, w http.ResponseWriter, r *http.Request) (*message.Inbound, error)
	Respond(ctx context.Context, reply *message.Reply) error
}

// Registry maps channel names to adapters. It is populated during startup and
// read-only afterwards, so concurrent lookups need no locking.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its name. Registration happens before the
// server accepts requests; duplicate names are an error.
func (r *Registry) Register(a Adapter) error {
	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// Get looks up an adapter by channel name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int { return len(r.adapters) }
