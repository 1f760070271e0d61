// Package router owns the two webhook endpoints bridging client platforms
// and the bot backend. It dispatches inbound events to the adapter named in
// the URL, splices the channel name into the conversation identifier before
// forwarding to the bot, and unsplices it to route bot replies back to the
// adapter that originated the conversation.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zlc_ai/chatbridge/internal/botlink"
	"github.com/zlc_ai/chatbridge/internal/channel"
	"github.com/zlc_ai/chatbridge/internal/message"
)

const defaultRequestTimeout = 30 * time.Second

// Router wires the adapter registry to the client and bot receiver endpoints.
type Router struct {
	channels *channel.Registry
	bot      *botlink.Client
	logger   *zap.Logger
	timeout  time.Duration
}

// New creates a router over the given registry and bot client. The timeout
// bounds each request's downstream work (receive, forward, respond).
func New(channels *channel.Registry, bot *botlink.Client, timeout time.Duration, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Router{channels: channels, bot: bot, logger: logger, timeout: timeout}
}

// Routes mounts the client and bot receiver endpoints.
func (rt *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/bot/channel/{channelName}", rt.handleClient)
	r.Post("/bot/webhook/receiver", rt.bot.Receiver(rt.handleBotReply))
	return r
}

// handleClient accepts an inbound platform event, normalizes it through the
// named adapter and forwards the result to the bot backend.
func (rt *Router) handleClient(w http.ResponseWriter, r *http.Request) {
	channelName := chi.URLParam(r, "channelName")
	ad, ok := rt.channels.Get(channelName)
	if !ok {
		http.Error(w, fmt.Sprintf("channel receiver %q is not defined", channelName), http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), rt.timeout)
	defer cancel()

	// Track writes so an adapter can emit its own synchronous acknowledgment
	// without the router double-responding.
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	msg, err := ad.Receive(ctx, ww, r)
	if err != nil {
		rt.finishReceive(ww, channelName, err)
		return
	}

	ref := channel.ConversationRef{Channel: channelName, NativeID: msg.UserID}
	spliced, encodeErr := ref.Encode()
	if encodeErr != nil {
		rt.logger.Error("Cannot encode routing identifier",
			zap.String("channel", channelName),
			zap.Error(encodeErr))
		if ww.BytesWritten() == 0 {
			http.Error(ww, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}
	msg.UserID = spliced

	if err := rt.bot.Send(ctx, msg); err != nil {
		rt.logger.Error("Forward to bot failed",
			zap.String("channel", channelName),
			zap.Error(err))
		if ww.BytesWritten() == 0 {
			http.Error(ww, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	rt.logger.Info("Client message forwarded",
		zap.String("channel", channelName),
		zap.String("type", string(msg.MessagePayload.Type)))

	if ww.BytesWritten() == 0 {
		ww.WriteHeader(http.StatusOK)
	}
}

// finishReceive maps a Receive failure onto the response: the no-reply
// sentinel still succeeds, a StatusError keeps its status, anything else is
// a processing error.
func (rt *Router) finishReceive(w middleware.WrapResponseWriter, channelName string, err error) {
	if errors.Is(err, channel.ErrNoReply) {
		rt.logger.Debug("Event produced no bot message", zap.String("channel", channelName))
		if w.BytesWritten() == 0 {
			w.WriteHeader(http.StatusOK)
		}
		return
	}

	status := http.StatusInternalServerError
	var statusErr *channel.StatusError
	if errors.As(err, &statusErr) {
		status = statusErr.Status
	}
	rt.logger.Error("Inbound event rejected",
		zap.String("channel", channelName),
		zap.Int("status", status),
		zap.Error(err))
	if w.BytesWritten() == 0 {
		http.Error(w, err.Error(), status)
	}
}

// handleBotReply routes a verified bot reply back to the adapter that
// originated the conversation.
func (rt *Router) handleBotReply(w http.ResponseWriter, r *http.Request, reply *message.Reply) {
	ref, err := channel.DecodeConversationRef(reply.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ad, ok := rt.channels.Get(ref.Channel)
	if !ok {
		http.Error(w, fmt.Sprintf("channel responder %q is not defined", ref.Channel), http.StatusNotFound)
		return
	}

	// Restore the native identifier before the adapter sees the reply.
	reply.UserID = ref.NativeID

	ctx, cancel := context.WithTimeout(r.Context(), rt.timeout)
	defer cancel()

	if err := ad.Respond(ctx, reply); err != nil {
		rt.logger.Error("Adapter respond failed",
			zap.String("channel", ref.Channel),
			zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rt.logger.Info("Bot reply delivered", zap.String("channel", ref.Channel))
	w.WriteHeader(http.StatusOK)
}
