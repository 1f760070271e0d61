package channel

import (
	"fmt"
	"strings"
)

// Separator joins the channel name and the platform-native identifier inside
// a spliced conversation identifier. Neither component may contain it.
const Separator = "|"

// ConversationRef identifies the adapter and the native conversation a bot
// reply belongs to. It lives for one request/response cycle only and is never
// persisted anywhere.
type ConversationRef struct {
	Channel  string
	NativeID string
}

// Encode splices the channel name and native identifier into one opaque
// string. It fails when either component contains the reserved separator,
// which would make decoding ambiguous.
func (ref ConversationRef) Encode() (string, error) {
	if strings.Contains(ref.Channel, Separator) {
		return "", fmt.Errorf("channel name %q contains reserved separator %q", ref.Channel, Separator)
	}
	if strings.Contains(ref.NativeID, Separator) {
		return "", fmt.Errorf("native identifier %q contains reserved separator %q", ref.NativeID, Separator)
	}
	return ref.Channel + Separator + ref.NativeID, nil
}

// DecodeConversationRef splits a spliced identifier back into its channel
// name and native identifier.
func DecodeConversationRef(id string) (ConversationRef, error) {
	channelName, nativeID, ok := strings.Cut(id, Separator)
	if !ok {
		return ConversationRef{}, fmt.Errorf("identifier %q has no channel separator", id)
	}
	if channelName == "" {
		return ConversationRef{}, fmt.Errorf("identifier %q has an empty channel name", id)
	}
	return ConversationRef{Channel: channelName, NativeID: nativeID}, nil
}
