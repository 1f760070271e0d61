// Package message defines the canonical conversational message model spoken
// with the bot backend. Channel adapters translate between this model and each
// chat platform's native format; the bot itself never sees platform shapes.
package message

import "encoding/json"

// PayloadType discriminates the canonical payload variants. Adapters construct
// text and postback payloads inbound; the bot constructs text, card,
// attachment and location payloads outbound.
type PayloadType string

const (
	PayloadTypeText       PayloadType = "text"
	PayloadTypePostback   PayloadType = "postback"
	PayloadTypeCard       PayloadType = "card"
	PayloadTypeAttachment PayloadType = "attachment"
	PayloadTypeLocation   PayloadType = "location"
)

// ActionType discriminates the interactive action variants.
type ActionType string

const (
	ActionTypePostback ActionType = "postback"
	ActionTypeURL      ActionType = "url"
	ActionTypeCall     ActionType = "call"
)

// Action is an interactive element the user can select. A postback action
// carries an opaque structured value that is echoed back verbatim on
// selection; url and call actions open a link or dial a number.
type Action struct {
	Type        ActionType      `json:"type"`
	Label       string          `json:"label"`
	Postback    json.RawMessage `json:"postback,omitempty"`
	URL         string          `json:"url,omitempty"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
}

// Card is an abstract interactive unit independent of any platform's
// rendering primitives.
type Card struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	URL         string   `json:"url,omitempty"`
	Actions     []Action `json:"actions,omitempty"`
}

// Attachment references external media by type and URL.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Location is a geographic point with an optional title and link.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Title     string  `json:"title,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// Payload is the polymorphic canonical payload. Type selects the variant and
// only the matching variant field is populated. Actions and GlobalActions may
// accompany any variant.
type Payload struct {
	Type          PayloadType     `json:"type"`
	Text          string          `json:"text,omitempty"`
	Postback      json.RawMessage `json:"postback,omitempty"`
	Cards         []Card          `json:"cards,omitempty"`
	Attachment    *Attachment     `json:"attachment,omitempty"`
	Location      *Location       `json:"location,omitempty"`
	Actions       []Action        `json:"actions,omitempty"`
	GlobalActions []Action        `json:"globalActions,omitempty"`
}

// Profile describes the platform user behind an inbound message.
type Profile struct {
	Context   string `json:"platformContext"`
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Inbound is a canonical message from a user to the bot. UserID uniquely
// identifies the user within a platform context; it is opaque to the bot and
// must round-trip unchanged so replies can be routed back.
type Inbound struct {
	UserID         string   `json:"userId"`
	MessagePayload *Payload `json:"messagePayload"`
	Profile        Profile  `json:"profile"`
}

// Reply is the bot backend's reply envelope.
type Reply struct {
	UserID         string  `json:"userId"`
	MessagePayload Payload `json:"messagePayload"`
}

// NewTextPayload builds a plain text payload.
func NewTextPayload(text string) *Payload {
	return &Payload{Type: PayloadTypeText, Text: text}
}

// NewPostbackPayload builds a postback payload carrying the opaque value.
func NewPostbackPayload(postback json.RawMessage) *Payload {
	return &Payload{Type: PayloadTypePostback, Postback: postback}
}
