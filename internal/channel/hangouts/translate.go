package hangouts

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/zlc_ai/chatbridge/internal/message"
)

// toChatMessage maps a canonical payload onto the native Chat message shape.
// An unrecognized payload type degrades to a raw text rendering so a reply is
// never dropped.
func (a *Adapter) toChatMessage(payload *message.Payload) *chatMessage {
	msg := &chatMessage{}

	switch payload.Type {
	case message.PayloadTypeText:
		msg.Text = payload.Text
		if card, ok := actionsCard(payload.Actions, payload.GlobalActions); ok {
			msg.Cards = []chatCard{card}
		}

	case message.PayloadTypeCard:
		cards := make([]chatCard, 0, len(payload.Cards)+1)
		for _, c := range payload.Cards {
			card := newCard(c.Title, c.Description, c.ImageURL, c.URL)
			addActionSections(&card, c.Actions, nil)
			cards = append(cards, card)
		}
		// Top-level actions become one supplementary card after the others.
		if card, ok := actionsCard(payload.Actions, payload.GlobalActions); ok {
			cards = append(cards, card)
		}
		msg.Cards = cards

	case message.PayloadTypeAttachment:
		card := attachmentCard(payload.Attachment)
		addActionSections(&card, payload.Actions, payload.GlobalActions)
		msg.Cards = []chatCard{card}

	case message.PayloadTypeLocation:
		card := locationCard(payload.Location)
		addActionSections(&card, payload.Actions, payload.GlobalActions)
		msg.Cards = []chatCard{card}

	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			raw = []byte(payload.Type)
		}
		msg.Text = fmt.Sprintf("We received a response, but could not format it: %s", raw)
	}

	return msg
}

// newCard builds a native card; a non-empty image URL becomes its own
// section, clickable when a link URL is given.
func newCard(title, subtitle, imageURL, linkURL string) chatCard {
	card := chatCard{Sections: []cardSection{}}
	if title != "" {
		card.Header = &cardHeader{Title: title, Subtitle: subtitle}
	}
	if imageURL != "" {
		img := &imageWidget{ImageURL: imageURL}
		if linkURL != "" {
			img.OnClick = &onClick{OpenLink: &openLink{URL: linkURL}}
		}
		card.Sections = append(card.Sections, cardSection{Widgets: []widget{{Image: img}}})
	}
	return card
}

// actionsCard wraps top-level actions into one supplementary card. ok is
// false when there are no actions at all.
func actionsCard(actions, globalActions []message.Action) (card chatCard, ok bool) {
	if len(actions) == 0 && len(globalActions) == 0 {
		return chatCard{}, false
	}
	card = newCard("", "", "", "")
	addActionSections(&card, actions, globalActions)
	return card, true
}

// addActionSections appends one buttons section per non-empty action group.
// A group whose actions are all unsupported produces no section.
func addActionSections(card *chatCard, actions, globalActions []message.Action) {
	for _, group := range [][]message.Action{actions, globalActions} {
		buttons := actionButtons(group)
		if len(buttons) == 0 {
			continue
		}
		card.Sections = append(card.Sections, cardSection{Widgets: []widget{{Buttons: buttons}}})
	}
}

// actionButtons maps canonical actions onto text buttons. Unknown action
// types are dropped rather than failing the whole reply.
func actionButtons(actions []message.Action) []button {
	var buttons []button
	for _, action := range actions {
		var click *onClick
		switch action.Type {
		case message.ActionTypePostback:
			click = &onClick{Action: &formAction{
				ActionMethodName: postbackParameterKey,
				Parameters: []actionParameter{{
					Key: postbackParameterKey,
					// Parameter values must be strings; the serialized form
					// is echoed back unmodified on click.
					Value: string(action.Postback),
				}},
			}}
		case message.ActionTypeURL:
			click = &onClick{OpenLink: &openLink{URL: action.URL}}
		case message.ActionTypeCall:
			click = &onClick{OpenLink: &openLink{URL: "tel:" + action.PhoneNumber}}
		default:
			continue
		}
		buttons = append(buttons, button{TextButton: &textButton{Text: action.Label, OnClick: click}})
	}
	return buttons
}

// attachmentCard renders an attachment, defaulting to an inline image; types
// with a known icon get an icon button plus an OPEN link instead.
func attachmentCard(att *message.Attachment) chatCard {
	if att == nil {
		return newCard("", "", "", "")
	}
	card := newCard("", "", att.URL, "")
	if icon, ok := attachmentIcons[att.Type]; ok {
		open := &onClick{OpenLink: &openLink{URL: att.URL}}
		card.Sections = []cardSection{{
			Widgets: []widget{{
				Buttons: []button{
					{ImageButton: &imageButton{Icon: icon, OnClick: open}},
					{TextButton: &textButton{Text: "OPEN", OnClick: open}},
				},
			}},
		}}
	}
	return card
}

// locationCard renders a location as a key/value widget with the coordinates
// as content, clickable when a location URL is present.
func locationCard(loc *message.Location) chatCard {
	card := newCard("", "", "", "")
	if loc == nil {
		return card
	}
	if loc.Title != "" {
		card.Header = &cardHeader{Title: loc.Title}
	}
	kv := &keyValueWidget{
		TopLabel: "Location",
		Icon:     iconMapPin,
		Content:  formatCoordinates(loc.Latitude, loc.Longitude),
	}
	if loc.URL != "" {
		kv.OnClick = &onClick{OpenLink: &openLink{URL: loc.URL}}
	}
	card.Sections = append(card.Sections, cardSection{Widgets: []widget{{KeyValue: kv}}})
	return card
}

func formatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lng, 'f', -1, 64)
}
