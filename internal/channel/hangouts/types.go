package hangouts

// Google Chat wire shapes, inbound events and the spaces.messages.create
// payload. Only the fields this adapter reads or writes are modeled.

// Inbound event types.
const (
	eventTypeAdded       = "ADDED_TO_SPACE"
	eventTypeRemoved     = "REMOVED_FROM_SPACE"
	eventTypeMessage     = "MESSAGE"
	eventTypeCardClicked = "CARD_CLICKED"
)

// actionResponseUpdate tells Chat to update the clicked message in place
// instead of rendering the acknowledgment as a new message.
const actionResponseUpdate = "UPDATE_MESSAGE"

// postbackParameterKey names the single parameter a postback button carries;
// its value is the serialized postback echoed back on click.
const postbackParameterKey = "postback"

// chatEvent is the envelope Chat posts to the bot's webhook.
type chatEvent struct {
	Type    string            `json:"type"`
	Token   string            `json:"token"`
	User    chatUser          `json:"user"`
	Space   chatSpace         `json:"space"`
	Message *chatEventMessage `json:"message,omitempty"`
	Action  *formAction       `json:"action,omitempty"`
}

type chatUser struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

type chatSpace struct {
	Name string `json:"name"`
}

type chatEventMessage struct {
	Name         string      `json:"name,omitempty"`
	Text         string      `json:"text,omitempty"`
	ArgumentText string      `json:"argumentText,omitempty"`
	Thread       *chatThread `json:"thread,omitempty"`
	Cards        []chatCard  `json:"cards,omitempty"`
}

type chatThread struct {
	Name string `json:"name"`
}

// clickAck is the synchronous response to a CARD_CLICKED event: the clicked
// message echoed back with an update-in-place action response.
type clickAck struct {
	ActionResponse actionResponse `json:"actionResponse"`
	Text           string         `json:"text,omitempty"`
	Cards          []chatCard     `json:"cards,omitempty"`
}

type actionResponse struct {
	Type string `json:"type"`
}

// chatMessage is the body of a spaces.messages.create call.
type chatMessage struct {
	Text  string     `json:"text,omitempty"`
	Cards []chatCard `json:"cards,omitempty"`
}

type chatCard struct {
	Header   *cardHeader   `json:"header,omitempty"`
	Sections []cardSection `json:"sections"`
}

type cardHeader struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

type cardSection struct {
	Header  string   `json:"header,omitempty"`
	Widgets []widget `json:"widgets"`
}

type widget struct {
	Image    *imageWidget    `json:"image,omitempty"`
	KeyValue *keyValueWidget `json:"keyValue,omitempty"`
	Buttons  []button        `json:"buttons,omitempty"`
}

type imageWidget struct {
	ImageURL string   `json:"imageUrl"`
	OnClick  *onClick `json:"onClick,omitempty"`
}

type keyValueWidget struct {
	TopLabel string   `json:"topLabel,omitempty"`
	Content  string   `json:"content"`
	Icon     string   `json:"icon,omitempty"`
	OnClick  *onClick `json:"onClick,omitempty"`
}

type button struct {
	TextButton  *textButton  `json:"textButton,omitempty"`
	ImageButton *imageButton `json:"imageButton,omitempty"`
}

type textButton struct {
	Text    string   `json:"text"`
	OnClick *onClick `json:"onClick,omitempty"`
}

type imageButton struct {
	Icon    string   `json:"icon"`
	OnClick *onClick `json:"onClick,omitempty"`
}

type onClick struct {
	OpenLink *openLink   `json:"openLink,omitempty"`
	Action   *formAction `json:"action,omitempty"`
}

type openLink struct {
	URL string `json:"url"`
}

type formAction struct {
	ActionMethodName string            `json:"actionMethodName"`
	Parameters       []actionParameter `json:"parameters"`
}

type actionParameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const iconMapPin = "MAP_PIN"

// attachmentIcons maps attachment types to Chat built-in icons. Image is
// intentionally absent: an image attachment renders as the card image itself.
var attachmentIcons = map[string]string{
	"file":     "DESCRIPTION",
	"video":    "VIDEO_PLAY",
	"audio":    "VIDEO_PLAY",
	"location": iconMapPin,
}
