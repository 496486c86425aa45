package telegram

// Update is the webhook payload delivered by the Bot API. Exactly one of the
// message fields is set per update.
type Update struct {
	UpdateID          int64            `json:"update_id"`
	Message           *IncomingMessage `json:"message"`
	EditedMessage     *IncomingMessage `json:"edited_message"`
	ChannelPost       *IncomingMessage `json:"channel_post"`
	EditedChannelPost *IncomingMessage `json:"edited_channel_post"`
}

// Payload returns the message carried by the update and whether it is an
// edit of an earlier message.
func (u *Update) Payload() (msg *IncomingMessage, edited bool) {
	switch {
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost, true
	case u.EditedMessage != nil:
		return u.EditedMessage, true
	case u.ChannelPost != nil:
		return u.ChannelPost, false
	case u.Message != nil:
		return u.Message, false
	default:
		return nil, false
	}
}

// IncomingMessage is the subset of the Bot API message object the engine
// reads.
type IncomingMessage struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Chat      Chat   `json:"chat"`
}

// Body returns the message text, falling back to the caption for media
// posts.
func (m *IncomingMessage) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}
