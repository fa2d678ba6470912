package webapi

const (
	MethodChatPostMessage      = "chat.postMessage"
	MethodReactionsAdd         = "reactions.add"
	MethodConversationsHistory = "conversations.history"
)

// PostMessage is the chat.postMessage payload.
type PostMessage struct {
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	AsUser      *bool        `json:"as_user,omitempty"`
	IconEmoji   string       `json:"icon_emoji,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Username    string       `json:"username,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is one legacy message attachment.
type Attachment struct {
	Color string `json:"color,omitempty"`
	Text  string `json:"text"`
}

func (PostMessage) Method() string { return MethodChatPostMessage }

// AddReaction is the reactions.add payload.
type AddReaction struct {
	Name      string `json:"name"`
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
}

func (AddReaction) Method() string { return MethodReactionsAdd }

// ConversationHistory is the conversations.history payload.
//
// The relay only reports the envelope, so the returned messages are not
// surfaced to the caller.
type ConversationHistory struct {
	Channel   string `json:"channel"`
	Limit     int    `json:"limit,omitempty"`
	Inclusive bool   `json:"inclusive"`
	Latest    string `json:"latest,omitempty"`
	Oldest    string `json:"oldest,omitempty"`
	Unreads   bool   `json:"unreads"`
}

func (ConversationHistory) Method() string { return MethodConversationsHistory }
