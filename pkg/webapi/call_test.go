package webapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUsesShapeMethod(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		method string
		body   string
	}{
		{
			name:   "post message omits unset optional fields",
			req:    PostMessage{Channel: "C1", Text: "hello"},
			method: MethodChatPostMessage,
			body:   `{"channel":"C1","text":"hello"}`,
		},
		{
			name: "post message with formatting and attachments",
			req: PostMessage{
				Channel:     "C1",
				Text:        "build",
				AsUser:      boolPtr(false),
				IconEmoji:   ":robot_face:",
				Attachments: []Attachment{{Color: "#36a64f", Text: "passed"}},
			},
			method: MethodChatPostMessage,
			body:   `{"channel":"C1","text":"build","as_user":false,"icon_emoji":":robot_face:","attachments":[{"color":"#36a64f","text":"passed"}]}`,
		},
		{
			name:   "add reaction",
			req:    AddReaction{Name: "no_entry_sign", Channel: "C1", Timestamp: "123.4"},
			method: MethodReactionsAdd,
			body:   `{"name":"no_entry_sign","channel":"C1","timestamp":"123.4"}`,
		},
		{
			name:   "conversation history keeps boolean flags",
			req:    ConversationHistory{Channel: "C1", Limit: 10, Oldest: "100.0"},
			method: MethodConversationsHistory,
			body:   `{"channel":"C1","limit":10,"inclusive":false,"oldest":"100.0","unreads":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := Encode(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.method, call.Method)
			assert.JSONEq(t, tt.body, string(call.Body))
		})
	}
}

func TestNewCallRequiresMethod(t *testing.T) {
	_, err := NewCall("  ", map[string]string{})
	require.Error(t, err)

	_, err = Encode(nil)
	require.Error(t, err)
}

func TestNewCallRejectsUnencodablePayload(t *testing.T) {
	_, err := NewCall(MethodChatPostMessage, map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func boolPtr(v bool) *bool { return &v }
