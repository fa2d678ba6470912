package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtmbot/pkg/rtm"
	"rtmbot/pkg/webapi"
)

func TestMentionAnswersSharePlay(t *testing.T) {
	poster := &fakePoster{}
	m := NewMention(poster, testAccount, testWorkspace, MentionOptions{})

	m.OnMessage(message("<@U1> share-play"))

	require.Len(t, poster.requests(), 1)
	assert.Equal(t, webapi.PostMessage{Channel: "C1", Text: "share play"}, poster.requests()[0])
}

func TestMentionRejectsUnknownCommandWithReaction(t *testing.T) {
	poster := &fakePoster{}
	m := NewMention(poster, testAccount, testWorkspace, MentionOptions{})

	m.OnMessage(message("<@U1> dance"))

	require.Len(t, poster.requests(), 1)
	assert.Equal(t, webapi.AddReaction{Name: "no_entry_sign", Channel: "C1", Timestamp: "123.4"}, poster.requests()[0])
}

func TestMentionUsesConfiguredCommandsAndReaction(t *testing.T) {
	poster := &fakePoster{}
	m := NewMention(poster, testAccount, testWorkspace, MentionOptions{
		Commands:       map[string]string{" Ping ": "pong", "share-play": "custom", "blank": " "},
		RejectReaction: ":x:",
	})

	m.OnMessage(message("<@U1> PING"))
	m.OnMessage(message("<@U1> share-play"))
	m.OnMessage(message("<@U1> blank"))

	assert.Equal(t, []webapi.Request{
		webapi.PostMessage{Channel: "C1", Text: "pong"},
		webapi.PostMessage{Channel: "C1", Text: "custom"},
		webapi.AddReaction{Name: "x", Channel: "C1", Timestamp: "123.4"},
	}, poster.requests())
}

func TestMentionHelpListsCommands(t *testing.T) {
	poster := &fakePoster{}
	m := NewMention(poster, testAccount, testWorkspace, MentionOptions{
		Commands: map[string]string{"ping": "pong"},
	})

	m.OnMessage(message("<@U1> help"))

	require.Len(t, poster.requests(), 1)
	assert.Equal(t, webapi.PostMessage{Channel: "C1", Text: "Commands: help, ping, share-play"}, poster.requests()[0])
}

func TestMentionIgnoresUnaddressedSubtypedAndOwnMessages(t *testing.T) {
	poster := &fakePoster{}
	m := NewMention(poster, testAccount, testWorkspace, MentionOptions{})

	m.OnMessage(message("share-play"))
	m.OnMessage(rtm.MessageEvent{Text: "<@U1> share-play", TS: "1", Channel: "C1", Subtype: "message_changed"})
	m.OnMessage(rtm.MessageEvent{User: "U1", Text: "<@U1> share-play", TS: "1", Channel: "C1"})

	assert.Empty(t, poster.requests())
}

func TestMentionFactoryBuildsLogicFromIdentities(t *testing.T) {
	factory := MentionFactory(MentionOptions{})

	logic := factory(webapi.Handle{}, testAccount, testWorkspace)
	m, ok := logic.(*Mention)
	require.True(t, ok)
	assert.Equal(t, testAccount, m.self)
	assert.Equal(t, testWorkspace, m.workspace)
}
