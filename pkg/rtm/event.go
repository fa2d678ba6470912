package rtm

import (
	"encoding/json"
	"fmt"
	"strings"

	"rtmbot/pkg/platform"
)

const (
	EventTypeHello   = "hello"
	EventTypeMessage = "message"

	unknownEventPrefix = "unknown event type"
)

// Event is a decoded inbound frame. The set of implementations is closed:
// HelloEvent and MessageEvent.
type Event interface {
	Type() string
	isEvent()
}

// HelloEvent marks the session as live. It carries no payload.
type HelloEvent struct{}

func (HelloEvent) Type() string { return EventTypeHello }
func (HelloEvent) isEvent()     {}

// MessageEvent is a chat message. Subtype is empty for ordinary user
// messages and set for system-generated ones such as edits or joins.
type MessageEvent struct {
	User    string `json:"user"`
	Text    string `json:"text"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
	Subtype string `json:"subtype,omitempty"`
}

func (MessageEvent) Type() string { return EventTypeMessage }
func (MessageEvent) isEvent()     {}

// HasSubtype reports whether the message is system-generated.
func (m MessageEvent) HasSubtype() bool { return m.Subtype != "" }

type frameEnvelope struct {
	Type *string `json:"type"`
}

type wireMessage struct {
	User    *string `json:"user"`
	Text    *string `json:"text"`
	TS      *string `json:"ts"`
	Channel *string `json:"channel"`
	Subtype *string `json:"subtype"`
}

// DecodeEvent parses one text frame. Every failure is a decode failure:
// malformed JSON, a missing type tag, an unknown type, or a message without
// its required fields.
func DecodeEvent(frame []byte) (Event, error) {
	var envelope frameEnvelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, platform.DecodeFailure(err, "decode frame")
	}
	if envelope.Type == nil {
		return nil, platform.DecodeFailure(nil, "frame has no type")
	}

	switch eventType := *envelope.Type; eventType {
	case EventTypeHello:
		return HelloEvent{}, nil
	case EventTypeMessage:
		return decodeMessage(frame)
	default:
		return nil, platform.DecodeFailure(nil, fmt.Sprintf("%s %q", unknownEventPrefix, eventType))
	}
}

// IsUnknownEvent reports whether err came from a well-formed frame whose type
// this runtime does not handle.
func IsUnknownEvent(err error) bool {
	return platform.IsDecodeFailure(err) && strings.HasPrefix(platform.Reason(err), unknownEventPrefix)
}

// decodeMessage requires user, text, ts and channel on ordinary messages.
// Subtyped messages (edits, joins, bot posts) only need channel and ts.
func decodeMessage(frame []byte) (Event, error) {
	var wire wireMessage
	if err := json.Unmarshal(frame, &wire); err != nil {
		return nil, platform.DecodeFailure(err, "decode message frame")
	}

	required := map[string]*string{"ts": wire.TS, "channel": wire.Channel}
	if wire.Subtype == nil || *wire.Subtype == "" {
		required["user"] = wire.User
		required["text"] = wire.Text
	}

	var missing []string
	for _, field := range []string{"user", "text", "ts", "channel"} {
		value, ok := required[field]
		if ok && value == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, platform.DecodeFailure(nil, "message frame missing "+strings.Join(missing, ", "))
	}

	return MessageEvent{
		User:    deref(wire.User),
		Text:    deref(wire.Text),
		TS:      deref(wire.TS),
		Channel: deref(wire.Channel),
		Subtype: deref(wire.Subtype),
	}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
