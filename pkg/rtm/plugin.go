package rtm

import (
	"context"

	"rtmbot/pkg/platform"
	"rtmbot/pkg/webapi"
)

// Logic reacts to inbound messages. OnMessage runs on the session's read
// goroutine, once per message frame, in frame order; it must not block.
// Outbound work goes through the relay handle given to the Factory.
type Logic interface {
	OnMessage(event MessageEvent)
}

// Factory builds the bot logic once per session, before any frame is read.
type Factory func(relay webapi.Handle, account platform.AccountIdentity, workspace platform.WorkspaceIdentity) Logic

// Stopper is implemented by logic that keeps work running outside
// OnMessage. Session.Run calls Stop once the read loop ends and before the
// relay drains, passing the session context.
type Stopper interface {
	Stop(ctx context.Context)
}

// NopLogic ignores every message. Embed it to get a default OnMessage.
type NopLogic struct{}

func (NopLogic) OnMessage(MessageEvent) {}

// LogicFunc adapts a plain function to Logic.
type LogicFunc func(event MessageEvent)

func (f LogicFunc) OnMessage(event MessageEvent) { f(event) }
