package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rtmbot/pkg/bus"
	"rtmbot/pkg/logger"
	"rtmbot/pkg/platform"
	"rtmbot/pkg/provider"
	providertypes "rtmbot/pkg/provider/types"
	"rtmbot/pkg/rtm"
	"rtmbot/pkg/webapi"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	failureReaction = "warning"
)

type AssistantOptions struct {
	Completer      provider.Completer
	System         string
	HistoryLimit   int
	RejectReaction string
	Logger         *slog.Logger
}

type question struct {
	channel string
	ts      string
	user    string
	prompt  string
}

// Assistant forwards mentions to a language model. OnMessage only queues the
// question; a worker goroutine asks the model and posts the answer.
type Assistant struct {
	poster    Poster
	self      platform.AccountIdentity
	completer provider.Completer
	system    string
	history   *History
	reject    string
	log       *slog.Logger

	questions *bus.Queue[question]
	running   atomic.Bool
	done      chan struct{}
	abort     chan struct{}
	abortOnce sync.Once
}

// AssistantFactory returns a factory that starts one assistant per session.
// The session stops it through Stop when its read loop ends; ctx bounds the
// assistant for callers that never run a session.
func AssistantFactory(ctx context.Context, opts AssistantOptions) rtm.Factory {
	return func(relay webapi.Handle, account platform.AccountIdentity, workspace platform.WorkspaceIdentity) rtm.Logic {
		assistant := NewAssistant(relay, account, opts)
		assistant.log.Info("Bot launched", "bot_name", account.Name, "workspace", workspace.Domain)
		assistant.Start(ctx)
		return assistant
	}
}

// NewAssistant builds an assistant. Call Run to start answering.
func NewAssistant(poster Poster, account platform.AccountIdentity, opts AssistantOptions) *Assistant {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Assistant{
		poster:    poster,
		self:      account,
		completer: opts.Completer,
		system:    strings.TrimSpace(opts.System),
		history:   NewHistory(opts.HistoryLimit),
		reject:    rejectReaction(opts.RejectReaction),
		log:       log.With("component", "bot.assistant", "bot_id", account.ID),
		questions: bus.NewQueue[question](),
		done:      make(chan struct{}),
		abort:     make(chan struct{}),
	}
}

func (a *Assistant) OnMessage(event rtm.MessageEvent) {
	if ignorable(event, a.self.ID) {
		return
	}

	prompt, ok := parseMention(event.Text, a.self.ID)
	if !ok {
		return
	}
	if prompt == "" {
		a.post(webapi.AddReaction{Name: a.reject, Channel: event.Channel, Timestamp: event.TS})
		return
	}

	q := question{channel: event.Channel, ts: event.TS, user: event.User, prompt: prompt}
	if !a.questions.Publish(q) {
		a.log.Warn("Assistant stopped, dropping question", "channel", event.Channel, "ts", event.TS)
		return
	}
	a.log.Debug("Queued question", "channel", event.Channel, "pending", a.questions.Len())
}

// Start runs the worker in its own goroutine.
func (a *Assistant) Start(ctx context.Context) {
	a.running.Store(true)
	go a.Run(ctx)
}

// Run answers queued questions one at a time. It returns when ctx ends or
// when the queue is closed and drained.
func (a *Assistant) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	a.running.Store(true)
	defer close(a.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.abort:
			cancel()
		case <-ctx.Done():
		}
	}()

	for ctx.Err() == nil {
		q, ok := a.questions.Consume(ctx)
		if !ok {
			return
		}
		a.answer(ctx, q)
	}
}

// Close stops accepting questions. Queued questions are still answered.
func (a *Assistant) Close() {
	a.questions.Close()
}

// Done is closed when Run returns.
func (a *Assistant) Done() <-chan struct{} {
	return a.done
}

// Stop closes the question queue and waits for the worker to answer what is
// already queued. Once ctx ends the answer in flight is cancelled and the
// remaining questions are dropped.
func (a *Assistant) Stop(ctx context.Context) {
	a.Close()
	if !a.running.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-a.done:
		return
	case <-ctx.Done():
	}

	a.abortOnce.Do(func() { close(a.abort) })
	<-a.done
	if pending := a.questions.Len(); pending > 0 {
		a.log.Warn("Assistant stopped with questions unanswered", "pending", pending)
	}
}

func (a *Assistant) answer(ctx context.Context, q question) {
	log := a.log.With("channel", q.channel, "ts", q.ts, "user", q.user)
	startedAt := time.Now()

	if a.completer == nil {
		log.Error("Assistant has no provider")
		a.post(webapi.AddReaction{Name: failureReaction, Channel: q.channel, Timestamp: q.ts})
		return
	}

	result, err := a.completer.Complete(ctx, providertypes.CompletionRequest{
		System: a.system,
		Prompt: a.transcript(q),
	})
	if err != nil {
		log.Error("Completion failed", "error", err, "duration_ms", time.Since(startedAt).Milliseconds())
		a.post(webapi.AddReaction{Name: failureReaction, Channel: q.channel, Timestamp: q.ts})
		return
	}

	a.history.Append(q.channel, roleUser, q.prompt)
	a.history.Append(q.channel, roleAssistant, result.Text)

	log.Info("Answering question",
		"model", result.Model,
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"reply", logger.Preview(result.Text),
	)
	a.post(webapi.PostMessage{Channel: q.channel, Text: result.Text})
}

// transcript renders earlier turns of the channel followed by the question.
func (a *Assistant) transcript(q question) string {
	entries := a.history.List(q.channel)
	if len(entries) == 0 {
		return q.prompt
	}

	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(entry.Role)
		b.WriteString(": ")
		b.WriteString(entry.Content)
		b.WriteString("\n")
	}
	b.WriteString(roleUser)
	b.WriteString(": ")
	b.WriteString(q.prompt)

	return b.String()
}

func (a *Assistant) post(req webapi.Request) {
	if err := a.poster.Post(req); err != nil {
		a.log.Warn("Failed to enqueue call", "method", req.Method(), "error", err)
	}
}
