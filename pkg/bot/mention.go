package bot

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"rtmbot/pkg/logger"
	"rtmbot/pkg/platform"
	"rtmbot/pkg/rtm"
	"rtmbot/pkg/webapi"
)

const commandHelp = "help"

// DefaultCommands are always available to the mention bot. Configured
// commands with the same name replace them.
var DefaultCommands = map[string]string{
	"share-play": "share play",
}

type MentionOptions struct {
	Commands       map[string]string
	RejectReaction string
	Logger         *slog.Logger
}

// Mention answers "<@bot> command" with the command's canned reply and
// reacts to unknown commands.
type Mention struct {
	poster    Poster
	self      platform.AccountIdentity
	workspace platform.WorkspaceIdentity
	commands  map[string]string
	reject    string
	log       *slog.Logger
}

func MentionFactory(opts MentionOptions) rtm.Factory {
	return func(relay webapi.Handle, account platform.AccountIdentity, workspace platform.WorkspaceIdentity) rtm.Logic {
		return NewMention(relay, account, workspace, opts)
	}
}

func NewMention(poster Poster, account platform.AccountIdentity, workspace platform.WorkspaceIdentity, opts MentionOptions) *Mention {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	commands := make(map[string]string, len(DefaultCommands)+len(opts.Commands))
	maps.Copy(commands, DefaultCommands)
	for name, reply := range opts.Commands {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || strings.TrimSpace(reply) == "" {
			continue
		}
		commands[name] = reply
	}

	m := &Mention{
		poster:    poster,
		self:      account,
		workspace: workspace,
		commands:  commands,
		reject:    rejectReaction(opts.RejectReaction),
		log:       log.With("component", "bot.mention", "bot_id", account.ID),
	}
	m.log.Info("Bot launched", "bot_name", account.Name, "workspace", workspace.Domain, "commands", len(commands))

	return m
}

func (m *Mention) OnMessage(event rtm.MessageEvent) {
	if ignorable(event, m.self.ID) {
		return
	}

	command, ok := parseMention(event.Text, m.self.ID)
	if !ok {
		m.log.Debug("Ignoring message without mention", "channel", event.Channel, "ts", event.TS)
		return
	}
	command = strings.ToLower(command)

	if reply, known := m.reply(command); known {
		m.log.Info("Answering command", "command", command, "channel", event.Channel, "user", event.User)
		m.post(webapi.PostMessage{Channel: event.Channel, Text: reply})
		return
	}

	m.log.Info("Rejecting unknown command", "command", logger.Preview(command), "channel", event.Channel)
	m.post(webapi.AddReaction{Name: m.reject, Channel: event.Channel, Timestamp: event.TS})
}

func (m *Mention) reply(command string) (string, bool) {
	if command == commandHelp {
		return "Commands: " + strings.Join(m.commandNames(), ", "), true
	}

	reply, ok := m.commands[command]
	return reply, ok
}

func (m *Mention) commandNames() []string {
	names := slices.Collect(maps.Keys(m.commands))
	names = append(names, commandHelp)
	slices.Sort(names)
	return names
}

func (m *Mention) post(req webapi.Request) {
	if err := m.poster.Post(req); err != nil {
		m.log.Warn("Failed to enqueue call", "method", req.Method(), "error", err)
	}
}
