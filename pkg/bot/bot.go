// Package bot holds the built-in bot logics and the registry that resolves
// them by name.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rtmbot/pkg/config"
	"rtmbot/pkg/provider"
	"rtmbot/pkg/rtm"
	"rtmbot/pkg/webapi"
)

const (
	NameMention   = "mention"
	NameAssistant = "assistant"

	DefaultRejectReaction = "no_entry_sign"
)

// Poster is the part of the relay handle a bot needs.
type Poster interface {
	Post(req webapi.Request) error
}

// Names lists the registered bot names.
func Names() []string {
	return []string{NameMention, NameAssistant}
}

// New resolves a bot by name and returns its session factory. An empty name
// selects the mention bot. ctx bounds any background work the bot starts.
func New(ctx context.Context, name string, cfg *config.Config, log *slog.Logger) (rtm.Factory, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if log == nil {
		log = slog.Default()
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = NameMention
	}

	log.With("component", "bot.registry").Debug("Resolving bot", "bot", name)

	switch name {
	case NameMention:
		return MentionFactory(MentionOptions{
			Commands:       cfg.Bot.Commands,
			RejectReaction: cfg.Bot.RejectReaction,
			Logger:         log,
		}), nil
	case NameAssistant:
		completer, err := provider.New(cfg, provider.DefaultProvider)
		if err != nil {
			return nil, fmt.Errorf("create assistant provider: %w", err)
		}
		system, err := ResolveSystemProfile(NameAssistant)
		if err != nil {
			return nil, err
		}
		return AssistantFactory(ctx, AssistantOptions{
			Completer:      completer,
			System:         system,
			HistoryLimit:   cfg.Bot.HistoryLimit,
			RejectReaction: cfg.Bot.RejectReaction,
			Logger:         log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown bot %q (available: %s)", name, strings.Join(Names(), ", "))
	}
}

// parseMention returns the text after a leading mention of selfID. It accepts
// "<@U1> cmd", "<@U1>: cmd" and "<@U1|name> cmd".
func parseMention(text string, selfID string) (string, bool) {
	if selfID == "" {
		return "", false
	}

	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, "<@"+selfID)
	if !ok {
		return "", false
	}

	switch {
	case strings.HasPrefix(rest, ">"):
		rest = rest[1:]
	case strings.HasPrefix(rest, "|"):
		end := strings.Index(rest, ">")
		if end < 0 {
			return "", false
		}
		rest = rest[end+1:]
	default:
		return "", false
	}

	rest = strings.TrimPrefix(strings.TrimSpace(rest), ":")
	return strings.TrimSpace(rest), true
}

// ignorable reports messages no bot should answer: system messages and the
// bot's own posts.
func ignorable(event rtm.MessageEvent, selfID string) bool {
	return event.HasSubtype() || (selfID != "" && event.User == selfID)
}

func rejectReaction(name string) string {
	name = strings.Trim(strings.TrimSpace(name), ":")
	if name == "" {
		return DefaultRejectReaction
	}
	return name
}
