package logger

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const mask = "[redacted]"

// tokenPattern matches workspace bot, user, app and refresh tokens.
var tokenPattern = regexp.MustCompile(`xox[abeprs]-[A-Za-z0-9-]+`)

type masker struct {
	secrets *strings.Replacer
}

func newMasker(secrets []string) masker {
	if len(secrets) == 0 {
		return masker{}
	}

	pairs := make([]string, 0, len(secrets)*2)
	for _, secret := range secrets {
		pairs = append(pairs, secret, mask)
	}
	return masker{secrets: strings.NewReplacer(pairs...)}
}

func (m masker) text(s string) string {
	if m.secrets != nil {
		s = m.secrets.Replace(s)
	}
	return tokenPattern.ReplaceAllString(s, mask)
}

func (m masker) attr(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()

	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, m.text(value.String()))
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, item := range group {
			masked[i] = m.attr(item)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(masked...)}
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, m.text(err.Error()))
		}
	}

	return slog.Attr{Key: attr.Key, Value: value}
}

// redactHandler masks credentials before a record reaches the output handler.
// Errors are flattened to their masked text since their messages may carry
// request URLs with the token in the query string.
type redactHandler struct {
	next   slog.Handler
	masker masker
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, h.masker.text(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(h.masker.attr(attr))
		return true
	})

	return h.next.Handle(ctx, masked)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.masker.attr(attr)
	}
	return &redactHandler{next: h.next.WithAttrs(masked), masker: h.masker}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name), masker: h.masker}
}
