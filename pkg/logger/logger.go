package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"

	"rtmbot/pkg/config"
)

const (
	envFormat    = "RTMBOT_LOG_FORMAT"
	envLevel     = "RTMBOT_LOG_LEVEL"
	envAddSource = "RTMBOT_LOG_ADD_SOURCE"
)

// Entry is one JSON log line. The keys that place a line within a session
// are lifted out of Fields.
type Entry struct {
	Level       string         `json:"level"`
	Timestamp   string         `json:"timestamp"`
	Component   string         `json:"component,omitempty"`
	SessionID   string         `json:"session_id,omitempty"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	Message     string         `json:"message"`
	Fields      map[string]any `json:"fields,omitempty"`
	Caller      string         `json:"caller,omitempty"`
}

type settings struct {
	json      bool
	level     slog.Level
	addSource bool
	secrets   []string
}

// Option adjusts a logger built by New.
type Option func(*settings)

// WithSecrets masks every occurrence of the given values in messages, string
// attributes and error text. Empty values are skipped.
func WithSecrets(secrets ...string) Option {
	return func(s *settings) {
		for _, secret := range secrets {
			if secret = strings.TrimSpace(secret); secret != "" {
				s.secrets = append(s.secrets, secret)
			}
		}
	}
}

// New builds the process logger from cfg; RTMBOT_LOG_* variables win over it.
// Workspace tokens are always masked, whether or not they were passed to
// WithSecrets.
func New(cfg config.LoggingConfig, opts ...Option) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr, opts...)
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer, opts ...Option) (*slog.Logger, error) {
	s, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(&s)
	}

	var handler slog.Handler
	if s.json {
		handler = &entryHandler{level: s.level, addSource: s.addSource, writer: writer, mu: &sync.Mutex{}}
	} else {
		pretty := charmLog.NewWithOptions(writer, charmLog.Options{
			Level:           charmLevel(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.addSource,
			Formatter:       charmLog.TextFormatter,
		})
		pretty.SetStyles(textStyles())
		handler = pretty
	}

	return slog.New(&redactHandler{next: handler, masker: newMasker(s.secrets)}), nil
}

func resolve(cfg config.LoggingConfig) (settings, error) {
	format := firstNonEmpty(os.Getenv(envFormat), cfg.Format, "text")
	switch strings.ToLower(format) {
	case "json":
	case "text":
	default:
		return settings{}, fmt.Errorf("unsupported log format %q", format)
	}

	level, err := parseLevel(firstNonEmpty(os.Getenv(envLevel), cfg.Level, "info"))
	if err != nil {
		return settings{}, err
	}

	addSource := cfg.AddSource
	if env := strings.TrimSpace(os.Getenv(envAddSource)); env != "" {
		addSource = parseBool(env)
	}

	return settings{
		json:      strings.EqualFold(format, "json"),
		level:     level,
		addSource: addSource,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func parseLevel(input string) (slog.Level, error) {
	switch strings.ToLower(input) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unsupported log level %q", input)
}

func parseBool(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func charmLevel(level slog.Level) charmLog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmLog.DebugLevel
	case level <= slog.LevelInfo:
		return charmLog.InfoLevel
	case level <= slog.LevelWarn:
		return charmLog.WarnLevel
	default:
		return charmLog.ErrorLevel
	}
}

// entryHandler writes one Entry per record.
type entryHandler struct {
	level     slog.Level
	addSource bool
	writer    io.Writer
	attrs     []slog.Attr
	groups    []string
	mu        *sync.Mutex
}

func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *entryHandler) Handle(_ context.Context, record slog.Record) error {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}
	entry := Entry{
		Level:     strings.ToLower(record.Level.String()),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   record.Message,
	}

	fields := make(map[string]any)
	for _, attr := range h.attrs {
		entry.add(fields, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		entry.add(fields, h.groups, attr)
		return true
	})
	if len(fields) > 0 {
		entry.Fields = fields
	}
	if h.addSource {
		entry.Caller = caller(record.PC)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(append(line, '\n'))
	return err
}

func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *entryHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string{}, h.groups...), name)
	return &next
}

// add files attr under its grouped key, lifting the session keys. A later
// component replaces an earlier one.
func (e *Entry) add(fields map[string]any, groups []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	key := strings.Join(append(append([]string{}, groups...), attr.Key), ".")
	if attr.Value.Kind() == slog.KindString {
		switch key {
		case "component":
			e.Component = attr.Value.String()
			return
		case "session_id":
			e.SessionID = attr.Value.String()
			return
		case "workspace_id":
			e.WorkspaceID = attr.Value.String()
			return
		}
	}

	fields[key] = plain(attr.Value)
}

func plain(value slog.Value) any {
	switch value.Kind() {
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		group := make(map[string]any, len(value.Group()))
		for _, item := range value.Group() {
			group[item.Key] = plain(item.Value.Resolve())
		}
		return group
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return err.Error()
		}
		return value.Any()
	default:
		return value.Any()
	}
}

func caller(pc uintptr) string {
	if pc == 0 {
		return ""
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
