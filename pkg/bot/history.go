package bot

import (
	"strings"
	"sync"
	"time"
)

const defaultHistoryLimit = 10

type HistoryEntry struct {
	Role    string
	Content string
	At      time.Time
}

// History keeps the most recent exchanges per channel.
type History struct {
	limit int

	mu       sync.RWMutex
	channels map[string][]HistoryEntry
}

// NewHistory keeps up to limit entries per channel. A zero limit uses the
// default; a negative limit disables history.
func NewHistory(limit int) *History {
	if limit == 0 {
		limit = defaultHistoryLimit
	}

	return &History{
		limit:    limit,
		channels: make(map[string][]HistoryEntry),
	}
}

func (h *History) Append(channel string, role string, content string) {
	role = strings.TrimSpace(role)
	content = strings.TrimSpace(content)
	if h.limit < 0 || role == "" || content == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.channels[channel], HistoryEntry{
		Role:    role,
		Content: content,
		At:      time.Now().UTC(),
	})
	if overflow := len(entries) - h.limit; overflow > 0 {
		entries = append([]HistoryEntry(nil), entries[overflow:]...)
	}
	h.channels[channel] = entries
}

func (h *History) List(channel string) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.channels[channel]
	if len(entries) == 0 {
		return nil
	}

	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

func (h *History) Clear(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.channels, channel)
}
