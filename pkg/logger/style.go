package logger

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	charmLog "github.com/charmbracelet/log"
)

const previewLimit = 240

var levelBadges = map[charmLog.Level]struct {
	label string
	color string
}{
	charmLog.DebugLevel: {label: "DEBU", color: "63"},
	charmLog.InfoLevel:  {label: "INFO", color: "86"},
	charmLog.WarnLevel:  {label: "WARN", color: "192"},
	charmLog.ErrorLevel: {label: "ERRO", color: "204"},
}

// textStyles renders level names as colored badges and highlights the keys
// used to follow one session through the log.
func textStyles() *charmLog.Styles {
	styles := charmLog.DefaultStyles()

	for level, badge := range levelBadges {
		styles.Levels[level] = lipgloss.NewStyle().
			SetString(badge.label).
			Bold(true).
			Padding(0, 1, 0, 1).
			Background(lipgloss.Color(badge.color)).
			Foreground(lipgloss.Color("0"))
	}

	for _, key := range []string{"session_id", "component", "method"} {
		styles.Keys[key] = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	}
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Values["error"] = lipgloss.NewStyle().Bold(true)

	return styles
}

// Preview flattens text onto one line and bounds it for log fields.
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= previewLimit {
		return text
	}

	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}

	return string(runes[:previewLimit]) + "..."
}
