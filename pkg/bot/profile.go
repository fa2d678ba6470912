package bot

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed templates/*.md
var templatesFS embed.FS

// ResolveSystemProfile loads the embedded system prompt for a bot.
func ResolveSystemProfile(name string) (string, error) {
	content, err := templatesFS.ReadFile(templatePath(name))
	if err != nil {
		return "", fmt.Errorf("load %s profile template: %w", name, err)
	}

	profile := strings.TrimSpace(string(content))
	if profile == "" {
		return "", fmt.Errorf("profile template %q is empty", name)
	}

	return profile, nil
}

func templatePath(templateName string) string {
	return "templates/" + strings.TrimSpace(templateName) + ".md"
}
