package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rtmbot/pkg/config"
	provideropenai "rtmbot/pkg/provider/openai"
	providertypes "rtmbot/pkg/provider/types"
)

const DefaultProvider = "openai"

// Completer answers a single prompt with model output.
type Completer interface {
	Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.Completion, error)
}

func New(cfg *config.Config, providerID string) (Completer, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		providerID = DefaultProvider
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving provider client", "provider", providerID)

	switch providerID {
	case "openai":
		return provideropenai.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
