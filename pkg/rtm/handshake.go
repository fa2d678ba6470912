package rtm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"rtmbot/pkg/platform"
)

const (
	methodConnect         = "rtm.connect"
	maxHandshakeBodyBytes = 1 << 20
)

// ErrEndpointConsumed is returned when a session URL is taken a second time.
var ErrEndpointConsumed = errors.New("session endpoint already consumed")

// SessionEndpoint is the result of a successful handshake. The socket URL is
// single use and handed out once by TakeURL.
type SessionEndpoint struct {
	Account   platform.AccountIdentity
	Workspace platform.WorkspaceIdentity

	mu    sync.Mutex
	url   string
	taken bool
}

// NewSessionEndpoint builds an endpoint from already-resolved values.
func NewSessionEndpoint(socketURL string, account platform.AccountIdentity, workspace platform.WorkspaceIdentity) *SessionEndpoint {
	return &SessionEndpoint{
		Account:   account,
		Workspace: workspace,
		url:       socketURL,
	}
}

// TakeURL returns the socket URL the first time and ErrEndpointConsumed after.
func (e *SessionEndpoint) TakeURL() (string, error) {
	if e == nil {
		return "", ErrEndpointConsumed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.taken {
		return "", ErrEndpointConsumed
	}
	e.taken = true

	return e.url, nil
}

type connectResponse struct {
	platform.GenericResult
	URL  string                     `json:"url"`
	Team platform.WorkspaceIdentity `json:"team"`
	Self platform.AccountIdentity   `json:"self"`
}

// Connect exchanges credential for a one-time session endpoint with a single
// rtm.connect request. It never retries.
func Connect(ctx context.Context, credential string, opts ...Option) (*SessionEndpoint, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, goerrors.New("credential is required", goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode("RTM_CREDENTIAL_REQUIRED")
	}

	o := buildOptions(opts)
	log := o.log.With("component", "rtm.handshake")

	endpoint := platform.MethodURL(o.apiBaseURL, methodConnect) + "?" + url.Values{"token": {credential}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, platform.TransportFailure(err, "build handshake request")
	}

	log.Debug("Requesting session endpoint", "base_url", o.apiBaseURL)
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, platform.TransportFailure(err, "handshake request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHandshakeBodyBytes))
	if err != nil {
		return nil, platform.TransportFailure(err, "read handshake response")
	}

	var result connectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, platform.TransportFailure(err, fmt.Sprintf("decode handshake response (status %d)", resp.StatusCode))
	}

	if !result.OK {
		log.Warn("Handshake rejected", "platform_error", result.Error, "status", resp.StatusCode)
		return nil, platform.HandshakeFailure(result.Error)
	}
	if strings.TrimSpace(result.URL) == "" {
		return nil, platform.TransportFailure(nil, "handshake response has no session url")
	}

	log.Info("Handshake completed",
		"account_id", result.Self.ID,
		"account_name", result.Self.Name,
		"workspace_id", result.Team.ID,
		"workspace_domain", result.Team.Domain,
	)

	return NewSessionEndpoint(result.URL, result.Self, result.Team), nil
}
