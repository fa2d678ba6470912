// Package platform holds the identities, response envelope and error
// taxonomy shared by the handshake, the session loop and the outbound relay.
package platform

import "strings"

// DefaultAPIBaseURL is the Web API root every method path is appended to.
const DefaultAPIBaseURL = "https://slack.com/api"

// AccountIdentity identifies the bot account a session is bound to.
type AccountIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkspaceIdentity identifies the workspace (team) a session is bound to.
type WorkspaceIdentity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// GenericResult is the {ok, error} envelope wrapping every API response.
type GenericResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BaseURL returns baseURL without trailing slashes, or the default root when empty.
func BaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return DefaultAPIBaseURL
	}

	return trimmed
}

// MethodURL joins an API root and a method name such as "chat.postMessage".
func MethodURL(baseURL string, method string) string {
	return BaseURL(baseURL) + "/" + strings.TrimLeft(strings.TrimSpace(method), "/")
}
