package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtmbot/pkg/config"
	"rtmbot/pkg/platform"
)

type fakeWorkspace struct {
	*httptest.Server

	handshake string
	frames    []string

	mu    sync.Mutex
	calls map[string][]string
}

func newFakeWorkspace(t *testing.T, handshake string, frames ...string) *fakeWorkspace {
	t.Helper()

	ws := &fakeWorkspace{handshake: handshake, frames: frames, calls: make(map[string][]string)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rtm.connect", func(w http.ResponseWriter, _ *http.Request) {
		body := strings.ReplaceAll(ws.handshake, "SOCKET_URL", "ws"+strings.TrimPrefix(ws.URL, "http")+"/socket")
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ws.mu.Lock()
		method := strings.TrimPrefix(r.URL.Path, "/api/")
		ws.calls[method] = append(ws.calls[method], string(body))
		ws.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, frame := range ws.frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ws.Server = httptest.NewServer(mux)
	t.Cleanup(ws.Close)
	return ws
}

func (ws *fakeWorkspace) callsTo(method string) []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]string(nil), ws.calls[method]...)
}

const okHandshake = `{"ok":true,"url":"SOCKET_URL","team":{"id":"T1","name":"Acme","domain":"acme"},"self":{"id":"U1","name":"bot"}}`

// isolateEnv points config discovery at an empty directory and clears env overrides.
func isolateEnv(t *testing.T) {
	t.Helper()

	t.Chdir(t.TempDir())
	for _, key := range []string{"RTMBOT_CONFIG", "SLACK_API_TOKEN", "RTMBOT_API_BASE_URL", "RTMBOT_BOT", "RTMBOT_LOG_LEVEL", "RTMBOT_LOG_FORMAT", "RTMBOT_LOG_ADD_SOURCE"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	t.Setenv("RTMBOT_LOG_LEVEL", "error")
}

func TestRunBotAnswersMentionsEndToEnd(t *testing.T) {
	isolateEnv(t)
	ws := newFakeWorkspace(t, okHandshake,
		`{"type":"hello"}`,
		`{"type":"message","user":"U2","text":"<@U1> share-play","ts":"1.0","channel":"C1"}`,
		`{"type":"message","user":"U2","text":"<@U1> dance","ts":"2.0","channel":"C1"}`,
	)
	t.Setenv("SLACK_API_TOKEN", "xoxb-test")
	t.Setenv("RTMBOT_API_BASE_URL", ws.URL+"/api")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, runBot(ctx, "", ""))

	require.Eventually(t, func() bool {
		return len(ws.callsTo("chat.postMessage")) == 1 && len(ws.callsTo("reactions.add")) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.JSONEq(t, `{"channel":"C1","text":"share play"}`, ws.callsTo("chat.postMessage")[0])
	assert.JSONEq(t, `{"name":"no_entry_sign","channel":"C1","timestamp":"2.0"}`, ws.callsTo("reactions.add")[0])
}

func TestRunBotLoadsTokenFromEnvFile(t *testing.T) {
	isolateEnv(t)
	ws := newFakeWorkspace(t, `{"ok":false,"error":"invalid_auth"}`)
	t.Setenv("RTMBOT_API_BASE_URL", ws.URL+"/api")

	envPath := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(envPath, []byte("SLACK_API_TOKEN=xoxb-from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SLACK_API_TOKEN") })

	err := runBot(context.Background(), envPath, "")
	require.Error(t, err)
	assert.True(t, platform.IsHandshakeFailure(err))
	assert.Equal(t, "invalid_auth", platform.Reason(err))
}

func TestRunBotRequiresCredential(t *testing.T) {
	isolateEnv(t)

	err := runBot(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack.token")
}

func TestRunBotRejectsUnknownBot(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SLACK_API_TOKEN", "xoxb-test")

	err := runBot(context.Background(), "", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bot")
}

func TestCheckConnectionPrintsIdentity(t *testing.T) {
	isolateEnv(t)
	ws := newFakeWorkspace(t, okHandshake)
	t.Setenv("SLACK_API_TOKEN", "xoxb-test")
	t.Setenv("RTMBOT_API_BASE_URL", ws.URL+"/api")

	var out bytes.Buffer
	require.NoError(t, checkConnection(context.Background(), "", &out))

	assert.Contains(t, out.String(), "bot (U1)")
	assert.Contains(t, out.String(), "Acme (T1, acme.slack.com)")
	assert.NotContains(t, out.String(), "/socket")
}

func TestSessionOptionsUseConfiguredDialTimeout(t *testing.T) {
	cfg := &config.Config{}
	assert.Len(t, sessionOptions(cfg, nil), 2)

	cfg.Slack.DialTimeoutSeconds = 3
	assert.Len(t, sessionOptions(cfg, nil), 3)
}

func TestRootRegistersCommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, command := range rootCmd.Commands() {
		names = append(names, command.Name())
	}

	assert.Contains(t, names, "run")
	assert.Contains(t, names, "connect")
}
