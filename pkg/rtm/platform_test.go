package rtm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// socketScript drives the server side of one socket connection.
type socketScript func(t *testing.T, conn *websocket.Conn)

type apiRequest struct {
	Method        string
	Authorization string
	Body          string
}

// fakePlatform serves rtm.connect, the Web API methods and the session socket
// from one httptest server.
type fakePlatform struct {
	*httptest.Server

	t         *testing.T
	handshake string
	script    socketScript

	mu          sync.Mutex
	connects    int
	tokens      []string
	apiRequests []apiRequest
}

func newFakePlatform(t *testing.T, script socketScript) *fakePlatform {
	t.Helper()

	fp := &fakePlatform{t: t, script: script}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rtm.connect", fp.handleConnect)
	mux.HandleFunc("/api/", fp.handleAPI)
	mux.HandleFunc("/socket", fp.handleSocket)

	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)

	fp.handshake = `{"ok":true,"url":"` + fp.socketURL() + `","team":{"id":"T1","name":"Acme","domain":"acme"},"self":{"id":"U1","name":"bot"}}`
	return fp
}

func (fp *fakePlatform) apiBase() string {
	return fp.URL + "/api"
}

func (fp *fakePlatform) socketURL() string {
	return "ws" + strings.TrimPrefix(fp.URL, "http") + "/socket"
}

func (fp *fakePlatform) setHandshake(body string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.handshake = body
}

func (fp *fakePlatform) connectCount() int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.connects
}

func (fp *fakePlatform) tokensSeen() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]string(nil), fp.tokens...)
}

func (fp *fakePlatform) requests() []apiRequest {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	out := make([]apiRequest, len(fp.apiRequests))
	copy(out, fp.apiRequests)
	return out
}

func (fp *fakePlatform) handleConnect(w http.ResponseWriter, r *http.Request) {
	fp.mu.Lock()
	fp.connects++
	fp.tokens = append(fp.tokens, r.URL.Query().Get("token"))
	body := fp.handshake
	fp.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (fp *fakePlatform) handleAPI(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	fp.mu.Lock()
	fp.apiRequests = append(fp.apiRequests, apiRequest{
		Method:        strings.TrimPrefix(r.URL.Path, "/api/"),
		Authorization: r.Header.Get("Authorization"),
		Body:          string(body),
	})
	fp.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (fp *fakePlatform) handleSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fp.t.Errorf("upgrade socket: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	if fp.script != nil {
		fp.script(fp.t, conn)
	}
}

// sendText writes each frame as a text message.
func sendText(t *testing.T, conn *websocket.Conn, frames ...string) {
	t.Helper()
	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Errorf("write frame: %v", err)
			return
		}
	}
}

// closeNormally sends a normal-closure close frame and waits for the peer.
func closeNormally(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		t.Errorf("write close frame: %v", err)
		return
	}
	waitForPeerClose(conn)
}

// waitForPeerClose blocks until the client side goes away.
func waitForPeerClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
