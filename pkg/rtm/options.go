package rtm

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"rtmbot/pkg/platform"
	"rtmbot/pkg/webapi"
)

const defaultHandshakeTimeout = 10 * time.Second

type options struct {
	apiBaseURL string
	httpClient webapi.HTTPDoer
	dialer     *websocket.Dialer
	log        *slog.Logger
}

// Option configures Connect, NewSession and RunSession.
type Option func(*options)

// WithAPIBaseURL points the handshake and the relay at another Web API root.
func WithAPIBaseURL(baseURL string) Option {
	return func(o *options) {
		o.apiBaseURL = platform.BaseURL(baseURL)
	}
}

// WithHTTPClient sets the client used for the handshake and relay calls.
func WithHTTPClient(client webapi.HTTPDoer) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithDialer sets the websocket dialer used to open the session socket.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *options) {
		if dialer != nil {
			o.dialer = dialer
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		apiBaseURL: platform.DefaultAPIBaseURL,
		httpClient: http.DefaultClient,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
