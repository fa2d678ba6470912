package rtm

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rtmbot/pkg/logger"
	"rtmbot/pkg/platform"
	"rtmbot/pkg/webapi"
)

// Stats is a point-in-time view of a session, safe to read from any goroutine.
type Stats struct {
	SessionID string       `json:"session_id"`
	Ready     bool         `json:"ready"`
	Frames    uint64       `json:"frames"`
	Messages  uint64       `json:"messages"`
	Discarded uint64       `json:"discarded"`
	Relay     webapi.Stats `json:"relay"`
}

// Session owns the socket of one handshake. It reads frames on a single
// goroutine and dispatches messages to the bot logic; outbound calls go
// through a relay created for the session.
type Session struct {
	id         string
	credential string
	endpoint   *SessionEndpoint
	factory    Factory
	opts       options
	log        *slog.Logger

	ready     atomic.Bool
	relay     atomic.Pointer[webapi.Relay]
	frames    atomic.Uint64
	messages  atomic.Uint64
	discarded atomic.Uint64
}

// NewSession prepares a session for endpoint. Nothing is opened until Run.
func NewSession(credential string, endpoint *SessionEndpoint, factory Factory, opts ...Option) (*Session, error) {
	if endpoint == nil {
		return nil, errors.New("session endpoint is required")
	}
	if factory == nil {
		return nil, errors.New("logic factory is required")
	}

	o := buildOptions(opts)
	id := uuid.NewString()

	return &Session{
		id:         id,
		credential: credential,
		endpoint:   endpoint,
		factory:    factory,
		opts:       o,
		log: o.log.With(
			"component", "rtm.session",
			"session_id", id,
			"workspace_id", endpoint.Workspace.ID,
		),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Ready reports whether a hello frame arrived and the session is still running.
func (s *Session) Ready() bool {
	return s.ready.Load()
}

func (s *Session) Stats() Stats {
	stats := Stats{
		SessionID: s.id,
		Ready:     s.ready.Load(),
		Frames:    s.frames.Load(),
		Messages:  s.messages.Load(),
		Discarded: s.discarded.Load(),
	}
	if relay := s.relay.Load(); relay != nil {
		stats.Relay = relay.Stats()
	}

	return stats
}

// Run opens the socket, launches the bot logic and processes frames until
// the socket closes or ctx ends. A normal remote close and cancellation both
// return nil; any other read error is a transport failure. Before returning,
// Run stops logic implementing Stopper and waits for the relay to drain calls
// already queued. A cancelled ctx limits both to the work in flight.
// Run never reconnects.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	socketURL, err := s.endpoint.TakeURL()
	if err != nil {
		return err
	}

	conn, resp, err := s.opts.dialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		if resp != nil {
			s.log.Error("Socket handshake rejected", "status", resp.StatusCode)
		}
		return platform.TransportFailure(err, "dial session socket")
	}
	defer func() { _ = conn.Close() }()
	s.log.Info("Socket connected")

	relay, handle := webapi.NewRelay(s.credential,
		webapi.WithBaseURL(s.opts.apiBaseURL),
		webapi.WithHTTPClient(s.opts.httpClient),
		webapi.WithLogger(s.opts.log.With("session_id", s.id)),
	)
	relay.Start(ctx)
	s.relay.Store(relay)
	defer func() {
		relay.Close()
		<-relay.Done()
	}()

	logic := s.factory(handle, s.endpoint.Account, s.endpoint.Workspace)
	if logic == nil {
		logic = NopLogic{}
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	err = s.readLoop(ctx, conn, logic)
	s.ready.Store(false)
	if stopper, ok := logic.(Stopper); ok {
		stopper.Stop(ctx)
	}

	return err
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn, logic Logic) error {
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("Session stopped")
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("Session closed by remote")
				return nil
			}

			s.log.Error("Socket read failed", "error", err)
			return platform.TransportFailure(err, "read session socket")
		}

		s.frames.Add(1)
		if kind != websocket.TextMessage {
			s.log.Debug("Ignoring non-text frame", "kind", kind, "bytes", len(frame))
			continue
		}

		s.dispatch(logic, frame)
	}
}

func (s *Session) dispatch(logic Logic, frame []byte) {
	event, err := DecodeEvent(frame)
	if err != nil {
		s.discarded.Add(1)
		if IsUnknownEvent(err) {
			s.log.Debug("Ignoring event", "reason", platform.Reason(err))
			return
		}
		s.log.Warn("Discarded malformed frame", "error", err, "frame", logger.Preview(string(frame)))
		return
	}

	switch ev := event.(type) {
	case HelloEvent:
		s.ready.Store(true)
		s.log.Info("Session is live")
	case MessageEvent:
		s.messages.Add(1)
		s.log.Debug("Received message",
			"channel", ev.Channel,
			"user", ev.User,
			"ts", ev.TS,
			"subtype", ev.Subtype,
			"text", logger.Preview(ev.Text),
		)
		logic.OnMessage(ev)
	}
}
