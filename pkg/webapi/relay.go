package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rtmbot/pkg/bus"
	"rtmbot/pkg/logger"
	"rtmbot/pkg/platform"
)

const (
	maxResponseBodyBytes int64 = 1 << 20

	// inFlightTimeout bounds a call that outlives the worker's context.
	inFlightTimeout = 30 * time.Second
)

// ErrQueueClosed is returned by Handle.Send once the relay stopped accepting calls.
var ErrQueueClosed = errors.New("relay queue closed")

// HTTPDoer is the subset of *http.Client the relay needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Handle is the producer side of a Relay. Copies share the same queue.
type Handle struct {
	queue *bus.Queue[Call]
}

// Send enqueues call and returns immediately. A nil error means the call was
// queued, not that it was delivered.
func (h Handle) Send(call Call) error {
	if h.queue == nil || !h.queue.Publish(call) {
		return ErrQueueClosed
	}

	return nil
}

// Post encodes a request shape and enqueues it.
func (h Handle) Post(req Request) error {
	call, err := Encode(req)
	if err != nil {
		return err
	}

	return h.Send(call)
}

// Stats counts calls handled by the relay worker.
type Stats struct {
	Attempted uint64 `json:"attempted"`
	Failed    uint64 `json:"failed"`
	Pending   int    `json:"pending"`
}

// Relay drains queued calls one at a time and POSTs them to the Web API.
type Relay struct {
	token   string
	baseURL string
	client  HTTPDoer
	log     *slog.Logger
	queue   *bus.Queue[Call]

	startOnce sync.Once
	done      chan struct{}

	attempted atomic.Uint64
	failed    atomic.Uint64
}

// Option configures a Relay.
type Option func(*Relay)

// WithBaseURL overrides the Web API root.
func WithBaseURL(baseURL string) Option {
	return func(r *Relay) {
		r.baseURL = platform.BaseURL(baseURL)
	}
}

// WithHTTPClient overrides the client used for outbound calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(r *Relay) {
		if client != nil {
			r.client = client
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *Relay) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRelay builds a relay bound to token and returns its producer handle.
// The worker does not run until Start is called.
func NewRelay(token string, opts ...Option) (*Relay, Handle) {
	r := &Relay{
		token:   strings.TrimSpace(token),
		baseURL: platform.DefaultAPIBaseURL,
		client:  http.DefaultClient,
		log:     slog.Default(),
		queue:   bus.NewQueue[Call](),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "webapi.relay")

	return r, Handle{queue: r.queue}
}

// Start launches the worker goroutine. Calling it more than once has no effect.
// Cancelling ctx lets the call in flight finish, abandons the rest of the
// queue and closes it, so later Sends return ErrQueueClosed.
func (r *Relay) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		go func() {
			defer close(r.done)
			defer r.queue.Close()
			r.run(ctx)
		}()
	})
}

// Close stops accepting calls. Calls already queued are still attempted.
func (r *Relay) Close() {
	r.queue.Close()
}

// Done is closed when the worker has exited.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

func (r *Relay) Stats() Stats {
	return Stats{
		Attempted: r.attempted.Load(),
		Failed:    r.failed.Load(),
		Pending:   r.queue.Len(),
	}
}

func (r *Relay) run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.log.Debug("Relay worker started")
	for {
		if ctx.Err() != nil {
			r.stopped()
			return
		}

		call, ok := r.queue.Consume(ctx)
		if !ok {
			r.stopped()
			return
		}

		r.attempted.Add(1)
		if err := r.deliver(ctx, call); err != nil {
			r.failed.Add(1)
			r.logFailure(call, err)
		}
	}
}

func (r *Relay) stopped() {
	r.queue.Close()
	if pending := r.queue.Len(); pending > 0 {
		r.log.Warn("Relay worker stopped with calls abandoned", "pending", pending)
		return
	}
	r.log.Debug("Relay worker stopped")
}

// deliver issues one POST and validates the response envelope. The request
// ignores cancellation of ctx so a call already started is not cut short.
func (r *Relay) deliver(ctx context.Context, call Call) error {
	log := r.log.With("method", call.Method)
	startedAt := time.Now()
	log.Debug("Posting call", "body", logger.Preview(string(call.Body)))

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inFlightTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, platform.MethodURL(r.baseURL, call.Method), bytes.NewReader(call.Body))
	if err != nil {
		return platform.TransportFailure(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return platform.TransportFailure(err, fmt.Sprintf("post %s", call.Method))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return platform.TransportFailure(err, "read response body")
	}

	var result platform.GenericResult
	if err := json.Unmarshal(body, &result); err != nil {
		return platform.DecodeFailure(err, fmt.Sprintf("decode %s response (status %d)", call.Method, resp.StatusCode))
	}
	if !result.OK {
		return platform.ApplicationFailure(call.Method, result.Error)
	}

	log.Debug("Call completed", "duration_ms", time.Since(startedAt).Milliseconds())
	return nil
}

func (r *Relay) logFailure(call Call, err error) {
	switch {
	case platform.IsApplicationFailure(err):
		r.log.Warn("Platform rejected call", "method", call.Method, "platform_error", platform.Reason(err))
	case platform.IsDecodeFailure(err):
		r.log.Error("Malformed call response", "method", call.Method, "error", err)
	default:
		r.log.Error("Call request failed", "method", call.Method, "error", err)
	}
}
