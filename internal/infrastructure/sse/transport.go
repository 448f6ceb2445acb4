package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
)

// HandshakeEvent is sent by the server once a stream is registered. It is
// not forwarded to handlers.
const HandshakeEvent = "connected"

// ErrStreamEnded is reported when the server closes a stream cleanly.
var ErrStreamEnded = errors.New("event stream ended")

// Option customises a Transport.
type Option func(*Transport)

// WithBackOff sets the reconnect policy. A new policy is built for every
// subscription; when it returns backoff.Stop the subscription reports
// the transport closed.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(t *Transport) {
		if newBackOff != nil {
			t.newBackOff = newBackOff
		}
	}
}

// WithHeader adds a header to every stream request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		t.client.SetHeader(key, value)
	}
}

// Transport opens server-sent event streams for conversations.
type Transport struct {
	client     *resty.Client
	newBackOff func() backoff.BackOff
	log        zerolog.Logger
}

var _ liveupdate.Transport = (*Transport)(nil)

// DefaultBackOff retries for up to 30 seconds without a successful handshake.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// NewTransport streams from the supervision API at baseURL.
func NewTransport(baseURL string, log zerolog.Logger, opts ...Option) *Transport {
	t := &Transport{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "text/event-stream").
			SetHeader("Cache-Control", "no-cache"),
		newBackOff: DefaultBackOff,
		log:        log.With().Str("component", "sse-transport").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open starts streaming in the background and returns immediately.
func (t *Transport) Open(conversationID string, handler liveupdate.TransportHandler) (liveupdate.Subscription, error) {
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{
		transport:      t,
		conversationID: conversationID,
		handler:        handler,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	go s.run()
	return s, nil
}

type stream struct {
	transport      *Transport
	conversationID string
	handler        liveupdate.TransportHandler
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	closeOnce      sync.Once
}

// Close stops the stream and waits for its goroutine. It must not be
// called from inside a handler callback.
func (s *stream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *stream) run() {
	defer close(s.done)

	log := s.transport.log.With().Str("conversation_id", s.conversationID).Logger()
	policy := backoff.WithContext(s.transport.newBackOff(), s.ctx)
	policy.Reset()

	for {
		opened, err := s.connect()
		if s.ctx.Err() != nil {
			return
		}
		if opened {
			policy.Reset()
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			log.Warn().Err(err).Msg("event stream retries exhausted")
			s.handler.OnError(err, true)
			return
		}

		log.Debug().Err(err).Dur("retry_in", wait).Msg("event stream interrupted")
		s.handler.OnError(err, false)

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect runs one stream request and reports whether the handshake succeeded.
func (s *stream) connect() (bool, error) {
	resp, err := s.transport.client.R().
		SetContext(s.ctx).
		SetDoNotParseResponse(true).
		Get("/v1/conversations/" + url.PathEscape(s.conversationID) + "/stream")
	if err != nil {
		return false, fmt.Errorf("open event stream: %w", err)
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
		return false, fmt.Errorf("open event stream: unexpected status %d", resp.StatusCode())
	}

	s.handler.OnOpen()

	err = ReadEvents(body, func(name string, data []byte) {
		if name == HandshakeEvent {
			return
		}
		s.handler.OnEvent(name, data)
	})
	if errors.Is(err, io.EOF) {
		err = ErrStreamEnded
	}
	return true, err
}
