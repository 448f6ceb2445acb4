package liveupdate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Channel.
type State string

const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateFallback   State = "fallback"
	StateClosed     State = "closed"
)

// Status is the view of a Channel exposed to the UI.
type Status struct {
	IsConnected bool `json:"isConnected"`
	IsFallback  bool `json:"isFallback"`
}

const invalidateTimeout = 5 * time.Second

// ErrTransportClosed is reported to state observers when the push
// transport gives up and the channel falls back to polling.
var ErrTransportClosed = errors.New("push transport closed")

// ChannelOption customises a Channel.
type ChannelOption func(*Channel)

// WithObserver registers a callback invoked for every accepted event.
// Observers run on the transport goroutine and must not call Bind,
// SetEnabled or Close synchronously.
func WithObserver(observer func(Event)) ChannelOption {
	return func(c *Channel) {
		c.observer = observer
	}
}

// WithStateObserver registers a callback invoked on every state transition.
func WithStateObserver(observer func(State)) ChannelOption {
	return func(c *Channel) {
		c.stateObserver = observer
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(interval time.Duration) ChannelOption {
	return func(c *Channel) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithLogger sets the channel logger.
func WithLogger(log zerolog.Logger) ChannelOption {
	return func(c *Channel) {
		c.log = log.With().Str("component", "live-update-channel").Logger()
	}
}

// Channel keeps one conversation view fresh. It holds at most one push
// subscription or one polling loop at a time, and every accepted event
// invalidates the conversation detail key and the shared namespace.
type Channel struct {
	transport     Transport
	cache         Invalidator
	pollInterval  time.Duration
	observer      func(Event)
	stateObserver func(State)
	log           zerolog.Logger

	// opMu serialises Bind, SetEnabled and Close. Transport callbacks never take it.
	opMu sync.Mutex

	mu             sync.Mutex
	conversationID string
	enabled        bool
	state          State
	generation     uint64
	sub            Subscription
	poller         *poller

	activePollers atomic.Int32
}

// NewChannel returns an enabled channel with nothing bound.
func NewChannel(transport Transport, cache Invalidator, opts ...ChannelOption) *Channel {
	c := &Channel{
		transport:    transport,
		cache:        cache,
		pollInterval: DefaultPollInterval,
		enabled:      true,
		state:        StateClosed,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind points the channel at conversationID, tearing down whatever was
// active for the previous one. An empty id closes the channel.
func (c *Channel) Bind(conversationID string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	unchanged := conversationID == c.conversationID && c.state != StateClosed
	enabled := c.enabled
	c.mu.Unlock()
	if unchanged {
		return
	}

	c.reconcile(conversationID, enabled)
}

// SetEnabled turns the channel on or off without forgetting the bound id.
func (c *Channel) SetEnabled(enabled bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	id := c.conversationID
	unchanged := enabled == c.enabled
	c.mu.Unlock()
	if unchanged {
		return
	}

	c.reconcile(id, enabled)
}

// Close releases the transport and poller. It is safe from any state and
// may be called more than once.
func (c *Channel) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	enabled := c.enabled
	c.mu.Unlock()

	c.reconcile("", enabled)
}

// Status reports the UI view of the current state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		IsConnected: c.state == StateConnected,
		IsFallback:  c.state == StateFallback,
	}
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConversationID returns the bound conversation, or "".
func (c *Channel) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// reconcile tears down the current binding and opens a new one. Callers hold opMu.
func (c *Channel) reconcile(conversationID string, enabled bool) {
	c.teardown()

	c.mu.Lock()
	c.conversationID = conversationID
	c.enabled = enabled
	if conversationID == "" || !enabled {
		notify := c.setStateLocked(StateClosed)
		c.mu.Unlock()
		notify()
		return
	}
	c.generation++
	gen := c.generation
	notify := c.setStateLocked(StateConnecting)
	c.mu.Unlock()
	notify()

	handler := &channelHandler{channel: c, generation: gen, conversationID: conversationID}
	sub, err := c.transport.Open(conversationID, handler)
	if err != nil {
		c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to open push transport")
		handler.OnError(err, true)
		return
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
}

// teardown invalidates outstanding callbacks, then releases the
// subscription and poller outside the state lock so callbacks in flight can finish.
func (c *Channel) teardown() {
	c.mu.Lock()
	c.generation++
	sub := c.sub
	p := c.poller
	c.sub = nil
	c.poller = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if p != nil {
		p.Stop()
	}
}

// setStateLocked records a transition and returns the observer call to
// make once the lock is released.
func (c *Channel) setStateLocked(next State) func() {
	if c.state == next {
		return func() {}
	}
	prev := c.state
	c.state = next
	c.log.Debug().Str("from", string(prev)).Str("to", string(next)).Str("conversation_id", c.conversationID).Msg("channel state changed")

	observer := c.stateObserver
	if observer == nil {
		return func() {}
	}
	return func() { observer(next) }
}

func (c *Channel) current(gen uint64) bool {
	return c.generation == gen
}

func (c *Channel) handleOpen(gen uint64) {
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return
	}
	p := c.poller
	c.poller = nil
	notify := c.setStateLocked(StateConnected)
	c.mu.Unlock()

	if p != nil {
		p.Stop()
	}
	notify()
}

func (c *Channel) handleError(gen uint64, conversationID string, err error, closed bool) {
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return
	}

	if !closed {
		notify := func() {}
		if c.state != StateFallback {
			notify = c.setStateLocked(StateConnecting)
		}
		c.mu.Unlock()
		c.log.Debug().Err(err).Str("conversation_id", conversationID).Msg("push transport error, retrying")
		notify()
		return
	}

	if c.poller != nil {
		c.mu.Unlock()
		return
	}
	p := newPoller(c.pollInterval, func(ctx context.Context) {
		c.invalidateDetail(ctx, conversationID)
	}, c.log, func(delta int32) { c.activePollers.Add(delta) })
	c.poller = p
	p.Start()
	notify := c.setStateLocked(StateFallback)
	c.mu.Unlock()

	c.log.Info().Err(err).Str("conversation_id", conversationID).Msg("push transport closed, polling")
	notify()
}

func (c *Channel) handleEvent(gen uint64, conversationID, name string, data []byte) {
	c.mu.Lock()
	stale := !c.current(gen)
	observer := c.observer
	c.mu.Unlock()
	if stale {
		return
	}

	event, err := DecodeEvent(name, data)
	if err != nil {
		c.log.Debug().Err(err).Str("conversation_id", conversationID).Msg("ignoring malformed live event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	c.invalidateDetail(ctx, conversationID)
	if err := c.cache.InvalidatePrefix(ctx, Namespace); err != nil {
		c.log.Warn().Err(err).Str("prefix", Namespace).Msg("failed to invalidate namespace")
	}

	if observer != nil {
		observer(event)
	}
}

func (c *Channel) invalidateDetail(ctx context.Context, conversationID string) {
	key := DetailKey(conversationID)
	if err := c.cache.Invalidate(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to invalidate conversation detail")
	}
}

// channelHandler binds transport callbacks to one generation of a Channel.
type channelHandler struct {
	channel        *Channel
	generation     uint64
	conversationID string
}

func (h *channelHandler) OnOpen() {
	h.channel.handleOpen(h.generation)
}

func (h *channelHandler) OnEvent(name string, data []byte) {
	h.channel.handleEvent(h.generation, h.conversationID, name, data)
}

func (h *channelHandler) OnError(err error, closed bool) {
	if err == nil && closed {
		err = ErrTransportClosed
	}
	h.channel.handleError(h.generation, h.conversationID, err, closed)
}
