package liveupdate

import (
	"context"
)

// TransportHandler receives callbacks from a push transport. Callbacks may
// run on any goroutine.
type TransportHandler interface {
	// OnOpen is called after each successful handshake.
	OnOpen()
	// OnEvent delivers one named frame with its raw payload.
	OnEvent(name string, data []byte)
	// OnError reports a failure. closed is true when the transport has given
	// up and will not deliver further callbacks on its own.
	OnError(err error, closed bool)
}

// Subscription is an open push subscription.
type Subscription interface {
	// Close releases the subscription and returns once no further callbacks
	// will be delivered. It is safe to call more than once.
	Close()
}

// Transport opens push subscriptions scoped to one conversation.
type Transport interface {
	Open(conversationID string, handler TransportHandler) (Subscription, error)
}

// Invalidator drops shared cache entries by exact key or key prefix.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Broker fans conversation events out to stream subscribers on the server.
type Broker interface {
	Publish(ctx context.Context, conversationID string, event Event) error
	// Subscribe returns the event stream for one conversation and a function
	// that cancels the subscription and closes the stream.
	Subscribe(conversationID string) (<-chan Event, func())
}
