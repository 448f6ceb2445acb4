package liveupdate

import (
	"context"
	"sync"
	"sync/atomic"
)

type fakeSubscription struct {
	conversationID string
	handler        TransportHandler
	closed         atomic.Bool
}

func (s *fakeSubscription) Close() {
	s.closed.Store(true)
}

type fakeTransport struct {
	mu      sync.Mutex
	subs    []*fakeSubscription
	openErr error
	// onOpen runs inside Open before it returns.
	onOpen func(h TransportHandler)
}

func (t *fakeTransport) Open(conversationID string, handler TransportHandler) (Subscription, error) {
	if t.onOpen != nil {
		t.onOpen(handler)
	}
	if t.openErr != nil {
		return nil, t.openErr
	}
	sub := &fakeSubscription{conversationID: conversationID, handler: handler}
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return sub, nil
}

func (t *fakeTransport) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.subs {
		if !s.closed.Load() {
			n++
		}
	}
	return n
}

func (t *fakeTransport) opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *fakeTransport) last() *fakeSubscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subs) == 0 {
		return nil
	}
	return t.subs[len(t.subs)-1]
}

type fakeInvalidator struct {
	mu       sync.Mutex
	keys     []string
	prefixes []string
	err      error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.err
}

func (f *fakeInvalidator) InvalidatePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	return f.err
}

func (f *fakeInvalidator) keyCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.keys {
		if k == key {
			n++
		}
	}
	return n
}

func (f *fakeInvalidator) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...), append([]string(nil), f.prefixes...)
}
