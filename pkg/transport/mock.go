package transport

import (
	"sync"
)

// MockBus is an in-process Bus used by --dry-run and by tests. Publish
// delivers synchronously to every matching subscriber on the caller's
// goroutine.
type MockBus struct {
	mu     sync.Mutex
	subs   map[string][]*mockSubscription
	sent   []MockMessage
	closed bool
}

// MockMessage records one published message.
type MockMessage struct {
	Topic   string
	Payload []byte
}

// NewMockBus creates an empty in-process bus.
func NewMockBus() *MockBus {
	return &MockBus{subs: make(map[string][]*mockSubscription)}
}

// Publish records the message and delivers it to subscribers of the
// exact topic.
func (b *MockBus) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.sent = append(b.sent, MockMessage{Topic: topic, Payload: cp})
	var handlers []Handler
	for _, s := range b.subs[topic] {
		if !s.closed {
			handlers = append(handlers, s.fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(payload)
	}
	return nil
}

// Subscribe registers fn for exact-topic delivery.
func (b *MockBus) Subscribe(topic string, fn Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &mockSubscription{bus: b, topic: topic, fn: fn}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub, nil
}

// Close marks the bus closed.
func (b *MockBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Sent returns a copy of every message published so far.
func (b *MockBus) Sent() []MockMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]MockMessage, len(b.sent))
	copy(out, b.sent)
	return out
}

// SentTo returns the payloads published to one topic.
func (b *MockBus) SentTo(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]byte
	for _, m := range b.sent {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

type mockSubscription struct {
	bus    *MockBus
	topic  string
	fn     Handler
	closed bool
}

func (s *mockSubscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.closed = true
	return nil
}

var _ Bus = (*MockBus)(nil)
