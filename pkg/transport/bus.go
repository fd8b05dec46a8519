// Package transport is the node's boundary to the pub/sub bus. The core
// only depends on the Bus interface; the MQTT implementation lives here
// too, but tests and dry runs swap in fakes.
package transport

import "encoding/json"

// Handler receives the raw payload of one inbound message. Handlers run
// on the transport's dispatch goroutines and must not block beyond
// short-held locks.
type Handler func(payload []byte)

// Subscription is one active topic subscription.
type Subscription interface {
	// Close unsubscribes. Safe to call more than once.
	Close() error
}

// Bus is publish/subscribe by topic with best-effort delivery.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, fn Handler) (Subscription, error)
	Close() error
}

// PublishJSON marshals v and publishes it on topic.
func PublishJSON(bus Bus, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return bus.Publish(topic, payload)
}
