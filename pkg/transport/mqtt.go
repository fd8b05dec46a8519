package transport

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/dmc-robo/go-mobility/internal/log"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	// QoS 0: commands arrive at high rate and are superseded by the next
	// one; the deadman covers lost messages.
	defaultQoS byte = 0
)

// MQTTBus implements Bus over an MQTT broker using paho.
type MQTTBus struct {
	client mqtt.Client

	mu     sync.RWMutex
	closed bool
}

// DialMQTT connects to the broker ("host:port" or a full "tcp://" URL)
// and returns a ready bus.
// The client auto-reconnects; subscriptions are restored by paho on
// reconnect.
func DialMQTT(broker, clientID string) (*MQTTBus, error) {
	if clientID == "" {
		clientID = "go-mobility-" + uuid.NewString()[:8]
	}

	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetResumeSubs(true)

	opts.OnConnect = func(c mqtt.Client) {
		log.Info("mqtt connected", "broker", broker, "client_id", clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", broker)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect timeout (broker=%s)", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect failed: %w", err)
	}

	return &MQTTBus{client: client}, nil
}

// Publish sends payload on topic with QoS 0.
func (b *MQTTBus) Publish(topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("mqtt bus is closed")
	}
	b.mu.RUnlock()

	token := b.client.Publish(topic, defaultQoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish timeout (topic=%s)", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish failed (topic=%s): %w", topic, err)
	}
	return nil
}

// Subscribe registers fn for topic. fn runs on paho's dispatch
// goroutines.
func (b *MQTTBus) Subscribe(topic string, fn Handler) (Subscription, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, fmt.Errorf("mqtt bus is closed")
	}
	b.mu.RUnlock()

	token := b.client.Subscribe(topic, defaultQoS, func(_ mqtt.Client, msg mqtt.Message) {
		fn(msg.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt subscribe timeout (topic=%s)", topic)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt subscribe failed (topic=%s): %w", topic, err)
	}
	return &mqttSubscription{bus: b, topic: topic}, nil
}

// Close disconnects from the broker. Idempotent.
func (b *MQTTBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	return nil
}

type mqttSubscription struct {
	bus   *MQTTBus
	topic string

	mu     sync.Mutex
	closed bool
}

func (s *mqttSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.bus.mu.RLock()
	busClosed := s.bus.closed
	s.bus.mu.RUnlock()
	if busClosed || !s.bus.client.IsConnected() {
		return nil
	}
	token := s.bus.client.Unsubscribe(s.topic)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt unsubscribe timeout (topic=%s)", s.topic)
	}
	return token.Error()
}

var _ Bus = (*MQTTBus)(nil)
