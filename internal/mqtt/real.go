package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// BufferCapacity is how many messages are kept while the broker is away.
const BufferCapacity = 256

// dialTimings bounds the initial connect. The client keeps retrying every
// retry interval after the wait expires.
type dialTimings struct {
	wait  time.Duration
	retry time.Duration
}

var defaultDial = dialTimings{wait: 10 * time.Second, retry: 5 * time.Second}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected are buffered and replayed, oldest
// first, when the connection comes back.
type RealPublisher struct {
	client paho.Client
	dial   paho.Token // initial connect; done once connected or aborted by Close

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher for the given broker.
// A retained SHUTDOWN/MQTT_DISCONNECT will is registered so subscribers
// notice an unclean exit. If the broker does not answer in time the
// publisher is still returned: publishes are buffered while the client keeps
// retrying, and Close stops the retries.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	return newRealPublisher(broker, clientID, defaultDial)
}

func newRealPublisher(broker, clientID string, dial dialTimings) (*RealPublisher, error) {
	p := &RealPublisher{buf: newRingBuffer(BufferCapacity)}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(dial.retry).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.dial = p.client.Connect()
	if !p.dial.WaitTimeout(dial.wait) {
		log.Printf("mqtt: %s not reachable after %v, buffering until it is", broker, dial.wait)
		return p, nil
	}
	if err := p.dial.Error(); err != nil {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays buffered messages. It runs on paho's goroutine.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, false, payload)
	}
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishReport sends a periodic report, QoS 0, not retained.
func (p *RealPublisher) PublishReport(r Report) error {
	payload, err := FormatReport(r)
	if err != nil {
		return fmt.Errorf("format report: %w", err)
	}
	return p.publish(TopicReport, 0, false, payload)
}

// PublishRound sends a round result, QoS 1.
func (p *RealPublisher) PublishRound(r RoundResult) error {
	payload, err := FormatRound(r)
	if err != nil {
		return fmt.Errorf("format round: %w", err)
	}
	return p.publish(TopicRounds, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// Close disconnects from the broker, or abandons a connect still retrying.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
