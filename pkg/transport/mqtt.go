package transport

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-puppet/pkg/protocol"
)

// controlSuffix is appended to the pose topic for host → script messages.
const controlSuffix = "/control"

// MQTTOptions configures DialMQTT.
type MQTTOptions struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string // pose updates are published here
	ClientID string
}

// mqttClient is the part of mqtt.Client the session uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes pose updates to a broker topic and listens for host
// messages on <topic>/control.
type MQTT struct {
	*session

	client mqttClient
	topic  string
}

// DialMQTT connects to the broker and subscribes to the control topic.
func DialMQTT(ctx context.Context, opts MQTTOptions, logger *slog.Logger) (*MQTT, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "broker", opts.Broker, "error", err)
		})

	client := mqtt.NewClient(clientOpts)
	if err := waitToken(ctx, client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	logger.Info("connected to MQTT broker", "broker", opts.Broker, "topic", opts.Topic)

	m, err := newMQTT(ctx, client, opts.Topic, logger)
	if err != nil {
		client.Disconnect(250)
		return nil, err
	}
	return m, nil
}

func newMQTT(ctx context.Context, client mqttClient, topic string, logger *slog.Logger) (*MQTT, error) {
	m := &MQTT{
		client: client,
		topic:  topic,
	}
	m.session = newSession("mqtt", logger, m.publish)

	control := topic + controlSuffix
	token := client.Subscribe(control, 0, func(_ mqtt.Client, msg mqtt.Message) {
		m.dispatch(context.Background(), msg.Payload())
	})
	if err := waitToken(ctx, token); err != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", control, err)
	}
	return m, nil
}

func (m *MQTT) publish(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return waitToken(ctx, m.client.Publish(m.topic, 0, false, data))
}

// Close stops the session and disconnects from the broker.
func (m *MQTT) Close() error {
	m.stop("closed")
	m.client.Disconnect(250)
	return nil
}

// waitToken blocks until token completes or ctx is done.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
