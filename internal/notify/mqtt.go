package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/logging"
)

const publishTimeout = 5 * time.Second

// MQTTOptions configures the MQTT sink.
type MQTTOptions struct {
	BrokerURL string // e.g. tcp://localhost:1883
	ClientID  string
	Username  string
	Password  string
	Prefix    string // topic prefix, defaults to "uyan"
}

// MQTT publishes notifications to topics under a prefix:
//
//	<prefix>/alerts             one-time alerts (QoS 1)
//	<prefix>/persistent/<id>    retained, replaced on every refresh
//	<prefix>/nowplaying         retained lock-screen style metadata
//
// Clearing publishes an empty retained payload, which removes the retained
// message on the broker.
type MQTT struct {
	client mqtt.Client
	prefix string
	logger zerolog.Logger
}

var _ Sink = (*MQTT)(nil)

// NewMQTT connects to the broker. paho reconnects on its own after the
// first connection succeeds.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	logger := logging.GetLogger("mqtt")

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.BrokerURL)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(10 * time.Second)
	co.OnConnect = func(mqtt.Client) {
		logger.Info().Str("broker", opts.BrokerURL).Msg("Connected to MQTT broker")
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return newMQTT(client, opts.Prefix), nil
}

func newMQTT(client mqtt.Client, prefix string) *MQTT {
	if prefix == "" {
		prefix = "uyan"
	}
	return &MQTT{client: client, prefix: prefix, logger: logging.GetLogger("mqtt")}
}

func (m *MQTT) publish(ctx context.Context, topic string, retained bool, payload []byte) error {
	token := m.client.Publish(topic, 1, retained, payload)

	timeout := publishTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) publishJSON(ctx context.Context, topic string, retained bool, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return m.publish(ctx, topic, retained, data)
}

func (m *MQTT) NotifyOnce(ctx context.Context, title, body string) error {
	return m.publishJSON(ctx, m.prefix+"/alerts", false, newMessage("", title, body))
}

func (m *MQTT) ShowPersistent(ctx context.Context, id, title, body string) error {
	return m.publishJSON(ctx, m.prefix+"/persistent/"+id, true, newMessage(id, title, body))
}

func (m *MQTT) Clear(ctx context.Context, id string) error {
	return m.publish(ctx, m.prefix+"/persistent/"+id, true, nil)
}

// Ready reports whether the broker connection is up.
func (m *MQTT) Ready() bool {
	return m.client.IsConnectionOpen()
}

// NowPlaying is the lock-screen metadata mirrored to <prefix>/nowplaying.
type NowPlaying struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// SetNowPlaying publishes the lock-screen metadata.
func (m *MQTT) SetNowPlaying(ctx context.Context, np NowPlaying) error {
	return m.publishJSON(ctx, m.prefix+"/nowplaying", true, np)
}

// ResetNowPlaying removes the retained metadata.
func (m *MQTT) ResetNowPlaying(ctx context.Context) error {
	return m.publish(ctx, m.prefix+"/nowplaying", true, nil)
}

// Close disconnects, allowing 250ms for in-flight messages.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
	m.logger.Debug().Msg("MQTT client disconnected")
}
