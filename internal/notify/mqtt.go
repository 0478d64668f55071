package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitoring"
)

// MQTTPublisher publishes results over MQTT. Window results go to
// <prefix>/window retained at QoS 1, so a consumer that connects late
// immediately sees the latest state; episodes go to <prefix>/episode.
// The underlying connection manager reconnects on its own; publishes
// while disconnected fail with a context timeout and are logged by the
// caller.
type MQTTPublisher struct {
	cm     *autopaho.ConnectionManager
	prefix string
}

// NewMQTTPublisher connects to the broker and returns a publisher.
// broker is a URL such as mqtt://host:1883 or tls://host:8883.
func NewMQTTPublisher(ctx context.Context, broker, clientID, prefix string) (*MQTTPublisher, error) {
	u, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("parse broker URL %q: %w", broker, err)
	}
	if prefix == "" {
		prefix = "symptoms"
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		KeepAlive:                     20,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			monitoring.Logf("mqtt connected to %s", broker)
		},
		OnConnectError: func(err error) {
			monitoring.Logf("mqtt connect error: %v", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
		},
	}

	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create mqtt connection: %w", err)
	}
	return &MQTTPublisher{cm: cm, prefix: prefix}, nil
}

func (p *MQTTPublisher) publish(ctx context.Context, topic string, retain bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal mqtt payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = p.cm.Publish(ctx, &paho.Publish{
		QoS:     1,
		Retain:  retain,
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) PublishResult(ctx context.Context, r monitor.WindowResult) error {
	return p.publish(ctx, p.prefix+"/window", true, r)
}

func (p *MQTTPublisher) PublishEpisode(ctx context.Context, e monitor.Episode) error {
	return p.publish(ctx, p.prefix+"/episode", false, e)
}

func (p *MQTTPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.cm.Disconnect(ctx)
}
