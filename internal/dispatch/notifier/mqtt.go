// Package notifier forwards dispatch events to the MQTT broker.
package notifier

import (
	"context"
	"fmt"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/broadcast"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	pkgmqtt "github.com/rapidaid-io/rapidaid/pkg/mqtt"
	"github.com/rapidaid-io/rapidaid/pkg/mqtt/topic"
)

var _ broadcast.Transport = (*MQTTNotifier)(nil)

// MQTTNotifier is the egress side of the event transport. It publishes each
// event as a JSON envelope on {root}/{event path}/{key}.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    byte
}

// NewMQTTNotifier wraps a started client.
func NewMQTTNotifier(client pkgmqtt.Client, topics *topic.Builder, qos byte) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics, qos: qos}
}

// Send encodes and publishes one event.
func (n *MQTTNotifier) Send(ctx context.Context, e *model.Event) error {
	payload, err := broadcast.Encode(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Topic, err)
	}
	t := n.topics.Event(e.Topic, e.Key)
	if err := n.client.Publish(ctx, t, n.qos, false, payload); err != nil {
		return fmt.Errorf("publish %s: %w", t, err)
	}
	return nil
}

// Close disconnects the egress client.
func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}
