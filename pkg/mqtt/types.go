package mqtt

import (
	"context"
)

// MessageHandler processes one received message.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is a broker connection with automatic reconnect and re-subscribe.
type Client interface {
	// Start connects in the background and returns immediately.
	Start(ctx context.Context) error

	// Disconnect closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, qos byte, retain bool, payload []byte) error

	// Subscribe registers handler for a topic filter. Subscriptions survive
	// reconnects.
	Subscribe(ctx context.Context, filter string, qos byte, handler MessageHandler) error

	// Unsubscribe removes a filter registered with Subscribe.
	Unsubscribe(ctx context.Context, filter string) error

	// AwaitConnection blocks until the client is connected or ctx is done.
	AwaitConnection(ctx context.Context) error

	// IsConnected reports whether the last connection attempt succeeded and
	// has not been lost since.
	IsConnected() bool
}
