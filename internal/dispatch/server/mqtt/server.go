// Package mqtt is the ingress side of the event transport. It receives the
// events other instances publish and hands them to the local broadcaster.
package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/broadcast"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	pkgmqtt "github.com/rapidaid-io/rapidaid/pkg/mqtt"
	"github.com/rapidaid-io/rapidaid/pkg/mqtt/topic"
)

// Deliverer receives remote events. *broadcast.Broadcaster implements it.
type Deliverer interface {
	Deliver(ctx context.Context, event *model.Event)
}

// Server subscribes to every dispatch event under the topic root.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    byte
	bus    Deliverer
	log    log.Logger
}

// NewServer creates the ingress server on an unstarted client.
func NewServer(client pkgmqtt.Client, topics *topic.Builder, qos byte, bus Deliverer) *Server {
	return &Server{
		client: client,
		topics: topics,
		qos:    qos,
		bus:    bus,
		log:    log.WithName("mqtt-ingress"),
	}
}

// Start connects, subscribes and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		s.log.Info("Disconnecting MQTT ingress client")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
	}()

	s.log.Info("Waiting for MQTT connection")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}

	filter := s.topics.All()
	if err := s.client.Subscribe(ctx, filter, s.qos, s.handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}
	s.log.Info("MQTT ingress subscribed", "filter", filter)

	<-ctx.Done()
	return nil
}

func (s *Server) handle(ctx context.Context, t string, payload []byte) {
	event, err := broadcast.Decode(payload)
	if err != nil {
		metrics.IngressEvents.WithLabelValues("malformed").Inc()
		s.log.Warn("Dropping malformed event", "topic", t, "error", err.Error())
		return
	}
	if eventTopic, _, ok := s.topics.Parse(t); !ok || eventTopic != event.Topic {
		metrics.IngressEvents.WithLabelValues("malformed").Inc()
		s.log.Warn("Event topic does not match its MQTT topic", "topic", t, "eventTopic", event.Topic)
		return
	}

	metrics.IngressEvents.WithLabelValues("delivered").Inc()
	s.bus.Deliver(ctx, event)
}
