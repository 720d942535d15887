package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// Transport forwards events to other processes.
type Transport interface {
	Send(ctx context.Context, event *model.Event) error
}

var _ core.EventBus = (*Broadcaster)(nil)

// Broadcaster fans domain events out to local subscribers and, when a
// Transport is configured, to remote instances.
//
// Publish is synchronous: by the time it returns, the transport has accepted
// the event and every local handler has run.
type Broadcaster struct {
	source    string
	transport Transport
	now       func() time.Time

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
}

type subscription struct {
	topics  map[string]struct{}
	handler core.EventHandler
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithTransport sets the transport used to reach remote subscribers.
func WithTransport(t Transport) Option {
	return func(b *Broadcaster) { b.transport = t }
}

// WithSource overrides the instance id stamped on published events.
func WithSource(source string) Option {
	return func(b *Broadcaster) { b.source = source }
}

// New creates a Broadcaster. Without WithSource a random instance id is used.
func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		source: uuid.NewString(),
		now:    time.Now,
		subs:   make(map[uint64]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Source returns the instance id stamped on events published here.
func (b *Broadcaster) Source() string {
	return b.source
}

// Subscribe registers handler for topics, or for every topic when none are given.
func (b *Broadcaster) Subscribe(handler core.EventHandler, topics ...string) func() {
	sub := subscription{handler: handler}
	if len(topics) > 0 {
		sub.topics = make(map[string]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish builds an event and sends it to the transport, then to local
// subscribers. If the transport rejects the event nothing is delivered locally.
func (b *Broadcaster) Publish(ctx context.Context, topic, key string, payload any) error {
	event := &model.Event{
		ID:        uuid.New(),
		Topic:     topic,
		Key:       key,
		Source:    b.source,
		Timestamp: b.now().UTC(),
		Payload:   payload,
	}

	if b.transport != nil {
		if err := b.transport.Send(ctx, event); err != nil {
			metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
			return fmt.Errorf("send %s event: %w", topic, err)
		}
	}
	metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()

	b.dispatch(ctx, event)
	return nil
}

// Deliver hands an event received from the transport to local subscribers.
// Events that originated from this instance are dropped.
func (b *Broadcaster) Deliver(ctx context.Context, event *model.Event) {
	if event == nil || event.Source == b.source {
		return
	}
	b.dispatch(ctx, event)
}

func (b *Broadcaster) dispatch(ctx context.Context, event *model.Event) {
	b.mu.RLock()
	handlers := make([]core.EventHandler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.topics != nil {
			if _, ok := sub.topics[event.Topic]; !ok {
				continue
			}
		}
		handlers = append(handlers, sub.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		invoke(ctx, h, event)
	}
}

func invoke(ctx context.Context, h core.EventHandler, event *model.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(fmt.Errorf("panic: %v", r), "Event handler panicked", "topic", event.Topic, "eventID", event.ID)
		}
	}()
	h(ctx, event)
}

type envelope struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Encode renders an event as its JSON envelope.
func Encode(event *model.Event) ([]byte, error) {
	return json.Marshal(event)
}

// Decode parses a JSON envelope, typing the payload by topic.
func Decode(data []byte) (*model.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}

	payload, ok := model.NewPayload(env.Topic)
	if !ok {
		return nil, fmt.Errorf("unknown event topic %q", env.Topic)
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Topic, err)
		}
	}

	return &model.Event{
		ID:        env.ID,
		Topic:     env.Topic,
		Key:       env.Key,
		Source:    env.Source,
		Timestamp: env.Timestamp,
		Payload:   payload,
	}, nil
}
