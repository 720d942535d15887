package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []*model.Event
	err  error
}

func (f *fakeTransport) Send(_ context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *recorder) handle(_ context.Context, e *model.Event) {
	r.mu.Lock()
	r.topics = append(r.topics, e.Topic)
	r.mu.Unlock()
}

func TestSubscribeTopicFiltering(t *testing.T) {
	b := New()
	all, status := &recorder{}, &recorder{}
	b.Subscribe(all.handle)
	b.Subscribe(status.handle, model.TopicAmbulanceStatus)

	ctx := context.Background()
	_ = b.Publish(ctx, model.TopicAmbulanceLocation, "7", &model.LocationChanged{AmbulanceID: 7})
	_ = b.Publish(ctx, model.TopicAmbulanceStatus, "7", &model.StatusChanged{AmbulanceID: 7})
	_ = b.Publish(ctx, model.TopicRequestCreated, "1", &model.RequestChanged{})

	if len(all.topics) != 3 {
		t.Errorf("catch-all handler got %v, want 3 events", all.topics)
	}
	if len(status.topics) != 1 || status.topics[0] != model.TopicAmbulanceStatus {
		t.Errorf("status handler got %v", status.topics)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	rec := &recorder{}
	unsubscribe := b.Subscribe(rec.handle)
	unsubscribe()

	_ = b.Publish(context.Background(), model.TopicAmbulanceStatus, "1", &model.StatusChanged{})
	if len(rec.topics) != 0 {
		t.Errorf("unsubscribed handler received %v", rec.topics)
	}
}

func TestPublishTransportFailureSkipsLocalDelivery(t *testing.T) {
	boom := errors.New("broker unavailable")
	tr := &fakeTransport{err: boom}
	b := New(WithTransport(tr))
	rec := &recorder{}
	b.Subscribe(rec.handle)

	err := b.Publish(context.Background(), model.TopicAmbulanceStatus, "7", &model.StatusChanged{})
	if !errors.Is(err, boom) {
		t.Fatalf("Publish err = %v, want %v", err, boom)
	}
	if len(rec.topics) != 0 {
		t.Errorf("local handler ran despite transport failure: %v", rec.topics)
	}
}

func TestDeliverDropsOwnEvents(t *testing.T) {
	tr := &fakeTransport{}
	b := New(WithTransport(tr), WithSource("node-a"))
	rec := &recorder{}
	b.Subscribe(rec.handle)

	if err := b.Publish(context.Background(), model.TopicRequestCreated, "1", &model.RequestChanged{}); err != nil {
		t.Fatal(err)
	}
	// The broker echoes our own event back.
	b.Deliver(context.Background(), tr.sent[0])
	b.Deliver(context.Background(), &model.Event{Topic: model.TopicRequestAccepted, Source: "node-b"})

	want := []string{model.TopicRequestCreated, model.TopicRequestAccepted}
	if len(rec.topics) != len(want) {
		t.Fatalf("got %v, want %v", rec.topics, want)
	}
	for i := range want {
		if rec.topics[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, rec.topics[i], want[i])
		}
	}
}

func TestHandlerPanicDoesNotStopFanOut(t *testing.T) {
	b := New()
	rec := &recorder{}
	b.Subscribe(func(context.Context, *model.Event) { panic("bad handler") })
	b.Subscribe(rec.handle)

	if err := b.Publish(context.Background(), model.TopicAmbulanceStatus, "1", &model.StatusChanged{}); err != nil {
		t.Fatal(err)
	}
	if len(rec.topics) != 1 {
		t.Errorf("second handler got %v", rec.topics)
	}
}

func TestEncodeDecode(t *testing.T) {
	tr := &fakeTransport{}
	b := New(WithTransport(tr))
	moved := 250.0
	prev := geo.NewPoint(3.3792, 6.5244)

	err := b.Publish(context.Background(), model.TopicAmbulanceLocation, "7", &model.LocationChanged{
		AmbulanceID:      7,
		CallSign:         "LASG-AMB-001",
		Location:         geo.NewPoint(3.38, 6.526),
		PreviousLocation: &prev,
		DistanceMoved:    &moved,
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := Encode(tr.sent[0])
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	payload, ok := got.Payload.(*model.LocationChanged)
	if !ok {
		t.Fatalf("payload type = %T", got.Payload)
	}
	if payload.AmbulanceID != 7 || payload.DistanceMoved == nil || *payload.DistanceMoved != moved {
		t.Errorf("payload = %+v", payload)
	}
	if got.ID != tr.sent[0].ID || got.Source != b.Source() {
		t.Errorf("envelope mismatch: %+v", got)
	}

	if _, err := Decode([]byte(`{"topic":"nope","payload":{}}`)); err == nil {
		t.Error("expected error for unknown topic")
	}
}
