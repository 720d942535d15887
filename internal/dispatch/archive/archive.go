// Package archive writes closed emergency requests to object storage for audit.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/metrics"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

const drainTimeout = 5 * time.Second

// Uploader is the object store the archive writes to.
type Uploader interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte) error
}

// Archiver queues terminal request snapshots and writes them in the
// background. A full queue drops the snapshot. Write failures are logged and
// counted, they never reach the lifecycle operation that triggered them.
type Archiver struct {
	uploader Uploader
	queue    chan *model.EmergencyRequest
	log      log.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// New creates an archiver buffering up to queueSize snapshots.
func New(uploader Uploader, queueSize int) *Archiver {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Archiver{
		uploader: uploader,
		queue:    make(chan *model.EmergencyRequest, queueSize),
		log:      log.WithName("archive"),
	}
}

// Key returns the object key of a request snapshot:
// requests/YYYY/MM/DD/<id>.json, dated by when the request closed.
func Key(req *model.EmergencyRequest) string {
	t := closedAt(req).UTC()
	return fmt.Sprintf("requests/%04d/%02d/%02d/%d.json", t.Year(), t.Month(), t.Day(), req.ID)
}

func closedAt(req *model.EmergencyRequest) time.Time {
	for _, ts := range []*time.Time{req.CompletedAt, req.CancelledAt, req.DeclinedAt} {
		if ts != nil {
			return *ts
		}
	}
	return req.UpdatedAt
}

// Attach subscribes to the request topics that can close a request.
func (a *Archiver) Attach(bus core.EventSubscriber) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.unsubscribe = bus.Subscribe(a.Handle,
		model.TopicRequestCompleted,
		model.TopicRequestCancelled,
		model.TopicRequestStatus,
	)
}

// Detach removes the subscription made by Attach.
func (a *Archiver) Detach() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Handle queues the snapshot carried by a terminal request event.
func (a *Archiver) Handle(_ context.Context, event *model.Event) {
	p, ok := event.Payload.(*model.RequestChanged)
	if !ok || p.Request == nil || !p.Request.Status.Terminal() {
		return
	}

	select {
	case a.queue <- p.Request.Clone():
	default:
		metrics.ArchiveWrites.WithLabelValues("dropped").Inc()
		a.log.Warn("Archive queue full, dropping snapshot", log.Request(p.Request.ID))
	}
}

// Start prepares the bucket and writes queued snapshots until ctx is done.
// Snapshots still queued at shutdown are flushed within a short deadline.
func (a *Archiver) Start(ctx context.Context) error {
	if err := a.uploader.EnsureBucket(ctx); err != nil {
		a.log.Error(err, "Archive bucket is not ready, writes will be retried per snapshot")
	}

	for {
		select {
		case req := <-a.queue:
			a.write(ctx, req)
		case <-ctx.Done():
			a.Detach()
			a.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

func (a *Archiver) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for {
		select {
		case req := <-a.queue:
			a.write(ctx, req)
		default:
			return
		}
	}
}

func (a *Archiver) write(ctx context.Context, req *model.EmergencyRequest) {
	data, err := json.Marshal(req)
	if err != nil {
		metrics.ArchiveWrites.WithLabelValues("error").Inc()
		a.log.Error(err, "Failed to encode request snapshot", log.Request(req.ID))
		return
	}

	key := Key(req)
	if err := a.uploader.Put(ctx, key, data); err != nil {
		metrics.ArchiveWrites.WithLabelValues("error").Inc()
		a.log.Error(err, "Failed to archive request", log.Request(req.ID), "key", key)
		return
	}
	metrics.ArchiveWrites.WithLabelValues("ok").Inc()
	a.log.Debug("Request archived", log.Request(req.ID), "key", key)
}
