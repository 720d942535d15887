package dispatch

import (
	"context"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/service"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/server"
	httpserver "github.com/rapidaid-io/rapidaid/internal/dispatch/server/http"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	"github.com/rapidaid-io/rapidaid/pkg/options"
)

const closeTimeout = 5 * time.Second

// DispatchServer is a fully wired dispatch process.
type DispatchServer struct {
	svc     *service.Service
	manager *server.Manager
	checks  map[string]httpserver.Checker
	closers []func(ctx context.Context)
}

// Run serves until ctx is done or a server fails, then releases every
// connection.
func (d *DispatchServer) Run(ctx context.Context) error {
	defer d.cleanup()
	return d.manager.Start(ctx)
}

// Reload applies new dispatch tunables to the running service.
func (d *DispatchServer) Reload(opts *options.DispatchOptions) error {
	if err := utilerrors.NewAggregate(opts.Validate()); err != nil {
		return err
	}
	d.svc.Reload(TunablesFrom(opts))
	return nil
}

func (d *DispatchServer) cleanup() {
	if d.svc != nil {
		d.svc.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i](ctx)
	}
	d.closers = nil
	log.Info("Dispatch server stopped")
}
