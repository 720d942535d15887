package dispatch

import (
	"context"
	"fmt"
	"os"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/store/memory"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/store/postgres"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	"github.com/rapidaid-io/rapidaid/pkg/mqtt"
	"github.com/rapidaid-io/rapidaid/pkg/options"
)

// InitializeMQTTClient creates an unstarted client. role is appended to the
// client id so that ingress and egress hold separate sessions.
func InitializeMQTTClient(opts *options.MqttOptions, role string) (mqtt.Client, error) {
	cfg := opts.ToClientConfig()

	if cfg.ClientID == "" {
		hostname, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("rapidaid-%s", hostname)
	}
	cfg.ClientID = fmt.Sprintf("%s-%s", cfg.ClientID, role)

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to new mqtt client", "role", role)
		return nil, err
	}
	return client, nil
}

func (d *DispatchServer) initializeStore(ctx context.Context, opts *options.DispatchOptions, pg *options.PostgresOptions) (core.Repository, error) {
	switch opts.Store {
	case options.StorePostgres:
		s, err := postgres.Open(ctx, pg)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		d.closers = append(d.closers, func(context.Context) { s.Close() })
		d.checks["store"] = s.Ping

		if pg.EnsureSchema {
			if err := s.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		if opts.Seed {
			if err := s.Seed(ctx); err != nil {
				return nil, err
			}
		}
		return s, nil

	default:
		if opts.Seed {
			return memory.NewSeeded(), nil
		}
		return memory.New(), nil
	}
}
