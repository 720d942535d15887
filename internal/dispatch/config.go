// Package dispatch assembles the dispatch server from its options.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/archive"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/broadcast"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/service"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/notifier"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/server"
	httpserver "github.com/rapidaid-io/rapidaid/internal/dispatch/server/http"
	mqttserver "github.com/rapidaid-io/rapidaid/internal/dispatch/server/mqtt"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/server/ws"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	"github.com/rapidaid-io/rapidaid/pkg/mqtt/topic"
	"github.com/rapidaid-io/rapidaid/pkg/options"
)

var errNotConnected = errors.New("not connected")

// Config is the complete configuration of a dispatch server.
type Config struct {
	HttpOptions     *options.HttpOptions
	MqttOptions     *options.MqttOptions
	S3Options       *options.S3Options
	PostgresOptions *options.PostgresOptions
	DispatchOptions *options.DispatchOptions
}

// TunablesFrom converts the runtime-adjustable options into service tunables.
func TunablesFrom(o *options.DispatchOptions) service.Tunables {
	return service.Tunables{
		TickInterval:          o.TickInterval,
		CacheTTL:              o.CacheTTL,
		InvalidationThreshold: o.InvalidationThreshold,
		CatchmentRadius:       o.CatchmentRadius,
		NominalSpeedKmh:       o.NominalSpeedKmh,
		DefaultSpeedKmh:       o.DefaultSpeedKmh,
	}
}

// NewDispatchServer wires storage, the event bus, the dispatch core and the
// servers. ctx bounds the startup connections only.
func (cfg *Config) NewDispatchServer(ctx context.Context) (_ *DispatchServer, err error) {
	d := &DispatchServer{checks: map[string]httpserver.Checker{}}
	defer func() {
		if err != nil {
			d.cleanup()
		}
	}()

	// 1. Storage
	repo, err := d.initializeStore(ctx, cfg.DispatchOptions, cfg.PostgresOptions)
	if err != nil {
		return nil, err
	}

	// 2. Event bus, with the MQTT egress as transport when enabled
	var busOpts []broadcast.Option
	var topics *topic.Builder
	if cfg.MqttOptions.Enabled {
		topics = topic.NewBuilder(cfg.MqttOptions.TopicRoot)
		egress, err := InitializeMQTTClient(cfg.MqttOptions, "notifier")
		if err != nil {
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		if err := egress.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to start notifier: %w", err)
		}
		n := notifier.NewMQTTNotifier(egress, topics, cfg.MqttOptions.QoS)
		d.closers = append(d.closers, n.Close)
		d.checks["mqtt"] = func(context.Context) error {
			if !egress.IsConnected() {
				return errNotConnected
			}
			return nil
		}
		busOpts = append(busOpts, broadcast.WithTransport(n))
	}
	bus := broadcast.New(busOpts...)

	// 3. Core domain service
	svc := service.New(repo, bus, TunablesFrom(cfg.DispatchOptions))
	d.svc = svc

	// 4. Ingress servers
	hub := ws.NewHub(cfg.HttpOptions.AllowedOrigins)
	hub.Attach(bus)

	servers := []server.Server{hub}

	if cfg.MqttOptions.Enabled {
		ingress, err := InitializeMQTTClient(cfg.MqttOptions, "ingress")
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt ingress: %w", err)
		}
		servers = append(servers, mqttserver.NewServer(ingress, topics, cfg.MqttOptions.QoS, bus))
	}

	if cfg.S3Options.Enabled {
		uploader, err := archive.NewMinIO(cfg.S3Options)
		if err != nil {
			return nil, err
		}
		archiver := archive.New(uploader, cfg.S3Options.QueueSize)
		archiver.Attach(bus)
		d.checks["s3"] = uploader.Check
		servers = append(servers, archiver)
	}

	servers = append(servers, httpserver.NewServer(cfg.HttpOptions, svc, hub, d.checks))
	d.manager = server.NewManager(servers...)

	log.Info("Dispatch server assembled",
		"store", cfg.DispatchOptions.Store,
		"mqtt", cfg.MqttOptions.Enabled,
		"archive", cfg.S3Options.Enabled,
	)
	return d, nil
}
