package app

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/rapidaid-io/rapidaid/cmd/rapidaid-dispatch/app/options"
	"github.com/rapidaid-io/rapidaid/internal/dispatch"
	"github.com/rapidaid-io/rapidaid/pkg/app"
	"github.com/rapidaid-io/rapidaid/pkg/log"
)

const (
	commandName = "rapidaid-dispatch"
	commandDesc = `The RapidAid dispatch server tracks ambulances and hospitals, matches
emergency requests to the nearest available ambulance and pushes every state
change to live clients. Instances share events through an MQTT broker.`
)

var errNotRunning = errors.New("dispatch server is not running")

// NewApp creates the dispatch server command.
func NewApp() *app.App {
	opts := options.NewDispatchServerOptions()
	var current atomic.Pointer[dispatch.DispatchServer]

	return app.NewApp(
		commandName,
		"Launch a RapidAid dispatch server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts, &current)),
		app.WithReloadFunc(reload(&current)),
	)
}

func run(opts *options.DispatchServerOptions, current *atomic.Pointer[dispatch.DispatchServer]) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		defer func() { _ = log.Sync() }()

		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewDispatchServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create dispatch server: %w", err)
		}
		current.Store(server)
		defer current.Store(nil)

		return server.Run(ctx)
	}
}

// reload applies the dispatch tunables of a changed config file. The other
// groups need a restart.
func reload(current *atomic.Pointer[dispatch.DispatchServer]) app.ReloadFunc {
	return func(v *viper.Viper) error {
		server := current.Load()
		if server == nil {
			return errNotRunning
		}
		opts := options.NewDispatchServerOptions()
		if err := v.Unmarshal(opts); err != nil {
			return fmt.Errorf("decode configuration: %w", err)
		}
		return server.Reload(opts.DispatchOptions)
	}
}

