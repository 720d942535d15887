package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

var _ IOptions = (*DispatchOptions)(nil)

// DispatchOptions holds the storage choice and the dispatch heuristics.
// The heuristics can be changed at runtime through the config file.
type DispatchOptions struct {
	// Store is "memory" or "postgres".
	Store string `json:"store" mapstructure:"store"`

	// Seed loads the demo hospitals and ambulances into an empty store.
	Seed bool `json:"seed" mapstructure:"seed"`

	TickInterval          time.Duration `json:"tick-interval" mapstructure:"tick-interval"`
	CacheTTL              time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`
	InvalidationThreshold float64       `json:"invalidation-threshold" mapstructure:"invalidation-threshold"`
	CatchmentRadius       float64       `json:"catchment-radius" mapstructure:"catchment-radius"`
	NominalSpeedKmh       float64       `json:"nominal-speed" mapstructure:"nominal-speed"`
	DefaultSpeedKmh       float64       `json:"default-speed" mapstructure:"default-speed"`
}

func NewDispatchOptions() *DispatchOptions {
	return &DispatchOptions{
		Store:                 StoreMemory,
		Seed:                  true,
		TickInterval:          500 * time.Millisecond,
		CacheTTL:              30 * time.Second,
		InvalidationThreshold: 100,
		CatchmentRadius:       10000,
		NominalSpeedKmh:       60,
		DefaultSpeedKmh:       60,
	}
}

func (o *DispatchOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Store != StoreMemory && o.Store != StorePostgres {
		errs = append(errs, fmt.Errorf("dispatch.store must be %q or %q, got %q", StoreMemory, StorePostgres, o.Store))
	}
	if o.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.tick-interval must be positive"))
	}
	if o.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.cache-ttl must be positive"))
	}
	if o.InvalidationThreshold < 0 {
		errs = append(errs, fmt.Errorf("dispatch.invalidation-threshold must not be negative"))
	}
	if o.CatchmentRadius <= 0 {
		errs = append(errs, fmt.Errorf("dispatch.catchment-radius must be positive"))
	}
	if o.NominalSpeedKmh <= 0 || o.DefaultSpeedKmh <= 0 {
		errs = append(errs, fmt.Errorf("dispatch speeds must be positive"))
	}
	return errs
}

func (o *DispatchOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Store, join(prefixes, "dispatch.store"), o.Store, "Storage backend: memory or postgres.")
	fs.BoolVar(&o.Seed, join(prefixes, "dispatch.seed"), o.Seed, "Load demo hospitals and ambulances into an empty store.")
	fs.DurationVar(&o.TickInterval, join(prefixes, "dispatch.tick-interval"), o.TickInterval, "Step interval of movement simulations.")
	fs.DurationVar(&o.CacheTTL, join(prefixes, "dispatch.cache-ttl"), o.CacheTTL, "Lifetime of cached nearest-ambulance results.")
	fs.Float64Var(&o.InvalidationThreshold, join(prefixes, "dispatch.invalidation-threshold"), o.InvalidationThreshold, "Movement in meters that invalidates cached proximity results.")
	fs.Float64Var(&o.CatchmentRadius, join(prefixes, "dispatch.catchment-radius"), o.CatchmentRadius, "Radius in meters of the hospitals affected by a movement.")
	fs.Float64Var(&o.NominalSpeedKmh, join(prefixes, "dispatch.nominal-speed"), o.NominalSpeedKmh, "Speed in km/h used for travel time estimates.")
	fs.Float64Var(&o.DefaultSpeedKmh, join(prefixes, "dispatch.default-speed"), o.DefaultSpeedKmh, "Simulation speed in km/h when a request omits one.")
}
