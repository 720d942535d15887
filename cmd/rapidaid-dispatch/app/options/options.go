package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/rapidaid-io/rapidaid/internal/dispatch"
	"github.com/rapidaid-io/rapidaid/pkg/app"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	"github.com/rapidaid-io/rapidaid/pkg/options"
)

type DispatchServerOptions struct {
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	PostgresOptions *options.PostgresOptions `json:"postgres" mapstructure:"postgres"`
	DispatchOptions *options.DispatchOptions `json:"dispatch" mapstructure:"dispatch"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*DispatchServerOptions)(nil)

func NewDispatchServerOptions() *DispatchServerOptions {
	return &DispatchServerOptions{
		HttpOptions:     options.NewHttpOptions(),
		MqttOptions:     options.NewMqttOptions(),
		S3Options:       options.NewS3Options(),
		PostgresOptions: options.NewPostgresOptions(),
		DispatchOptions: options.NewDispatchOptions(),
		Log:             log.NewOptions(),
	}
}

func (o *DispatchServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.PostgresOptions.AddFlags(fss.FlagSet("postgres"))
	o.DispatchOptions.AddFlags(fss.FlagSet("dispatch"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *DispatchServerOptions) Complete() error {
	if o.Log.Name == "" {
		o.Log.Name = "rapidaid-dispatch"
	}
	return nil
}

// Validate checks every group. Postgres settings are only checked when the
// postgres store is selected.
func (o *DispatchServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	if o.DispatchOptions.Store == options.StorePostgres {
		errs = append(errs, o.PostgresOptions.Validate()...)
	}
	errs = append(errs, o.DispatchOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *DispatchServerOptions) Config() (*dispatch.Config, error) {
	return &dispatch.Config{
		HttpOptions:     o.HttpOptions,
		MqttOptions:     o.MqttOptions,
		S3Options:       o.S3Options,
		PostgresOptions: o.PostgresOptions,
		DispatchOptions: o.DispatchOptions,
	}, nil
}
