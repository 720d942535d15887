package options

import (
	"strings"
	"testing"

	"github.com/rapidaid-io/rapidaid/pkg/options"
)

func TestDefaultsAreValid(t *testing.T) {
	o := NewDispatchServerOptions()
	if err := o.Complete(); err != nil {
		t.Fatal(err)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateAggregatesGroups(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *DispatchServerOptions)
		want   []string
	}{
		{
			name:   "bad store",
			mutate: func(o *DispatchServerOptions) { o.DispatchOptions.Store = "redis" },
			want:   []string{"dispatch.store"},
		},
		{
			name: "postgres checked only when selected",
			mutate: func(o *DispatchServerOptions) {
				o.PostgresOptions.DSN = ""
				o.DispatchOptions.Store = options.StorePostgres
			},
			want: []string{"postgres.dsn"},
		},
		{
			name: "several groups at once",
			mutate: func(o *DispatchServerOptions) {
				o.HttpOptions.RateLimit = -1
				o.S3Options.Enabled = true
				o.S3Options.BucketName = ""
				o.Log.Format = "xml"
			},
			want: []string{"http.rate-limit", "s3.bucket-name", "log.format"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewDispatchServerOptions()
			tt.mutate(o)
			err := o.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestUnusedPostgresIsIgnored(t *testing.T) {
	o := NewDispatchServerOptions()
	o.PostgresOptions.DSN = ""
	if err := o.Validate(); err != nil {
		t.Fatalf("memory store should not require a dsn: %v", err)
	}
}

func TestFlagsCoverEveryGroup(t *testing.T) {
	fss := NewDispatchServerOptions().Flags()
	for _, name := range []string{"http", "mqtt", "s3", "postgres", "dispatch", "log"} {
		if _, ok := fss.FlagSets[name]; !ok {
			t.Errorf("missing flag set %q", name)
		}
	}
	if f := fss.FlagSet("dispatch").Lookup("dispatch.cache-ttl"); f == nil || f.DefValue != "30s" {
		t.Errorf("dispatch.cache-ttl flag = %+v", f)
	}
}

func TestConfigCarriesGroups(t *testing.T) {
	o := NewDispatchServerOptions()
	cfg, err := o.Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HttpOptions != o.HttpOptions || cfg.DispatchOptions != o.DispatchOptions || cfg.S3Options != o.S3Options {
		t.Error("config should share the option groups")
	}
}
