package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"
)

type serverOptions struct {
	Server *listenOptions `mapstructure:"server"`
}

type listenOptions struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
	Weight  float64       `mapstructure:"weight"`
}

func (o *listenOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "server.addr", o.Addr, "")
	fs.DurationVar(&o.Timeout, "server.timeout", o.Timeout, "")
	fs.Float64Var(&o.Weight, "server.weight", o.Weight, "")
}

func newServerOptions() *serverOptions {
	return &serverOptions{Server: &listenOptions{Addr: ":5000", Timeout: time.Second, Weight: 1}}
}

func (o *serverOptions) Flags() cliflag.NamedFlagSets {
	var fss cliflag.NamedFlagSets
	o.Server.addFlags(fss.FlagSet("server"))
	return fss
}

func (o *serverOptions) Complete() error { return nil }

func (o *serverOptions) Validate() error {
	if o.Server.Addr == "" {
		return utilerrors.NewAggregate([]error{errors.New("server.addr is required")})
	}
	return nil
}

func execute(t *testing.T, opts *serverOptions, args ...string) error {
	t.Helper()
	a := NewApp("test", "test app", WithOptions(opts), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	a.Command().SetArgs(args)
	return a.Command().Execute()
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("server:\n  addr: \":6000\"\n  timeout: 3s\n  weight: 2.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RAPIDAID_SERVER_TIMEOUT", "7s")

	opts := newServerOptions()
	if err := execute(t, opts, "--config", file, "--server.weight", "4"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if opts.Server.Addr != ":6000" {
		t.Errorf("addr = %q, want value from the config file", opts.Server.Addr)
	}
	if opts.Server.Timeout != 7*time.Second {
		t.Errorf("timeout = %s, want value from the environment", opts.Server.Timeout)
	}
	if opts.Server.Weight != 4 {
		t.Errorf("weight = %v, want value from the flag", opts.Server.Weight)
	}
}

func TestDefaultsWithoutConfig(t *testing.T) {
	opts := newServerOptions()
	if err := execute(t, opts); err != nil {
		t.Fatal(err)
	}
	if opts.Server.Addr != ":5000" || opts.Server.Timeout != time.Second {
		t.Errorf("defaults changed: %+v", opts.Server)
	}
}

func TestValidationAndArgs(t *testing.T) {
	if err := execute(t, newServerOptions(), "--server.addr", ""); err == nil {
		t.Error("empty addr accepted")
	}
	if err := execute(t, newServerOptions(), "extra"); err == nil {
		t.Error("positional argument accepted")
	}
	if err := execute(t, newServerOptions(), "--config", "/does/not/exist.yaml"); err == nil {
		t.Error("missing config file accepted")
	}
}
