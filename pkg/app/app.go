// Package app builds the cobra command of a RapidAid binary from a set of
// named option groups. Flags, a YAML config file and RAPIDAID_* environment
// variables all populate the same options, in increasing order of precedence:
// config file, environment, explicit flags.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/rapidaid-io/rapidaid/pkg/log"
)

// EnvPrefix prefixes every environment variable read by the config layer.
const EnvPrefix = "RAPIDAID"

const configFlagName = "config"

// RunFunc starts the application once the options are complete and valid.
type RunFunc func() error

// ReloadFunc receives the re-read configuration after the config file changes.
type ReloadFunc func(v *viper.Viper) error

// NamedFlagSetOptions is implemented by the options of bootable commands.
type NamedFlagSetOptions interface {
	// Flags returns the option groups, one flag set per group.
	Flags() cliflag.NamedFlagSets
	// Complete fills in derived defaults.
	Complete() error
	// Validate reports every invalid option at once.
	Validate() error
}

// App is a command-line application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	reloadFunc  ReloadFunc
	args        cobra.PositionalArgs
	configFile  string

	viper *viper.Viper
	cmd   *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithDescription sets the long help text.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions sets the option groups parsed before RunFunc runs.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function invoked after option validation.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithReloadFunc watches the config file and calls fn on every change.
func WithReloadFunc(fn ReloadFunc) Option {
	return func(a *App) { a.reloadFunc = fn }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// NewApp creates an application named name.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc, viper: viper.New()}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command { return a.cmd }

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
	}
	global := fss.FlagSet("global")
	global.StringVarP(&a.configFile, configFlagName, "c", "", "Path to a YAML config file. Flags and "+EnvPrefix+"_* variables override it.")
	global.BoolP("help", "h", false, fmt.Sprintf("Help for %s.", a.name))

	for _, f := range fss.FlagSets {
		cmd.Flags().AddFlagSet(f)
	}

	cliflag.SetUsageAndHelpFunc(cmd, fss, 0)

	a.cmd = cmd
}

func (a *App) run(cmd *cobra.Command) error {
	if a.options != nil {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.reloadFunc != nil && a.configFile != "" {
		a.watchConfig()
	}

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// loadConfig merges the config file and the environment into the options.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", a.configFile, err)
		}
	}

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("decode configuration: %w", err)
	}
	return nil
}

func (a *App) watchConfig() {
	a.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := a.reloadFunc(a.viper); err != nil {
			log.Error(err, "Failed to apply reloaded configuration", "file", e.Name)
			return
		}
		log.Info("Configuration reloaded", "file", e.Name)
	})
	a.viper.WatchConfig()
}
