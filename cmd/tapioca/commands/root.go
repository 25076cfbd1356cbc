// Package commands implements the tapioca command line.
package commands

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/tapioca/client"
	"github.com/kbukum/tapioca/config"
	"github.com/kbukum/tapioca/observability"
	"github.com/kbukum/tapioca/version"
)

const defaultName = "tapioca"

type globalOptions struct {
	configFile string
	output     string
	verbose    bool
}

// NewRootCommand creates the tapioca command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "tapioca",
		Short: "Call HTTP APIs through a configured tapioca adapter",
		Long: `tapioca drives an HTTP API described in a config file: resources are
URL templates under an API root, responses are decoded with the configured
codec, and paginated resources can be walked page by page.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: tapioca.yml, config/tapioca.yml or the user config dir)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "output format: table, json or yaml (default: table on a terminal, json otherwise)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every request")

	root.AddCommand(newCallCommand(opts))
	root.AddCommand(newResourcesCommand(opts))
	root.AddCommand(newVersionCommand(opts))
	return root
}

// configName is the service name a config file is looked up under.
func (o *globalOptions) configName() string {
	if o.configFile == "" {
		return defaultName
	}
	base := filepath.Base(o.configFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (o *globalOptions) loadConfig() (client.Config, error) {
	var loaderOpts []config.LoaderOption
	if o.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.configFile))
	}
	cfg, err := client.LoadConfig(o.configName(), loaderOpts...)
	if err != nil {
		return client.Config{}, err
	}
	if cfg.Name == "" {
		cfg.Name = o.configName()
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newClient loads the config, starts telemetry and builds the client. The
// returned shutdown flushes telemetry.
func (o *globalOptions) newClient(ctx context.Context) (*client.Client, observability.ShutdownFunc, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	shutdown, err := observability.Setup(ctx, cfg.Telemetry, cfg.Name, version.Get().Short(), cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	c, err := client.NewFromConfig(cfg, nil)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	return c, shutdown, nil
}
