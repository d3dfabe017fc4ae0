// Package cli implements the sseld command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/internal/app"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/version"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	EnvFile    string
	LogLevel   string
}

// NewRootCommand creates the sseld root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "sseld",
		Short:         "Server-Sent Events streaming daemon",
		Long:          "sseld serves event streams over HTTP, fed by timers and Redis pub/sub channels.",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: search cmd/sseld/config.yml, ./config.yml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", ".env file (default: search standard locations)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	cmd.SetVersionTemplate("sseld {{.Version}}\n")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewTailCommand())
	cmd.AddCommand(NewPublishCommand(opts))

	return cmd
}

// loadConfig loads the configuration, applies flag overrides and
// initializes the global logger from it.
func loadConfig(opts *RootOptions) (*app.Config, *logger.Logger, error) {
	var loaderOpts []config.LoaderOption
	if opts.ConfigFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(opts.ConfigFile))
	}
	if opts.EnvFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(opts.EnvFile))
	}
	if opts.LogLevel != "" {
		loaderOpts = append(loaderOpts, config.WithDefaults(map[string]interface{}{
			"logging.level": opts.LogLevel,
		}))
	}

	cfg, err := app.LoadConfig(loaderOpts...)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger.Init(cfg.Logging)
	return cfg, logger.Get(app.ServiceName), nil
}
