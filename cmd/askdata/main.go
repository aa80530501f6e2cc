// Command askdata is the command line client of the askdata agent. It
// answers questions, runs analysis code and inspects the tool catalog
// with the same configuration file as the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rhuss/askdata/pkg/app"
	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/debug"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "askdata",
		Short:         "Answer questions about your data with generated analysis code",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
			debug.Init(debug.Options{Level: opts.logLevel, Output: cmd.ErrOrStderr()})
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: $ASKDATA_CONFIG, ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARN", "Log level: DEBUG, INFO, WARN or ERROR")

	root.AddCommand(
		newAskCmd(opts),
		newRunCmd(opts),
		newToolsCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

// load reads the configuration named by the --config flag.
func (o *options) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// build assembles the application from the configuration.
func (o *options) build(ctx context.Context) (*app.App, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("starting askdata: %w", err)
	}
	return a, nil
}
