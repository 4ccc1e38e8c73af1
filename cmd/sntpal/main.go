package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/AndrewLester/sntpal/internal/log"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

var (
	configPath string

	v      *viper.Viper
	cfg    *sntpal.FileConfig
	logger *zap.Logger
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v = sntpal.NewViper()

	root := &cobra.Command{
		Use:          "sntpal",
		Short:        "Minimal SNTP client and clock sync daemon",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := sntpal.LoadConfig(v, configPath)
			if err != nil {
				return err
			}

			logger, err = log.New(loaded.Log)
			if err != nil {
				return err
			}

			cfg = loaded

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync() //nolint:errcheck
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", sntpal.DefaultConfigPath, "path to the config file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("socket", "", "daemon RPC socket")

	v.BindPFlag("log.level", flags.Lookup("log-level")) //nolint:errcheck
	v.BindPFlag("socket", flags.Lookup("socket"))       //nolint:errcheck

	root.AddCommand(
		newQueryCommand(),
		newDaemonCommand(),
		newStatusCommand(),
		newResyncCommand(),
		newUICommand(),
		newZonesCommand(),
		newConfigCommand(),
	)

	return root
}
