package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thereceipt/escpos-driver/internal/api"
	"github.com/thereceipt/escpos-driver/internal/config"
	"github.com/thereceipt/escpos-driver/internal/logging"
)

// Version is set during build via ldflags
var Version = "dev"

var (
	rootConfigFile string
	rootServerURL  string

	settings = config.New()
	appCfg   config.Config
)

var rootCmd = &cobra.Command{
	Use:     "escposd",
	Short:   "USB receipt printer driver for point of sale front ends",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			log.Warn().Err(err).Msg("ignoring .env")
		}

		cfg, err := config.Load(settings, rootConfigFile)
		if err != nil {
			return err
		}
		if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
			return err
		}
		appCfg = cfg
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "trace, debug, info, warn or error")
	flags.String("log-format", "auto", "auto, console or json")
	flags.StringVar(&rootServerURL, "server", api.DefaultServerURL, "driver URL used by client commands")

	_ = settings.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = settings.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newServeCmd(),
		newDevicesCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newPrintCmd(),
		newCashboxCmd(),
		newTicketCmd(),
		newPreviewCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("escposd command failed")
	}
}
