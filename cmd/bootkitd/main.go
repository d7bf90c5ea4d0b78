package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/opensuse/bootkitd/internal/app"
	"github.com/opensuse/bootkitd/internal/config"
)

var (
	flagSession  bool
	flagPretty   bool
	flagLogLevel string
	flagIdleTime string
	flagConfig   string
)

var rootCmd = &cobra.Command{
	Use:   "bootkitd",
	Short: "Bootloader configuration service",
	Long: `bootkitd exposes the GRUB2 configuration on the message bus, keeps a
snapshot history of every change, watches the underlying files for external
edits and exits on its own after a period of inactivity.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func run(cmd *cobra.Command, args []string) error {
	config.SetupLogging(flagLogLevel, flagPretty)

	opts := config.Options{
		Session:  flagSession,
		LogLevel: flagLogLevel,
		Pretty:   flagPretty,
		Paths:    config.DefaultPaths,
	}
	config.LoadFile(flagConfig, &opts)

	if flagIdleTime != "" {
		idle, err := config.ParseIdleTime(flagIdleTime)
		if err != nil {
			return err
		}
		opts.IdleTime = idle
	}

	return app.New(opts).Run()
}

func init() {
	rootCmd.Flags().BoolVarP(&flagSession, "session", "s", false,
		"use the session bus instead of the system bus")
	rootCmd.Flags().StringVarP(&flagLogLevel, "log-level", "l", "",
		"log level (error, warn, info, debug, trace or 1-5), overrides "+config.EnvLogLevel)
	rootCmd.Flags().BoolVar(&flagPretty, "pretty", false,
		"keep timestamps in log output")
	rootCmd.Flags().StringVar(&flagIdleTime, "idle-time", "",
		"exit after this much bus inactivity, e.g. '30s', '5 min' (default: run forever)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "/etc/bootkitd.toml",
		"path override file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
