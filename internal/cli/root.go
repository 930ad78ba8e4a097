// Package cli implements the hazardwatch command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"hazardwatch/internal/platform/config"
	"hazardwatch/internal/platform/logger"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
	backend   string
}

// settings loads the env file, reads the environment and applies flag
// overrides.
func (o *rootOptions) settings() config.Settings {
	if o.envFile != "" {
		_ = config.Load(o.envFile)
	}
	s := config.FromEnv()
	if o.logLevel != "" {
		s.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		s.LogFormat = o.logFormat
	}
	if o.backend != "" {
		s.LogBackend = o.backend
	}
	return s
}

func (o *rootOptions) logger(cmd *cobra.Command, s config.Settings) *slog.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "hazardwatch",
		Short:         "Road hazard detection on camera and video streams",
		Long:          "hazardwatch runs an object detector over a webcam, video file or MJPEG stream, logs road hazards, speaks warnings and serves a live dashboard.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (json, text); overrides LOG_FORMAT")
	flags.StringVar(&opts.backend, "log-backend", "", "hazard log backend (sqlite, postgres, redis, memory); overrides LOG_BACKEND")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newWatchCmd(opts),
		newLogCmd(opts),
	)
	return rootCmd
}
