package main

import (
	"github.com/spf13/cobra"

	"github.com/libreidp/libreidp/app"
	"github.com/libreidp/libreidp/config"
	"github.com/libreidp/libreidp/logging"
)

var (
	configPath string
	flagPort   int
	flagPlugin []string
	flagDirs   []string
	flagLevel  string
	flagFormat string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.Logging())

		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	},
}

// loadConfig applies the file, the environment and then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = flagPort
	}
	if flags.Changed("plugin") {
		cfg.Plugins = flagPlugin
	}
	if flags.Changed("plugin-dir") {
		cfg.PluginDirs = flagDirs
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = flagFormat
	}
	return cfg, cfg.Validate()
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	f.StringSliceVar(&flagPlugin, "plugin", nil, "Plugin to load (repeatable)")
	f.StringSliceVar(&flagDirs, "plugin-dir", nil, "Directory searched for <name>.so plugins (repeatable)")
}

func init() {
	addConfigFlags(serveCmd)
	f := serveCmd.Flags()
	f.IntVarP(&flagPort, "port", "p", config.DefaultPort, "Port to listen on")
	f.StringVar(&flagLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&flagFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.AddCommand(serveCmd)
}
