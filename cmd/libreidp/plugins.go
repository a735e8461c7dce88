package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/libreidp/libreidp/app"
	"github.com/libreidp/libreidp/metrics"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the plugins that can be loaded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		resolver := app.NewResolver(cfg, metrics.NewRecorder())
		names, err := resolver.Available()
		if err != nil {
			return err
		}

		enabled := make(map[string]bool, len(cfg.Plugins))
		for _, name := range cfg.Plugins {
			enabled[name] = true
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE\tENABLED")
		for _, name := range names {
			source := "builtin"
			if path, err := resolver.Path(name); err == nil {
				source = path
			}
			fmt.Fprintf(w, "%s\t%s\t%t\n", name, source, enabled[name])
		}
		return w.Flush()
	},
}

func init() {
	addConfigFlags(pluginsCmd)
	rootCmd.AddCommand(pluginsCmd)
}
