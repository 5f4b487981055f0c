package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	siteName   string
)

var rootCmd = &cobra.Command{
	Use:   "vobotty",
	Short: "vobotty logs stored accounts into vote sites and votes with each of them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		InitTelemetry(cmd.Context(), verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ShutdownTelemetry()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file, a config.local.json5 next to it overrides its fields.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs and dump every HTTP exchange under <dev_state>/resty.")
	rootCmd.PersistentFlags().StringVar(&siteName, "site", "amakna", "The site to work on.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
